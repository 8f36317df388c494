// Package verify checks the client build output after a deploy build.
package verify

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/deploybuilder/internal/foundation/errors"
)

// SPAIndex summarizes a parsed client index document.
type SPAIndex struct {
	Path    string
	Title   string
	Scripts []string // src of every <script> element
	HasRoot bool     // an element with id "root" or "app" exists
}

// CheckSPAIndex opens and parses the client index page at path.
// A missing file, an unparsable document or a page without any script is an error.
func CheckSPAIndex(path string) (*SPAIndex, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNotFound, "client index page not found").
			WithSeverity(errors.SeverityWarning).
			WithContext("path", path).
			Build()
	}
	defer func() {
		_ = file.Close()
	}()

	idx, err := ParseSPAIndex(file)
	if err != nil {
		return nil, err
	}
	idx.Path = path
	return idx, nil
}

// ParseSPAIndex parses an index document from r.
func ParseSPAIndex(r io.Reader) (*SPAIndex, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse client index page").
			WithSeverity(errors.SeverityWarning).
			Build()
	}

	idx := &SPAIndex{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script":
				if src := getAttr(n, "src"); src != "" {
					idx.Scripts = append(idx.Scripts, src)
				} else if n.FirstChild != nil && strings.TrimSpace(n.FirstChild.Data) != "" {
					idx.Scripts = append(idx.Scripts, "inline")
				}
			case "title":
				if n.FirstChild != nil {
					idx.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			}
			if id := getAttr(n, "id"); id == "root" || id == "app" {
				idx.HasRoot = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(idx.Scripts) == 0 {
		return idx, errors.ValidationError("client index page references no scripts").
			WithSeverity(errors.SeverityWarning).
			Build()
	}
	return idx, nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
