package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	ferrors "git.home.luguber.info/inful/deploybuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/deploybuilder/internal/gitinfo"
	"git.home.luguber.info/inful/deploybuilder/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of builds to show (0 for all)" default:"20"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return ferrors.ConfigError("build history is not enabled (set history.path)").Build()
	}
	dir, err := cfg.Root()
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "failed to resolve working directory").Build()
	}

	store, err := history.Open(resolve(dir, cfg.History.Path))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to open build history").Build()
	}
	defer func() { _ = store.Close() }()

	records, err := store.Recent(g.context(), h.Limit)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to read build history").Build()
	}
	if len(records) == 0 {
		printf(g, "No builds recorded")
		return nil
	}

	tw := tabwriter.NewWriter(g.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tBUILD\tOUTCOME\tREACHED\tDURATION\tCOMMIT\tENTRY")
	for _, r := range records {
		entry := "-"
		if r.EntryCreated {
			entry = "created"
		}
		commit := gitinfo.Info{Commit: r.GitCommit}.ShortCommit()
		if commit == "" {
			commit = "-"
		}
		outcome := r.Outcome
		if r.FailedStage != "" {
			outcome += " (" + r.FailedStage + ")"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), shortID(r.BuildID), outcome, r.Reached,
			r.Duration.Round(time.Millisecond), commit, entry)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
