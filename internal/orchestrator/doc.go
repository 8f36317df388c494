// Package orchestrator sequences a deploy build: ensure the output directory,
// build the client, build the server, then make sure a server entry file
// exists. The first failing step aborts the build; nothing is retried or
// rolled back.
package orchestrator
