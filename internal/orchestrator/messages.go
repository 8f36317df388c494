package orchestrator

// Step-boundary lines written to the output stream.
const (
	MsgStart        = "Starting deploy build..."
	MsgClient       = "Building client..."
	MsgServer       = "Building server..."
	MsgCreatedEntry = "Creating API entry point..."
	MsgSuccess      = "Deploy build completed successfully!"

	// MsgFailed prefixes the error reported on the error stream.
	MsgFailed = "Deploy build failed"
)
