package ports

import "context"

// OutputMode decides what happens with the output of an external process
type OutputMode int

const (
	// Captured returns stdout and stderr as text for parsing
	Captured OutputMode = iota
	// Streamed echoes output as it arrives and still captures it
	Streamed
	// AnimatedQuiet throws the output away and shows a liveness indicator instead
	AnimatedQuiet
)

// Command describes one external process invocation
type Command struct {
	Argv     []string
	Elevated bool       // run through the privilege escalation wrapper
	Mode     OutputMode // how output is handled
	Reason   string     // one line shown to the operator before escalating
	Label    string     // text next to the liveness indicator, a Captured command with a label shows one too
	// RunAs is the account the process must run as. When nymctl itself runs as root the
	// command is dropped to this user with its own HOME, otherwise it already runs as that user
	RunAs string
}

// ExecResult is what came back from a finished process
type ExecResult struct {
	ExitCode int
	Output   string
}

// CommandExecutor is the contract to run processes on the host
type CommandExecutor interface {
	// Execute blocks until the process exits. A missing executable, a missing sudo and a
	// non-zero exit are all reported as errors, the result still carries whatever output was captured
	Execute(ctx context.Context, cmd Command) (ExecResult, error)
}
