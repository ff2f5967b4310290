package core

import (
	"errors"
	"fmt"
)

var (
	ErrPrivilegeUnavailable  = errors.New("no privilege escalation wrapper (sudo) available")
	ErrToolOutputUnparseable = errors.New("node tool output could not be parsed")
	ErrNetworkUnavailable    = errors.New("network unavailable")
	ErrPreconditionUnmet     = errors.New("precondition not met")
	ErrOperatorCancelled     = errors.New("cancelled by operator")

	ErrInsufficientFunds = errors.New("wallet is not funded")
	ErrVersionNotFound   = errors.New("build version not found in output")
	ErrPayloadTooShort   = fmt.Errorf("contract payload must be at least %d characters", MinPayloadLength)
	ErrMalformedAmount   = errors.New("malformed balance amount")
	ErrNodeIDTooShort    = fmt.Errorf("node id must be at least %d characters", MinNodeIDLength)
	ErrNodeIDImmutable   = errors.New("node id cannot be changed once set")
)

// MinPayloadLength is a sanity floor for the wallet payload, not a validation of it
const MinPayloadLength = 10

// ExecutableNotFoundError is returned when the program to run does not exist on the host
type ExecutableNotFoundError struct {
	Name string
}

func (e *ExecutableNotFoundError) Error() string {
	return fmt.Sprintf("executable not found: %s", e.Name)
}

// CommandFailedError is a process that ran and exited non-zero
type CommandFailedError struct {
	Argv   []string
	Code   int
	Output string
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("command %v exited with code %d", e.Argv, e.Code)
}

// ToolError wraps a failed node binary subcommand together with what it printed
type ToolError struct {
	Subcommand string
	Output     string
	Err        error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("nym-node %s failed: %v", e.Subcommand, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
