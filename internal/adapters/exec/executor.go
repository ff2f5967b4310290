package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	osexec "os/exec"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"nymctl/internal/core"
	"nymctl/internal/ports"
)

// ElevationWrapper is the program put in front of elevated commands
const ElevationWrapper = "sudo"

// Executor runs host processes, it is the only place in nymctl that calls os/exec
type Executor struct {
	out      io.Writer
	log      *logrus.Entry
	lookPath func(string) (string, error)
	euid     func() int
}

// NewExecutor returns an executor echoing to out (streamed output, sudo notices, spinner)
func NewExecutor(out io.Writer, log *logrus.Entry) *Executor {
	return &Executor{
		out:      out,
		log:      log,
		lookPath: osexec.LookPath,
		euid:     unix.Geteuid,
	}
}

var _ ports.CommandExecutor = (*Executor)(nil)

// Execute runs cmd and blocks until it exits
func (e *Executor) Execute(ctx context.Context, cmd ports.Command) (ports.ExecResult, error) {
	if len(cmd.Argv) == 0 {
		return ports.ExecResult{}, fmt.Errorf("empty command")
	}
	if _, err := e.lookPath(cmd.Argv[0]); err != nil {
		return ports.ExecResult{ExitCode: -1}, &core.ExecutableNotFoundError{Name: cmd.Argv[0]}
	}

	argv, err := e.commandLine(cmd)
	if err != nil {
		return ports.ExecResult{ExitCode: -1}, err
	}
	e.log.WithFields(logrus.Fields{
		"argv":     strings.Join(cmd.Argv, " "),
		"elevated": cmd.Elevated,
		"run_as":   cmd.RunAs,
		"mode":     cmd.Mode,
	}).Debug("executing")

	c := osexec.CommandContext(ctx, argv[0], argv[1:]...)
	var buf bytes.Buffer
	switch cmd.Mode {
	case ports.Streamed:
		// one writer for both streams keeps the interleaving the process produced
		w := io.MultiWriter(&buf, e.out)
		c.Stdout = w
		c.Stderr = w
		err = c.Run()
	case ports.AnimatedQuiet:
		label := cmd.Label
		if label == "" {
			label = "Running " + cmd.Argv[0]
		}
		err = e.runQuiet(c, label)
	default:
		c.Stdout = &buf
		c.Stderr = &buf
		if cmd.Label != "" {
			err = e.runQuiet(c, cmd.Label)
		} else {
			err = c.Run()
		}
	}
	return e.result(ctx, cmd, buf.String(), err)
}

func (e *Executor) runQuiet(c *osexec.Cmd, label string) error {
	spinner := NewSpinner(e.out, label).Start()
	defer spinner.Stop()
	return c.Run()
}

// commandLine is the argv actually started: elevated through the wrapper, or dropped to
// cmd.RunAs when we are root
func (e *Executor) commandLine(cmd ports.Command) ([]string, error) {
	if cmd.Elevated || cmd.RunAs == "" || cmd.RunAs == "root" || e.euid() != 0 {
		return e.elevate(cmd)
	}
	if _, err := e.lookPath(ElevationWrapper); err != nil {
		return nil, fmt.Errorf("run %s as %s: %w", cmd.Argv[0], cmd.RunAs, core.ErrPrivilegeUnavailable)
	}
	// -H so the node keeps its files under the home of RunAs, not under /root
	return append([]string{ElevationWrapper, "-u", cmd.RunAs, "-H"}, cmd.Argv...), nil
}

// elevate prefixes the wrapper and tells the operator why. Root needs no wrapper
func (e *Executor) elevate(cmd ports.Command) ([]string, error) {
	if !cmd.Elevated {
		return cmd.Argv, nil
	}
	reason := cmd.Reason
	if reason == "" {
		reason = strings.Join(cmd.Argv, " ")
	}
	if e.euid() == 0 {
		fmt.Fprintf(e.out, "%s %s\n", color.RedString("[root]"), reason)
		return cmd.Argv, nil
	}
	if _, err := e.lookPath(ElevationWrapper); err != nil {
		return nil, fmt.Errorf("%s: %w", reason, core.ErrPrivilegeUnavailable)
	}
	fmt.Fprintf(e.out, "%s %s\n", color.New(color.BgRed, color.FgWhite, color.Bold).Sprint(" SUDO REQUIRED "), reason)
	return append([]string{ElevationWrapper}, cmd.Argv...), nil
}

func (e *Executor) result(ctx context.Context, cmd ports.Command, output string, runErr error) (ports.ExecResult, error) {
	res := ports.ExecResult{Output: output}
	if runErr == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", cmd.Argv[0], ctxErr)
	}
	var exitErr *osexec.ExitError
	if errors.As(runErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &core.CommandFailedError{Argv: cmd.Argv, Code: res.ExitCode, Output: output}
	}
	res.ExitCode = -1
	if errors.Is(runErr, osexec.ErrNotFound) || errors.Is(runErr, fs.ErrNotExist) {
		return res, &core.ExecutableNotFoundError{Name: cmd.Argv[0]}
	}
	return res, fmt.Errorf("unable to run %s: %w", cmd.Argv[0], runErr)
}
