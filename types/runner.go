package types

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Result is what a finished subprocess left behind.
type Result struct {
	Stdout   string
	ExitCode int
}

// Runner runs external programs. A non zero exit status is not an error,
// only failing to start or wait for the program is.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
	LookPath(file string) (string, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct {
	Logger Logger
}

func NewExecRunner(logger Logger) *ExecRunner {
	return &ExecRunner{Logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	// stderr is only kept for debugging.
	if r.Logger.IsDebug() {
		cmd.Stderr = &stderr
	}

	r.Logger.Tracef("running %s %s", name, strings.Join(args, " "))
	err := cmd.Run()

	res := Result{Stdout: stdout.String()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		res.ExitCode = exitErr.ExitCode()
		r.Logger.Logger.Debug().Str("cmd", name).Int("exit", res.ExitCode).Str("stderr", strings.TrimSpace(stderr.String())).Msg("command exited")
		return res, nil
	}
	if err != nil {
		return res, err
	}
	return res, nil
}

func (r *ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}
