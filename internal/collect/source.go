package collect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/X-Niter/ModForge-sub004/internal/types"
)

// Source produces the current set of compilation problems. An error
// means collection itself failed and the cycle should be skipped; a
// failing build with parseable diagnostics is not an error.
type Source interface {
	Problems(ctx context.Context) ([]types.Problem, error)
}

// CommandSource runs a build command and parses its diagnostics.
type CommandSource struct {
	// Command is the build invocation in argv form
	Command []string
	// Dir is the working directory ("" = current)
	Dir string
}

// NewCommandSource creates a source running command in dir.
func NewCommandSource(command []string, dir string) (*CommandSource, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("build command is required")
	}
	return &CommandSource{Command: command, Dir: dir}, nil
}

// Problems runs the build and parses stdout and stderr. A non-zero exit
// is the expected shape of a failing build; only a command that could
// not run at all is reported as an error.
func (c *CommandSource) Problems(ctx context.Context) ([]types.Problem, error) {
	cmd := exec.CommandContext(ctx, c.Command[0], c.Command[1:]...)
	cmd.Dir = c.Dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("build command failed to run: %w", err)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("build command canceled: %w", ctx.Err())
		}
	}

	return ParseDiagnostics(out.String()), nil
}

// StaticSource returns a fixed problem list. Test double.
type StaticSource struct {
	Result []types.Problem
	Err    error
	// Calls counts invocations
	Calls int
}

func (s *StaticSource) Problems(ctx context.Context) ([]types.Problem, error) {
	s.Calls++
	return s.Result, s.Err
}
