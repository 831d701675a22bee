package engine

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/AumkarMali/backendVibeVideo/internal/command"
)

// Invocation is the complete input of one engine call. It is passed by value and
// never stored on the engine.
type Invocation struct {
	Input string
	Token command.Token
}

// Result is what an engine reports back. OutputPath may be empty, relative or
// stale; callers locate the real artifact themselves.
type Result struct {
	OutputPath string
	Log        string
}

// ProcessingEngine applies one operation to one input file.
type ProcessingEngine interface {
	Name() string
	Supports(token command.Token) bool
	Operations() []command.Token
	Invoke(ctx context.Context, inv Invocation) (Result, error)
}

// MergeEngine concatenates inputs, in order, into output.
type MergeEngine interface {
	Merge(ctx context.Context, inputs []string, output string) (string, error)
}

// Executor runs an external binary and returns its stdout.
type Executor interface {
	Run(ctx context.Context, name string, args []string) ([]byte, error)
}

// CommandExecutor runs binaries through os/exec.
type CommandExecutor struct{}

func (CommandExecutor) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdout.Bytes(), fmt.Errorf("%s: %w", name, ctxErr)
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, tail(stderr.String(), 2048))
	}
	return stdout.Bytes(), nil
}

func tail(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
