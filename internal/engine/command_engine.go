package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/AumkarMali/backendVibeVideo/internal/command"
)

// CommandEngine delegates to an external processing CLI invoked as
// `<binary> [args...] <input> <token>`. The CLI may print its output path as the
// last line of stdout; it often does not.
type CommandEngine struct {
	Binary     string
	Args       []string
	Executor   Executor
	operations []command.Token
}

// NewCommandEngine builds an engine for commandLine. ops restricts the supported
// operations; nil means every canonical token except merge.
func NewCommandEngine(commandLine string, ops []command.Token) (*CommandEngine, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("engine command is empty")
	}
	if len(ops) == 0 {
		for _, t := range command.All() {
			if t != command.Merge {
				ops = append(ops, t)
			}
		}
	}
	return &CommandEngine{
		Binary:     fields[0],
		Args:       fields[1:],
		Executor:   CommandExecutor{},
		operations: ops,
	}, nil
}

func (e *CommandEngine) Name() string {
	return "command"
}

func (e *CommandEngine) Supports(token command.Token) bool {
	for _, t := range e.operations {
		if t == token {
			return true
		}
	}
	return false
}

func (e *CommandEngine) Operations() []command.Token {
	return append([]command.Token(nil), e.operations...)
}

func (e *CommandEngine) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	args := append(append([]string(nil), e.Args...), inv.Input, string(inv.Token))
	out, err := e.Executor.Run(ctx, e.Binary, args)
	if err != nil {
		return Result{}, err
	}
	return Result{OutputPath: lastLine(string(out)), Log: string(out)}, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
