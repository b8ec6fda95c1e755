package action

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// scriptAction runs an inline POSIX shell snippet with the mvdan/sh
// in-process interpreter. Syntax is validated when the catalog resolves,
// so a malformed script is rejected before any step executes.
//
// The interpreter runs in-process: a run_as declaration cannot switch the
// script's UID, it only rewrites HOME/USER in the environment. Steps that
// need a real identity switch should use the command action.
type scriptAction struct {
	source string
	prog   *syntax.File
}

func newScriptAction(params Params) (Action, error) {
	source, err := params.String("script")
	if err != nil {
		return nil, err
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(source), "script")
	if err != nil {
		return nil, fmt.Errorf("script syntax error: %w", err)
	}

	return &scriptAction{source: source, prog: prog}, nil
}

// Describe returns the first line of the script.
func (a *scriptAction) Describe() string {
	line := a.source
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx] + " ..."
	}
	return "run script: " + strings.TrimSpace(line)
}

// Apply interprets the script, honoring the context deadline.
func (a *scriptAction) Apply(ctx context.Context, run RunContext) error {
	var stdout, stderr bytes.Buffer

	env := append(os.Environ(), run.EnvSlice()...)

	runner, err := interp.New(
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, &stdout, &stderr),
	)
	if err != nil {
		return fmt.Errorf("script interpreter: %w", err)
	}

	if err := runner.Run(ctx, a.prog); err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			detail := strings.TrimSpace(stderr.String())
			if detail != "" {
				return fmt.Errorf("script exited %d: %s", status, detail)
			}
			return fmt.Errorf("script exited %d", status)
		}
		return fmt.Errorf("script: %w", err)
	}

	return nil
}
