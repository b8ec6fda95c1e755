package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sothcheat/provision/internal/ports"
)

// commandAction invokes one external command and fails on a non-zero
// exit code. The engine's timeout arrives through the context.
type commandAction struct {
	command string
	args    []string
}

func newCommandAction(params Params) (Action, error) {
	command, err := params.String("command")
	if err != nil {
		return nil, err
	}
	args, err := params.StringSlice("args")
	if err != nil {
		return nil, err
	}

	return &commandAction{command: command, args: args}, nil
}

// Describe returns the command line summary.
func (a *commandAction) Describe() string {
	if len(a.args) == 0 {
		return "run " + a.command
	}
	return fmt.Sprintf("run %s %s", a.command, strings.Join(a.args, " "))
}

// Apply executes the command under the step's declared identity.
func (a *commandAction) Apply(ctx context.Context, run RunContext) error {
	result, err := run.Runner.Run(ctx, ports.ExecSpec{
		Command: a.command,
		Args:    a.args,
		Env:     run.EnvSlice(),
		RunAs:   run.Credential(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", a.command, err)
	}

	if !result.Success() {
		detail := strings.TrimSpace(result.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(result.Stdout)
		}
		if detail != "" {
			return fmt.Errorf("%s exited %d: %s", a.command, result.ExitCode, detail)
		}
		return fmt.Errorf("%s exited %d", a.command, result.ExitCode)
	}

	return nil
}
