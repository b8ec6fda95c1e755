package action

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/Sothcheat/provision/internal/ports"
)

// binaryPresent runs the step only when a binary is already on PATH.
type binaryPresent struct {
	name string
}

func newBinaryPresent(params Params) (Precondition, error) {
	name, err := params.String("binary")
	if err != nil {
		return nil, err
	}
	return &binaryPresent{name: name}, nil
}

func (p *binaryPresent) Describe() string {
	return fmt.Sprintf("binary %q is on PATH", p.name)
}

func (p *binaryPresent) Evaluate(_ context.Context, run RunContext) (bool, string, error) {
	if _, err := run.Runner.LookPath(p.name); err != nil {
		return false, fmt.Sprintf("binary %q not found", p.name), nil
	}
	return true, "", nil
}

// binaryAbsent runs the step only when a binary is missing, the usual
// "install unless already installed" guard.
type binaryAbsent struct {
	name string
}

func newBinaryAbsent(params Params) (Precondition, error) {
	name, err := params.String("binary")
	if err != nil {
		return nil, err
	}
	return &binaryAbsent{name: name}, nil
}

func (p *binaryAbsent) Describe() string {
	return fmt.Sprintf("binary %q is absent", p.name)
}

func (p *binaryAbsent) Evaluate(_ context.Context, run RunContext) (bool, string, error) {
	if _, err := run.Runner.LookPath(p.name); err == nil {
		return false, fmt.Sprintf("binary %q already installed", p.name), nil
	}
	return true, "", nil
}

// fileExists runs the step only when a file is present.
type fileExists struct {
	path string
}

func newFileExists(params Params) (Precondition, error) {
	path, err := params.String("path")
	if err != nil {
		return nil, err
	}
	return &fileExists{path: path}, nil
}

func (p *fileExists) Describe() string {
	return fmt.Sprintf("file %s exists", p.path)
}

func (p *fileExists) Evaluate(_ context.Context, run RunContext) (bool, string, error) {
	path := run.ExpandPath(p.path)
	if !run.FS.Exists(path) {
		return false, fmt.Sprintf("file %s does not exist", path), nil
	}
	return true, "", nil
}

// fileAbsent runs the step only when a file is missing.
type fileAbsent struct {
	path string
}

func newFileAbsent(params Params) (Precondition, error) {
	path, err := params.String("path")
	if err != nil {
		return nil, err
	}
	return &fileAbsent{path: path}, nil
}

func (p *fileAbsent) Describe() string {
	return fmt.Sprintf("file %s is absent", p.path)
}

func (p *fileAbsent) Evaluate(_ context.Context, run RunContext) (bool, string, error) {
	path := run.ExpandPath(p.path)
	if run.FS.Exists(path) {
		return false, fmt.Sprintf("file %s already present", path), nil
	}
	return true, "", nil
}

// commandSucceeds runs the step only when a probe command exits zero.
type commandSucceeds struct {
	command string
	args    []string
	negate  bool
}

func newCommandSucceeds(params Params) (Precondition, error) {
	command, err := params.String("command")
	if err != nil {
		return nil, err
	}
	args, err := params.StringSlice("args")
	if err != nil {
		return nil, err
	}
	negate, err := params.Bool("negate")
	if err != nil {
		return nil, err
	}

	return &commandSucceeds{
		command: command,
		args:    args,
		negate:  negate,
	}, nil
}

func (p *commandSucceeds) Describe() string {
	if p.negate {
		return fmt.Sprintf("command %q fails", p.command)
	}
	return fmt.Sprintf("command %q succeeds", p.command)
}

func (p *commandSucceeds) Evaluate(ctx context.Context, run RunContext) (bool, string, error) {
	result, err := run.Runner.Run(ctx, ports.ExecSpec{
		Command: p.command,
		Args:    p.args,
		Env:     run.EnvSlice(),
		RunAs:   run.Credential(),
	})
	if err != nil {
		return false, "", fmt.Errorf("%s: %w", p.command, err)
	}

	succeeded := result.Success()
	if p.negate {
		if succeeded {
			return false, fmt.Sprintf("command %q succeeded", p.command), nil
		}
		return true, "", nil
	}
	if !succeeded {
		return false, fmt.Sprintf("command %q exited %d", p.command, result.ExitCode), nil
	}
	return true, "", nil
}

// versionPattern extracts the first semver-looking token from version
// command output.
var versionPattern = regexp.MustCompile(`v?(\d+\.\d+(?:\.\d+)?)`)

// versionAtLeast runs the step only when a binary's reported version is
// older than the wanted one, i.e. an upgrade is needed.
type versionAtLeast struct {
	binary  string
	args    []string
	minimum string
}

func newVersionAtLeast(params Params) (Precondition, error) {
	binary, err := params.String("binary")
	if err != nil {
		return nil, err
	}
	minimum, err := params.String("version")
	if err != nil {
		return nil, err
	}
	if canon := normalizeSemver(minimum); !semver.IsValid(canon) {
		return nil, fmt.Errorf("parameter \"version\" %q is not a valid version", minimum)
	}
	args, err := params.StringSlice("args")
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		args = []string{"--version"}
	}

	return &versionAtLeast{binary: binary, args: args, minimum: minimum}, nil
}

func (p *versionAtLeast) Describe() string {
	return fmt.Sprintf("%s version is below %s", p.binary, p.minimum)
}

func (p *versionAtLeast) Evaluate(ctx context.Context, run RunContext) (bool, string, error) {
	if _, err := run.Runner.LookPath(p.binary); err != nil {
		// No binary at all means the step should run.
		return true, "", nil
	}

	result, err := run.Runner.Run(ctx, ports.ExecSpec{
		Command: p.binary,
		Args:    p.args,
		Env:     run.EnvSlice(),
	})
	if err != nil {
		return false, "", fmt.Errorf("%s: %w", p.binary, err)
	}

	output := result.Stdout
	if strings.TrimSpace(output) == "" {
		output = result.Stderr
	}
	match := versionPattern.FindStringSubmatch(output)
	if match == nil {
		return false, "", fmt.Errorf("%s: no version in output %q", p.binary, strings.TrimSpace(output))
	}

	current := normalizeSemver(match[1])
	wanted := normalizeSemver(p.minimum)
	if semver.Compare(current, wanted) >= 0 {
		return false, fmt.Sprintf("%s %s already satisfies >= %s", p.binary, match[1], p.minimum), nil
	}
	return true, "", nil
}

// normalizeSemver coerces loose version strings ("1.2", "1.2.3") into
// the canonical "vX.Y.Z" form x/mod/semver expects.
func normalizeSemver(version string) string {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	parts := strings.Split(version, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return "v" + strings.Join(parts[:3], ".")
}
