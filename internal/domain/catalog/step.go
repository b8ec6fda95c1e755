// Package catalog holds the step catalog domain: the ordered, validated
// list of provisioning steps a run executes.
package catalog

import (
	"fmt"
	"strings"
	"time"
)

// Severity declares the policy for a step's failure: Fatal aborts the
// remaining run, Recoverable is recorded and execution continues.
type Severity string

const (
	// SeverityFatal aborts the entire run when the step fails.
	SeverityFatal Severity = "fatal"
	// SeverityRecoverable records the failure and continues with the
	// next step.
	SeverityRecoverable Severity = "recoverable"
)

// ParseSeverity parses a severity from its string form.
func ParseSeverity(value string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(SeverityFatal):
		return SeverityFatal, nil
	case string(SeverityRecoverable):
		return SeverityRecoverable, nil
	default:
		return "", fmt.Errorf("unknown severity %q (want %q or %q)", value, SeverityFatal, SeverityRecoverable)
	}
}

// String returns the string representation.
func (s Severity) String() string {
	return string(s)
}

// RunAs declares the effective identity a step's action executes under.
type RunAs string

const (
	// RunAsRoot executes the action as the elevated principal the engine
	// itself runs as.
	RunAsRoot RunAs = "root"
	// RunAsUser executes the action as the resolved invoking user, so
	// user-scoped files end up owned by that user.
	RunAsUser RunAs = "user"
)

// ParseRunAs parses a run-as identity from its string form.
func ParseRunAs(value string) (RunAs, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(RunAsRoot):
		return RunAsRoot, nil
	case string(RunAsUser):
		return RunAsUser, nil
	default:
		return "", fmt.Errorf("unknown run_as %q (want %q or %q)", value, RunAsRoot, RunAsUser)
	}
}

// String returns the string representation.
func (r RunAs) String() string {
	return string(r)
}

// ActionSpec names an action type and carries its raw, action-specific
// parameters. The action registry decodes and validates the params.
type ActionSpec struct {
	Type   string
	Params map[string]interface{}
}

// PreconditionSpec names a precondition type and its raw parameters.
// A step without a precondition is expected to be naturally idempotent.
type PreconditionSpec struct {
	Type   string
	Params map[string]interface{}
}

// Step is one named, ordered unit of provisioning work. Steps are
// immutable once the catalog is loaded.
type Step struct {
	ID           StepID
	Description  string
	Severity     Severity
	RunAs        RunAs
	Timeout      time.Duration
	Env          map[string]string
	Action       ActionSpec
	Precondition *PreconditionSpec
}

// HasPrecondition reports whether the step declares a precondition.
func (s Step) HasPrecondition() bool {
	return s.Precondition != nil
}

// Title returns the human-readable label for the step, deriving one
// from the id when no description was given.
func (s Step) Title() string {
	if s.Description != "" {
		return s.Description
	}
	return DeriveTitle(s.ID)
}
