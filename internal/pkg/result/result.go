// internal/pkg/result/result.go
package result

import "strings"

type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
)

// Result is the outcome of a command that did not fail. A warning status means the
// command committed but something was degraded or skipped along the way.
type Result struct {
	Status   Status   `json:"status"`
	Summary  string   `json:"summary"`
	Warnings []string `json:"warnings,omitempty"`
}

func Success(summary string) *Result {
	return &Result{Status: StatusSuccess, Summary: summary}
}

func Warning(summary string, warnings ...string) *Result {
	return &Result{Status: StatusWarning, Summary: summary, Warnings: warnings}
}

// Warn appends a warning and downgrades the status.
func (r *Result) Warn(msg string) *Result {
	r.Warnings = append(r.Warnings, msg)
	r.Status = StatusWarning
	return r
}

func (r *Result) OK() bool {
	return r.Status == StatusSuccess
}

// Message renders the summary followed by any warnings.
func (r *Result) Message() string {
	if len(r.Warnings) == 0 {
		return r.Summary
	}
	return r.Summary + " (" + strings.Join(r.Warnings, "; ") + ")"
}
