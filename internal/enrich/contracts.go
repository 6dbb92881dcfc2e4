// Package enrich provides the optional AI summary capability. It is
// best-effort by contract: any failure degrades to an Unavailable result
// and never fails the pipeline.
package enrich

import "context"

// Result is the typed outcome of a summary attempt: either Text, or
// Unavailable with a human-readable reason.
type Result struct {
	Text        string
	Unavailable bool
	// Disabled marks results from the no-op summarizer: no attempt was
	// made, as opposed to an attempt that failed.
	Disabled bool
	Reason   string
}

// Summarizer is the injectable capability the pipeline depends on.
type Summarizer interface {
	Summarize(ctx context.Context, text string) Result
}

// Disabled is the no-op summarizer used when no API key is configured.
type Disabled struct{}

func (Disabled) Summarize(context.Context, string) Result {
	return Result{Unavailable: true, Disabled: true, Reason: "enrichment disabled"}
}
