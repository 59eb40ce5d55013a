package project

import (
	"errors"
	"fmt"
	"io"
)

// Phase names one of the two passes over a project's dependencies.
type Phase string

const (
	PhaseFetch   Phase = "fetch"
	PhaseResolve Phase = "resolve"
)

// Status is the result of one dependency in one phase.
type Status int

const (
	// Pending is the status passed to Reporter.Start.
	Pending Status = iota
	// Fetched means the artifact was transferred into the cache.
	Fetched
	// Cached means the artifact was already present and nothing was transferred.
	Cached
	// AlreadyFetched means an earlier dependency in the same run fetched the
	// same source artifact.
	AlreadyFetched
	Resolved
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fetched:
		return "fetched"
	case Cached:
		return "cached"
	case AlreadyFetched:
		return "already fetched"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome records what happened to one dependency. Index is 1-based and
// follows declaration order.
type Outcome struct {
	Phase  Phase
	Index  int
	Name   string
	Status Status
	Err    error
}

// Report is the ordered list of outcomes of one phase.
type Report []Outcome

// Failed returns the number of outcomes with status Failed.
func (r Report) Failed() int {
	n := 0
	for _, o := range r {
		if o.Status == Failed {
			n++
		}
	}
	return n
}

// Errors returns the errors of the failed outcomes, in order.
func (r Report) Errors() []error {
	var out []error
	for _, o := range r {
		if o.Err != nil {
			out = append(out, o.Err)
		}
	}
	return out
}

// Err joins the errors of the failed outcomes. It is nil when nothing failed.
func (r Report) Err() error {
	return errors.Join(r.Errors()...)
}

// Reporter receives per-dependency progress as a phase runs. Start is not
// called for dependencies skipped as AlreadyFetched.
type Reporter interface {
	Begin(phase Phase, total int)
	Start(o Outcome)
	Done(o Outcome)
}

// NopReporter discards all progress.
type NopReporter struct{}

func (NopReporter) Begin(Phase, int) {}
func (NopReporter) Start(Outcome)    {}
func (NopReporter) Done(Outcome)     {}

// TextReporter writes one plain line per event.
type TextReporter struct {
	W io.Writer
}

var _ Reporter = &TextReporter{}

func (r *TextReporter) Begin(phase Phase, total int) {
	switch phase {
	case PhaseFetch:
		fmt.Fprintf(r.W, "Fetching %d dependencies:\n", total)
	case PhaseResolve:
		fmt.Fprintf(r.W, "Resolving %d dependencies:\n", total)
	}
}

func (r *TextReporter) Start(o Outcome) {
	switch o.Phase {
	case PhaseFetch:
		fmt.Fprintf(r.W, "%d-%s : Fetching...\n", o.Index, o.Name)
	case PhaseResolve:
		fmt.Fprintf(r.W, "%d-%s : Resolving...\n", o.Index, o.Name)
	}
}

func (r *TextReporter) Done(o Outcome) {
	fmt.Fprintf(r.W, "%d-%s : %s\n", o.Index, o.Name, DoneMessage(o))
}

// DoneMessage is the text shown after the "<index>-<name> : " prefix when a
// dependency finishes.
func DoneMessage(o Outcome) string {
	switch o.Status {
	case Fetched, Cached:
		return "Fetched."
	case AlreadyFetched:
		return "Already fetched."
	case Resolved:
		return "Resolved."
	case Failed:
		return fmt.Sprintf("Failed :: %v.", o.Err)
	default:
		return o.Status.String()
	}
}
