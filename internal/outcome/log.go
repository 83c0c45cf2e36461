package outcome

import (
	"fmt"
	"slices"
	"strings"

	"github.com/listenupapp/liveplan/internal/errors"
)

// Note is one entry of the run's outcome log.
type Note struct {
	Stage   string `json:"stage"`
	Subject string `json:"subject"`
	Status  Status `json:"status"`
	Reason  Reason `json:"reason,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// String renders the note on one line.
func (n Note) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s: %s", n.Stage, n.Subject, n.Status)
	if n.Reason != "" {
		fmt.Fprintf(&b, " (%s)", n.Reason)
	}
	if n.Detail != "" {
		b.WriteString(": ")
		b.WriteString(n.Detail)
	}
	return b.String()
}

// Log collects notes across a run. A run is single threaded, so Log is not
// safe for concurrent use.
type Log struct {
	notes []Note
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{}
}

// Add appends a note.
func (l *Log) Add(n Note) {
	l.notes = append(l.notes, n)
}

// AddAll appends notes in order.
func (l *Log) AddAll(notes ...Note) {
	l.notes = append(l.notes, notes...)
}

// Degrade records a degraded step.
func (l *Log) Degrade(stage, subject string, reason Reason, detail string) {
	l.Add(Note{Stage: stage, Subject: subject, Status: StatusDegraded, Reason: reason, Detail: detail})
}

// Skip records a skipped step.
func (l *Log) Skip(stage, subject string, reason Reason, detail string) {
	l.Add(Note{Stage: stage, Subject: subject, Status: StatusSkipped, Reason: reason, Detail: detail})
}

// Notes returns all notes in insertion order.
func (l *Log) Notes() []Note {
	return slices.Clone(l.notes)
}

// Degradations returns the Degraded and Failed notes.
func (l *Log) Degradations() []Note {
	var out []Note
	for _, n := range l.notes {
		if n.Status.Degradation() {
			out = append(out, n)
		}
	}
	return out
}

// Count returns the number of notes with the given status.
func (l *Log) Count(status Status) int {
	count := 0
	for _, n := range l.notes {
		if n.Status == status {
			count++
		}
	}
	return count
}

// Err joins every degradation into one error, or returns nil.
func (l *Log) Err() error {
	var errs []error
	for _, n := range l.Degradations() {
		errs = append(errs, &errors.Error{Code: n.Reason.Code(), Message: n.String()})
	}
	return errors.Join(errs...)
}

// Status summarizes the log: Failed beats Degraded beats OK.
func (l *Log) Status() Status {
	status := StatusOK
	for _, n := range l.notes {
		switch n.Status {
		case StatusFailed:
			return StatusFailed
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}
