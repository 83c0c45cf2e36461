// Package outcome carries the result status of each pipeline step so that
// degradations are reported instead of hidden.
package outcome

import (
	"fmt"

	"github.com/listenupapp/liveplan/internal/errors"
)

// Status is the result of one step.
type Status string

// Status constants.
const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
)

// Degradation reports whether s is Degraded or Failed.
func (s Status) Degradation() bool {
	return s == StatusDegraded || s == StatusFailed
}

// Reason explains a non-OK status.
type Reason string

// Reasons. The first four correspond to the pipeline error codes.
const (
	ReasonSourceUnavailable Reason = "source_unavailable"
	ReasonSchemaMismatch    Reason = "schema_mismatch"
	ReasonEmptyResult       Reason = "empty_result"
	ReasonRenderFailed      Reason = "render_failed"
	ReasonFallbackUsed      Reason = "fallback_used"
	ReasonMissingMetric     Reason = "missing_metric"
)

// Code maps a reason onto the error taxonomy.
func (r Reason) Code() errors.Code {
	switch r {
	case ReasonSourceUnavailable:
		return errors.CodeSourceUnavailable
	case ReasonSchemaMismatch:
		return errors.CodeSchemaMismatch
	case ReasonEmptyResult, ReasonMissingMetric:
		return errors.CodeEmptyResult
	case ReasonRenderFailed:
		return errors.CodeRenderFailed
	default:
		return errors.CodeInternal
	}
}

// ReasonFor derives a reason from a coded error.
func ReasonFor(err error) Reason {
	switch errors.CodeOf(err) {
	case errors.CodeSourceUnavailable, errors.CodeNotFound:
		return ReasonSourceUnavailable
	case errors.CodeSchemaMismatch, errors.CodeValidation:
		return ReasonSchemaMismatch
	case errors.CodeEmptyResult:
		return ReasonEmptyResult
	case errors.CodeRenderFailed:
		return ReasonRenderFailed
	default:
		return ReasonFallbackUsed
	}
}

// Result pairs a value with the status it was produced under. Degraded and
// Failed results still carry a usable fallback value; Skipped results carry
// the zero value.
type Result[T any] struct {
	Value  T
	Status Status
	Reason Reason
	Err    error
}

// Ok wraps a value produced from real data.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusOK}
}

// Degraded wraps a value produced with substituted data.
func Degraded[T any](v T, reason Reason, err error) Result[T] {
	return Result[T]{Value: v, Status: StatusDegraded, Reason: reason, Err: err}
}

// Failed wraps the documented fallback value of a step that could not run.
func Failed[T any](fallback T, reason Reason, err error) Result[T] {
	return Result[T]{Value: fallback, Status: StatusFailed, Reason: reason, Err: err}
}

// FromError wraps the fallback value of a step that returned err. Degradable
// codes yield a Degraded result; anything else is Failed.
func FromError[T any](fallback T, err error) Result[T] {
	if errors.CodeOf(err).Degradable() {
		return Degraded(fallback, ReasonFor(err), err)
	}
	return Failed(fallback, ReasonFor(err), err)
}

// Skipped reports a step with nothing to compute.
func Skipped[T any](reason Reason) Result[T] {
	return Result[T]{Status: StatusSkipped, Reason: reason}
}

// OK returns true if the value came from real data.
func (r Result[T]) OK() bool {
	return r.Status == StatusOK
}

// Strict returns the value when the status is OK or Skipped, and an error
// otherwise.
func (r Result[T]) Strict() (T, error) {
	if r.Status == StatusOK || r.Status == StatusSkipped {
		return r.Value, nil
	}
	return r.Value, r.Error()
}

// Error returns a coded error describing a non-OK result, or nil.
func (r Result[T]) Error() error {
	if r.Status == StatusOK {
		return nil
	}
	msg := fmt.Sprintf("%s: %s", r.Status, r.Reason)
	if r.Err != nil {
		return errors.Wrap(r.Err, r.Reason.Code(), msg)
	}
	return &errors.Error{Code: r.Reason.Code(), Message: msg}
}

// Note records the outcome of one named step.
func (r Result[T]) Note(stage, subject string) Note {
	n := Note{Stage: stage, Subject: subject, Status: r.Status, Reason: r.Reason}
	if r.Err != nil {
		n.Detail = r.Err.Error()
	}
	return n
}
