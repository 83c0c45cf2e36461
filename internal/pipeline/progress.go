package pipeline

import "sync"

// Phase is a pipeline stage.
type Phase string

// Phase constants in execution order.
const (
	PhaseLoading      Phase = "loading"
	PhaseSessions     Phase = "synthesizing"
	PhaseAggregating  Phase = "aggregating"
	PhaseRecommending Phase = "recommending"
	PhaseExporting    Phase = "exporting"
	PhaseCharting     Phase = "charting"
	PhaseReporting    Phase = "reporting"
	PhaseBundling     Phase = "bundling"
	PhaseComplete     Phase = "complete"
)

// Phases returns the phases in execution order.
func Phases() []Phase {
	return []Phase{
		PhaseLoading, PhaseSessions, PhaseAggregating, PhaseRecommending,
		PhaseExporting, PhaseCharting, PhaseReporting, PhaseBundling, PhaseComplete,
	}
}

// Progress is a snapshot of a run.
type Progress struct {
	RunID        string
	Phase        Phase
	Step         int
	Steps        int
	Degradations int
}

// ProgressTracker tracks and reports run progress.
type ProgressTracker struct {
	callback func(*Progress)
	progress Progress
	mu       sync.RWMutex
}

// NewProgressTracker creates a new progress tracker. callback may be nil; it
// is called synchronously on every change.
func NewProgressTracker(runID string, callback func(*Progress)) *ProgressTracker {
	return &ProgressTracker{
		callback: callback,
		progress: Progress{
			RunID: runID,
			Steps: len(Phases()),
		},
	}
}

// SetPhase moves to phase.
func (p *ProgressTracker) SetPhase(phase Phase) {
	p.mu.Lock()
	p.progress.Phase = phase
	p.progress.Step++
	snapshot := p.progress
	p.mu.Unlock()

	p.notify(snapshot)
}

// AddDegradations records degraded steps of the current phase.
func (p *ProgressTracker) AddDegradations(n int) {
	if n == 0 {
		return
	}
	p.mu.Lock()
	p.progress.Degradations += n
	snapshot := p.progress
	p.mu.Unlock()

	p.notify(snapshot)
}

// Get returns current progress.
func (p *ProgressTracker) Get() Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.progress
}

func (p *ProgressTracker) notify(snapshot Progress) {
	if p.callback != nil {
		p.callback(&snapshot)
	}
}
