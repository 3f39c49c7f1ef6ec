package orchestrator

import (
	"time"

	"github.com/harrison/autopilot/internal/models"
)

// phaseLog is the append-only phase audit trail of one run. Records are
// never removed; a finished record only gains its completion time.
type phaseLog struct {
	runID   string
	records []models.PhaseRecord
	logger  Logger
	now     func() time.Time
}

func newPhaseLog(runID string, logger Logger, now func() time.Time) *phaseLog {
	return &phaseLog{runID: runID, logger: logger, now: now}
}

// start appends a running record for phase and returns its index.
func (l *phaseLog) start(phase models.Phase) int {
	l.records = append(l.records, models.PhaseRecord{
		Phase:     phase,
		Status:    models.PhaseRunning,
		StartedAt: l.now(),
	})
	if l.logger != nil {
		l.logger.LogPhaseStart(l.runID, phase)
	}
	return len(l.records) - 1
}

func (l *phaseLog) finish(i int, status models.PhaseStatus, err error) {
	rec := &l.records[i]
	if rec.IsTerminal() {
		return
	}
	end := l.now()
	rec.Status = status
	rec.CompletedAt = &end
	rec.Duration = end.Sub(rec.StartedAt)
	if err != nil {
		rec.Error = err.Error()
	}
	if l.logger != nil {
		l.logger.LogPhaseComplete(l.runID, *rec)
	}
}

func (l *phaseLog) complete(i int) {
	l.finish(i, models.PhaseCompleted, nil)
}

func (l *phaseLog) fail(i int, err error) {
	l.finish(i, models.PhaseFailed, err)
}

// skip records a phase that configuration turned off.
func (l *phaseLog) skip(phase models.Phase) {
	l.finish(l.start(phase), models.PhaseSkipped, nil)
}

// errorPhase appends the terminal error record.
func (l *phaseLog) errorPhase(err error) {
	l.fail(l.start(models.PhaseError), err)
}

// snapshot returns a copy of the records.
func (l *phaseLog) snapshot() []models.PhaseRecord {
	out := make([]models.PhaseRecord, len(l.records))
	copy(out, l.records)
	return out
}
