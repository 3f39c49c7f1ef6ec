package logger

import "github.com/harrison/autopilot/internal/models"

// MultiLogger fans every call out to a list of loggers in order.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines loggers, skipping nils.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) each(fn func(Logger)) {
	for _, l := range m.loggers {
		fn(l)
	}
}

func (m *MultiLogger) LogTrace(msg string) { m.each(func(l Logger) { l.LogTrace(msg) }) }
func (m *MultiLogger) LogDebug(msg string) { m.each(func(l Logger) { l.LogDebug(msg) }) }
func (m *MultiLogger) LogInfo(msg string)  { m.each(func(l Logger) { l.LogInfo(msg) }) }
func (m *MultiLogger) LogWarn(msg string)  { m.each(func(l Logger) { l.LogWarn(msg) }) }
func (m *MultiLogger) LogError(msg string) { m.each(func(l Logger) { l.LogError(msg) }) }

func (m *MultiLogger) LogPhaseStart(runID string, phase models.Phase) {
	m.each(func(l Logger) { l.LogPhaseStart(runID, phase) })
}

func (m *MultiLogger) LogPhaseComplete(runID string, rec models.PhaseRecord) {
	m.each(func(l Logger) { l.LogPhaseComplete(runID, rec) })
}

func (m *MultiLogger) LogTaskFailure(runID string, exec *models.TaskExecution) {
	m.each(func(l Logger) { l.LogTaskFailure(runID, exec) })
}

func (m *MultiLogger) LogRecovery(runID string, ev models.RecoveryEvent) {
	m.each(func(l Logger) { l.LogRecovery(runID, ev) })
}

func (m *MultiLogger) LogRunSummary(s models.RunSummary) {
	m.each(func(l Logger) { l.LogRunSummary(s) })
}

func (m *MultiLogger) LogEvolution(s models.EvolutionSummary) {
	m.each(func(l Logger) { l.LogEvolution(s) })
}
