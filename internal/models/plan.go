package models

import "time"

// Workflow is the execution template the planner selected for a goal.
type Workflow struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Plan is the planner's output: an ordered task list plus the selected workflow.
type Plan struct {
	Goal                   Goal          `json:"goal"`
	Tasks                  []PlannedTask `json:"tasks"`
	Workflow               Workflow      `json:"workflow"`
	TotalEstimatedDuration time.Duration `json:"total_estimated_duration"`
}

// TaskByID returns the planned task with the given ID.
func (p *Plan) TaskByID(id string) (PlannedTask, bool) {
	if p == nil {
		return PlannedTask{}, false
	}
	for _, t := range p.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return PlannedTask{}, false
}

// EstimatedTotal sums the estimated durations of all tasks.
func (p *Plan) EstimatedTotal() time.Duration {
	var total time.Duration
	for _, t := range p.Tasks {
		total += t.EstimatedDuration
	}
	return total
}
