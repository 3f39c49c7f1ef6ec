// Package agents provides the built-in collaborators a run delegates to:
// intent classification, safety validation, planning, execution,
// reflection and optimization.
//
// All of them are deterministic heuristics. The executor simulates task
// outcomes through an OutcomeSource so callers control which tasks fail:
//
//	outcomes := agents.NewRandomOutcomes(0.85, 42)
//	exec := agents.NewSimulatedExecutor(outcomes, 50*time.Millisecond)
//
// # Planning
//
// The planner reads a Markdown task outline from the goal context when one
// is present. Top-level list items become tasks in order:
//
//   - Provision the staging database
//   - Deploy the API container
//   - Run smoke tests
//
// Without an outline the goal is split on sequencing words ("then", ";"),
// and a single-clause goal gets a three-step analyze/execute/validate plan.
package agents
