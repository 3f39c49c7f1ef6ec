package evolution

import (
	"strconv"
	"strings"
	"time"

	"github.com/harrison/autopilot/internal/models"
)

// Facts are the observable properties of a run that rule conditions test.
// Values are float64, string or bool.
type Facts map[string]interface{}

// RunFacts derives the facts for a planned and executed run. exec may be nil
// when execution has not happened yet.
func RunFacts(plan *models.Plan, exec *models.ExecutionResult) Facts {
	facts := Facts{}
	if plan == nil {
		return facts
	}

	taskCount := len(plan.Tasks)
	facts["task_count"] = float64(taskCount)
	facts["complexity"] = string(complexityFor(taskCount, 0))
	facts["goal_complexity"] = goalComplexity(taskCount)

	if exec == nil {
		return facts
	}

	seconds := exec.TotalDuration.Seconds()
	facts["execution_time"] = seconds
	facts["complexity"] = string(complexityFor(taskCount, seconds))
	facts["task_failure"] = exec.FailedTasks > 0
	facts["success_rate"] = exec.SuccessRate()

	if n := len(exec.TaskExecutions); n > 0 {
		facts["failure_rate"] = float64(exec.FailedTasks) / float64(n)
		facts["avg_task_time"] = (exec.TotalDuration / time.Duration(n)).Seconds()
	}

	return facts
}

func goalComplexity(taskCount int) string {
	switch {
	case taskCount > 10:
		return "high"
	case taskCount > 5:
		return "medium"
	default:
		return "low"
	}
}

// EvaluateCondition tests a rule condition against facts. Supported forms:
//
//	always
//	<fact>                    true when the fact is true or a positive number
//	<fact> <op> <value>       op is one of > >= < <= == !=
//
// Numbers compare numerically; anything else compares as a string. A missing
// fact or malformed condition evaluates to false.
func EvaluateCondition(condition string, facts Facts) bool {
	fields := strings.Fields(condition)
	switch len(fields) {
	case 1:
		if fields[0] == "always" {
			return true
		}
		return truthy(facts[fields[0]])
	case 3:
		value, ok := facts[fields[0]]
		if !ok {
			return false
		}
		return compare(value, fields[1], fields[2])
	default:
		return false
	}
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val > 0
	case string:
		return val != ""
	default:
		return false
	}
}

func compare(fact interface{}, op, literal string) bool {
	if num, ok := fact.(float64); ok {
		want, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return false
		}
		switch op {
		case ">":
			return num > want
		case ">=":
			return num >= want
		case "<":
			return num < want
		case "<=":
			return num <= want
		case "==":
			return num == want
		case "!=":
			return num != want
		}
		return false
	}

	var got string
	switch val := fact.(type) {
	case string:
		got = val
	case bool:
		got = strconv.FormatBool(val)
	default:
		return false
	}

	switch op {
	case "==":
		return got == literal
	case "!=":
		return got != literal
	}
	return false
}
