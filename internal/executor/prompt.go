package executor

import (
	"fmt"
	"strings"

	"github.com/marcus/macot/internal/taskfile"
)

// BuildBatchPrompt renders the literal batch-prompt template from
// spec.md §4.3.3. When designPath is empty, the header becomes
// "Below is the task list for <feature>." and the design file's
// @-include line is omitted.
func BuildBatchPrompt(feature, designPath, tasksPath string, batch []taskfile.TaskEntry) string {
	var b strings.Builder
	if designPath != "" {
		fmt.Fprintf(&b, "Below are the design specifications and task list for %s.\n\n", feature)
		fmt.Fprintf(&b, "@%s\n", designPath)
	} else {
		fmt.Fprintf(&b, "Below is the task list for %s.\n\n", feature)
	}
	fmt.Fprintf(&b, "@%s\n\n", tasksPath)
	b.WriteString("Implement the tasks in order.\n")

	numbers := make([]string, len(batch))
	for i, t := range batch {
		numbers[i] = t.Number
	}
	fmt.Fprintf(&b, "Execute Tasks %s. After completing each task, Mark them as finished in the task file.", strings.Join(numbers, ", "))
	return b.String()
}

// FormatBlocked renders the diagnostic message for a Blocked schedule
// result, naming each blocked task and its missing deps and noting a
// possible cycle when detected.
func FormatBlocked(blocked []taskfile.BlockedTask, hasCycle bool) string {
	var b strings.Builder
	b.WriteString("blocked: no runnable tasks remain\n")
	for _, t := range blocked {
		fmt.Fprintf(&b, "  task %s missing deps: %s\n", t.Number, strings.Join(t.MissingDeps, ", "))
	}
	if hasCycle {
		b.WriteString("a dependency cycle is suspected among the blocked tasks")
	}
	return b.String()
}
