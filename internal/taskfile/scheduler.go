package taskfile

// Mode selects the scheduling strategy.
type Mode int

const (
	// ModeDAG is the default: dependency-aware scheduling.
	ModeDAG Mode = iota
	// ModeSequential is the legacy first-uncompleted strategy,
	// ignoring dependency annotations entirely (P8 backward
	// compatibility).
	ModeSequential
)

// Outcome tags a ScheduleResult's variant.
type Outcome int

const (
	OutcomeRunnable Outcome = iota
	OutcomeBlocked
	OutcomeAllDone
)

// BlockedTask pairs a blocked task's number with its currently-missing
// dependency numbers.
type BlockedTask struct {
	Number       string
	MissingDeps  []string
}

// ScheduleResult is the tagged variant select_runnable returns.
type ScheduleResult struct {
	Outcome   Outcome
	Runnable  []TaskEntry   // valid when Outcome == OutcomeRunnable
	Blocked   []BlockedTask // valid when Outcome == OutcomeBlocked
	HasCycle  bool          // valid when Outcome == OutcomeBlocked
}

// SelectRunnable implements spec.md §4.3.2's select_runnable.
func SelectRunnable(tasks []TaskEntry, mode Mode) ScheduleResult {
	if mode == ModeSequential {
		return selectSequential(tasks)
	}
	return selectDAG(tasks)
}

func selectSequential(tasks []TaskEntry) ScheduleResult {
	var runnable []TaskEntry
	for _, t := range tasks {
		if !t.Completed {
			runnable = append(runnable, t)
		}
	}
	if len(runnable) == 0 {
		return ScheduleResult{Outcome: OutcomeAllDone}
	}
	return ScheduleResult{Outcome: OutcomeRunnable, Runnable: runnable}
}

func selectDAG(tasks []TaskEntry) ScheduleResult {
	done := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.Completed {
			done[t.Number] = true
		}
	}

	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.Number] = true
	}

	var runnable []TaskEntry
	var uncompleted []TaskEntry
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		uncompleted = append(uncompleted, t)
		if len(missingDeps(t, done)) == 0 {
			runnable = append(runnable, t)
		}
	}

	if len(runnable) > 0 {
		return ScheduleResult{Outcome: OutcomeRunnable, Runnable: runnable}
	}

	if len(uncompleted) == 0 {
		return ScheduleResult{Outcome: OutcomeAllDone}
	}

	blocked := make([]BlockedTask, 0, len(uncompleted))
	hasCycle := true
	for _, t := range uncompleted {
		missing := missingDeps(t, done)
		blocked = append(blocked, BlockedTask{Number: t.Number, MissingDeps: missing})
		for _, dep := range missing {
			// has_cycle is true iff every missing dep across all blocked
			// tasks refers to another known (uncompleted) task — i.e. no
			// "external" (unknown) missing dep exists.
			if !known[dep] || done[dep] {
				hasCycle = false
			}
		}
	}

	return ScheduleResult{Outcome: OutcomeBlocked, Blocked: blocked, HasCycle: hasCycle}
}

func missingDeps(t TaskEntry, done map[string]bool) []string {
	var missing []string
	for _, d := range t.Dependencies {
		if !done[d] {
			missing = append(missing, d)
		}
	}
	return missing
}
