package sched

// TaskID identifies a slot in the executor's task table.
type TaskID uint8

// MaxTasks is the capacity of the task table, fixed at build time to fit the
// target's RAM budget.
const MaxTasks = 32

// Poll is the outcome of resuming a task.
type Poll uint8

const (
	// Pending means the task registered exactly one wait and suspended.
	Pending Poll = iota
	// Done means the task finished; its slot becomes inert.
	Done
)

func (p Poll) String() string {
	switch p {
	case Pending:
		return "Pending"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// Task is a resumable computation. Poll runs the task from where it last
// suspended up to its next suspension point, which must be a wait registered
// through cx, or to completion. A task that never returns from Poll starves
// every other task.
type Task interface {
	Poll(cx *Context) Poll
}

// TaskFunc adapts a function to Task. The function keeps its own resumption
// state, usually in captured variables.
type TaskFunc func(cx *Context) Poll

func (f TaskFunc) Poll(cx *Context) Poll { return f(cx) }

// Step is one stage of a Stages task.
//
// Returning Pending suspends the task; it resumes at the next step once the
// wait is satisfied. Returning Done moves straight on to the next step within
// the same poll.
type Step func(cx *Context) Poll

// Stages is a task made of steps run in order, each suspension point
// separating two steps.
type Stages struct {
	steps []Step
	at    int
}

// NewStages builds a task from steps.
func NewStages(steps ...Step) *Stages {
	return &Stages{steps: steps}
}

// Poll implements Task.
func (s *Stages) Poll(cx *Context) Poll {
	for s.at < len(s.steps) {
		step := s.steps[s.at]
		s.at++
		if step(cx) == Pending {
			return Pending
		}
	}
	return Done
}

// Remaining returns the number of steps not yet started.
func (s *Stages) Remaining() int { return len(s.steps) - s.at }
