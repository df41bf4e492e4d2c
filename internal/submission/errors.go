package submission

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TaskLockedError is returned when a caller tries to complete a task
// whose dependencies have not been finished yet.
type TaskLockedError struct {
	TaskID uuid.UUID
	Title  string
}

func (e *TaskLockedError) Error() string {
	return fmt.Sprintf("task %q is locked until its dependencies are completed", e.Title)
}

// SequentialOrderViolation is returned when an approval step is
// approved before every step with a smaller order.
type SequentialOrderViolation struct {
	Step    string
	Pending []string
}

func (e *SequentialOrderViolation) Error() string {
	return fmt.Sprintf("cannot approve step %q before: %s", e.Step, strings.Join(e.Pending, ", "))
}
