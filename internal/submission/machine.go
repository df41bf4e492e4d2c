package submission

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/procura/backend/internal/models"
)

// Store is the slice of persistence the state machine needs.
// *db.Store satisfies it.
type Store interface {
	ListTasks(ctx context.Context, submissionID uuid.UUID) ([]models.SubmissionTask, error)
	MarkTaskCompleted(ctx context.Context, taskID uuid.UUID, completed bool, userID *uuid.UUID) error
	UnlockTask(ctx context.Context, taskID uuid.UUID) error
	ListApprovalSteps(ctx context.Context, submissionID uuid.UUID) ([]models.ApprovalStep, error)
	MarkStepApproved(ctx context.Context, stepID uuid.UUID, approverID uuid.UUID, notes string) error
	SetApprovalStatus(ctx context.Context, submissionID uuid.UUID, status string) error
}

// Machine runs the two sub-machines on one submission: the task
// dependency graph and the sequential approval chain.
type Machine struct {
	store Store
}

func NewMachine(store Store) *Machine {
	return &Machine{store: store}
}

// SetTaskCompletion marks a task completed (or un-completed) and then
// recomputes the dependency graph. Completing a locked task fails with
// *TaskLockedError. Unlocking is monotonic: a previously unlocked task
// is never re-locked, even if a dependency is later un-completed.
func (m *Machine) SetTaskCompletion(ctx context.Context, submissionID, taskID uuid.UUID, completed bool, userID uuid.UUID) error {
	tasks, err := m.store.ListTasks(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	var target *models.SubmissionTask
	for i := range tasks {
		if tasks[i].ID == taskID {
			target = &tasks[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("task %s not found on submission %s", taskID, submissionID)
	}

	if completed && target.Locked {
		return &TaskLockedError{TaskID: target.ID, Title: target.Title}
	}

	var by *uuid.UUID
	if completed {
		by = &userID
	}
	if err := m.store.MarkTaskCompleted(ctx, taskID, completed, by); err != nil {
		return fmt.Errorf("updating task: %w", err)
	}

	target.Completed = completed
	return m.unlockDependentTasks(ctx, tasks)
}

// UnlockDependentTasks recomputes which locked tasks are now eligible
// to unlock. Safe to re-run at any time.
func (m *Machine) UnlockDependentTasks(ctx context.Context, submissionID uuid.UUID) error {
	tasks, err := m.store.ListTasks(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}
	return m.unlockDependentTasks(ctx, tasks)
}

func (m *Machine) unlockDependentTasks(ctx context.Context, tasks []models.SubmissionTask) error {
	completed := make(map[int]bool, len(tasks))
	for _, t := range tasks {
		if t.Completed {
			completed[t.Position] = true
		}
	}

	for _, t := range tasks {
		if !t.Locked {
			continue
		}
		deps, ok := taskDeps[t.Position]
		if !ok {
			continue
		}
		ready := true
		for _, dep := range deps {
			if !completed[dep] {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}
		if err := m.store.UnlockTask(ctx, t.ID); err != nil {
			return fmt.Errorf("unlocking task %q: %w", t.Title, err)
		}
		log.Printf("[Submission] Unlocked task %q (submission=%s)", t.Title, t.SubmissionID)
	}
	return nil
}

// ApproveStep approves the named step for a submission. Approving an
// already-approved step is an idempotent no-op. Approving out of order
// fails with *SequentialOrderViolation and leaves the step set
// unchanged. On success the submission's approval_status summary is
// recomputed: "complete" once every step is approved, otherwise
// "{step_name}_approved".
func (m *Machine) ApproveStep(ctx context.Context, submissionID uuid.UUID, stepName string, approverID uuid.UUID, notes string) error {
	steps, err := m.store.ListApprovalSteps(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("listing approval steps: %w", err)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepOrder < steps[j].StepOrder })

	var target *models.ApprovalStep
	for i := range steps {
		if steps[i].StepName == stepName {
			target = &steps[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("approval step %q not found on submission %s", stepName, submissionID)
	}

	if target.Status == models.StepApproved {
		return nil
	}

	var pending []string
	for _, s := range steps {
		if s.StepOrder < target.StepOrder && s.Status != models.StepApproved {
			pending = append(pending, s.StepName)
		}
	}
	if len(pending) > 0 {
		return &SequentialOrderViolation{Step: stepName, Pending: pending}
	}

	if err := m.store.MarkStepApproved(ctx, target.ID, approverID, notes); err != nil {
		return fmt.Errorf("approving step: %w", err)
	}

	allApproved := true
	for _, s := range steps {
		if s.ID != target.ID && s.Status != models.StepApproved {
			allApproved = false
			break
		}
	}

	status := stepName + "_approved"
	if allApproved {
		status = "complete"
	}
	if err := m.store.SetApprovalStatus(ctx, submissionID, status); err != nil {
		return fmt.Errorf("updating approval status: %w", err)
	}

	log.Printf("[Submission] Step %q approved (submission=%s, approval_status=%s)", stepName, submissionID, status)
	return nil
}
