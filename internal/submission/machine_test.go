package submission

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/procura/backend/internal/models"
)

// memStore is an in-memory Store for exercising the state machine.
type memStore struct {
	submissionID   uuid.UUID
	tasks          []models.SubmissionTask
	steps          []models.ApprovalStep
	approvalStatus string
}

func newMemStore() *memStore {
	s := &memStore{submissionID: uuid.New()}
	for _, seed := range DefaultTasks() {
		s.tasks = append(s.tasks, models.SubmissionTask{
			ID:           uuid.New(),
			SubmissionID: s.submissionID,
			Position:     seed.Position,
			Title:        seed.Title,
			Subtitle:     seed.Subtitle,
			Locked:       seed.Locked,
		})
	}
	for _, seed := range DefaultApprovalSteps() {
		s.steps = append(s.steps, models.ApprovalStep{
			ID:           uuid.New(),
			SubmissionID: s.submissionID,
			StepName:     seed.StepName,
			StepOrder:    seed.StepOrder,
			Status:       models.StepPending,
			ApproverRole: seed.ApproverRole,
		})
	}
	return s
}

func (s *memStore) ListTasks(ctx context.Context, submissionID uuid.UUID) ([]models.SubmissionTask, error) {
	out := make([]models.SubmissionTask, len(s.tasks))
	copy(out, s.tasks)
	return out, nil
}

func (s *memStore) MarkTaskCompleted(ctx context.Context, taskID uuid.UUID, completed bool, userID *uuid.UUID) error {
	for i := range s.tasks {
		if s.tasks[i].ID == taskID {
			s.tasks[i].Completed = completed
			s.tasks[i].CompletedBy = userID
			return nil
		}
	}
	return errors.New("task not found")
}

func (s *memStore) UnlockTask(ctx context.Context, taskID uuid.UUID) error {
	for i := range s.tasks {
		if s.tasks[i].ID == taskID {
			s.tasks[i].Locked = false
			return nil
		}
	}
	return errors.New("task not found")
}

func (s *memStore) ListApprovalSteps(ctx context.Context, submissionID uuid.UUID) ([]models.ApprovalStep, error) {
	out := make([]models.ApprovalStep, len(s.steps))
	copy(out, s.steps)
	return out, nil
}

func (s *memStore) MarkStepApproved(ctx context.Context, stepID uuid.UUID, approverID uuid.UUID, notes string) error {
	for i := range s.steps {
		if s.steps[i].ID == stepID {
			s.steps[i].Status = models.StepApproved
			s.steps[i].ApproverID = &approverID
			s.steps[i].Notes = notes
			return nil
		}
	}
	return errors.New("step not found")
}

func (s *memStore) SetApprovalStatus(ctx context.Context, submissionID uuid.UUID, status string) error {
	s.approvalStatus = status
	return nil
}

func (s *memStore) taskAt(position int) *models.SubmissionTask {
	for i := range s.tasks {
		if s.tasks[i].Position == position {
			return &s.tasks[i]
		}
	}
	return nil
}

func (s *memStore) complete(t *testing.T, m *Machine, position int) {
	t.Helper()
	task := s.taskAt(position)
	if err := m.SetTaskCompletion(context.Background(), s.submissionID, task.ID, true, uuid.New()); err != nil {
		t.Fatalf("completing task at position %d: %v", position, err)
	}
}

func TestSetTaskCompletion_LockedTaskRejected(t *testing.T) {
	store := newMemStore()
	m := NewMachine(store)

	legal := store.taskAt(TaskLegal)
	err := m.SetTaskCompletion(context.Background(), store.submissionID, legal.ID, true, uuid.New())

	var locked *TaskLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected *TaskLockedError, got %v", err)
	}
	if locked.Title != legal.Title {
		t.Errorf("error should carry the task title, got %q", locked.Title)
	}
	if store.taskAt(TaskLegal).Completed {
		t.Error("locked task must stay incomplete")
	}
}

func TestSetTaskCompletion_UnlocksDependents(t *testing.T) {
	store := newMemStore()
	m := NewMachine(store)

	store.complete(t, m, TaskChecklist)
	if !store.taskAt(TaskLegal).Locked {
		t.Fatal("legal review needs both checklist and upload; must stay locked")
	}

	store.complete(t, m, TaskUpload)
	if store.taskAt(TaskLegal).Locked {
		t.Fatal("legal review should unlock once checklist and upload complete")
	}
	if !store.taskAt(TaskFinance).Locked || !store.taskAt(TaskFinal).Locked {
		t.Error("finance and final review must stay locked until legal completes")
	}

	store.complete(t, m, TaskLegal)
	if store.taskAt(TaskFinance).Locked {
		t.Error("finance review should unlock after legal completes")
	}
	if !store.taskAt(TaskFinal).Locked {
		t.Error("final review also needs finance; must stay locked")
	}

	store.complete(t, m, TaskFinance)
	if store.taskAt(TaskFinal).Locked {
		t.Error("final review should unlock after legal and finance complete")
	}
}

func TestSetTaskCompletion_UnlockIsMonotonic(t *testing.T) {
	store := newMemStore()
	m := NewMachine(store)

	store.complete(t, m, TaskChecklist)
	store.complete(t, m, TaskUpload)
	if store.taskAt(TaskLegal).Locked {
		t.Fatal("legal should be unlocked")
	}

	// Un-complete a dependency. Legal must not re-lock.
	checklist := store.taskAt(TaskChecklist)
	if err := m.SetTaskCompletion(context.Background(), store.submissionID, checklist.ID, false, uuid.New()); err != nil {
		t.Fatalf("un-completing checklist: %v", err)
	}
	if store.taskAt(TaskLegal).Locked {
		t.Error("an unlocked task must never re-lock")
	}
}

func TestApproveStep_OutOfOrderRejected(t *testing.T) {
	store := newMemStore()
	m := NewMachine(store)

	err := m.ApproveStep(context.Background(), store.submissionID, "finance", uuid.New(), "")

	var violation *SequentialOrderViolation
	if !errors.As(err, &violation) {
		t.Fatalf("expected *SequentialOrderViolation, got %v", err)
	}
	if len(violation.Pending) != 1 || violation.Pending[0] != "legal" {
		t.Errorf("violation should name the pending steps, got %v", violation.Pending)
	}
	for _, step := range store.steps {
		if step.Status != models.StepPending {
			t.Errorf("out-of-order approval must leave all steps pending, %s is %s", step.StepName, step.Status)
		}
	}
	if store.approvalStatus != "" {
		t.Errorf("approval status must stay untouched, got %q", store.approvalStatus)
	}
}

func TestApproveStep_SequenceToComplete(t *testing.T) {
	store := newMemStore()
	m := NewMachine(store)
	officer := uuid.New()

	if err := m.ApproveStep(context.Background(), store.submissionID, "legal", officer, "ok"); err != nil {
		t.Fatalf("approving legal: %v", err)
	}
	if store.approvalStatus != "legal_approved" {
		t.Errorf("expected legal_approved, got %q", store.approvalStatus)
	}

	if err := m.ApproveStep(context.Background(), store.submissionID, "finance", officer, ""); err != nil {
		t.Fatalf("approving finance: %v", err)
	}
	if store.approvalStatus != "complete" {
		t.Errorf("expected complete after the last step, got %q", store.approvalStatus)
	}
}

func TestApproveStep_AlreadyApprovedIsNoOp(t *testing.T) {
	store := newMemStore()
	m := NewMachine(store)
	officer := uuid.New()

	if err := m.ApproveStep(context.Background(), store.submissionID, "legal", officer, ""); err != nil {
		t.Fatalf("approving legal: %v", err)
	}
	statusBefore := store.approvalStatus

	if err := m.ApproveStep(context.Background(), store.submissionID, "legal", uuid.New(), "again"); err != nil {
		t.Fatalf("re-approving legal should be a no-op, got %v", err)
	}
	if store.approvalStatus != statusBefore {
		t.Errorf("re-approval must not change approval status: %q -> %q", statusBefore, store.approvalStatus)
	}
	if store.steps[0].ApproverID == nil || *store.steps[0].ApproverID != officer {
		t.Error("the original approver must be preserved")
	}
}

func TestApproveStep_UnknownStep(t *testing.T) {
	store := newMemStore()
	m := NewMachine(store)

	if err := m.ApproveStep(context.Background(), store.submissionID, "security", uuid.New(), ""); err == nil {
		t.Fatal("expected an error for an unknown step name")
	}
}
