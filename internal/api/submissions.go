package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/procura/backend/internal/auth"
	"github.com/procura/backend/internal/models"
	"github.com/procura/backend/internal/submission"
)

func parseID(c echo.Context, param string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(param))
}

func (s *Server) handleListSubmissions(c echo.Context) error {
	subs, err := s.Store.ListSubmissions(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"submissions": subs, "count": len(subs)})
}

type createSubmissionRequest struct {
	OpportunityID uuid.UUID `json:"opportunity_id"`
	Title         string    `json:"title"`
	Portal        string    `json:"portal"`
	Notes         string    `json:"notes"`
}

// handleCreateSubmission creates a submission by hand. It goes through
// the same store path the pipeline uses, so the workflow seeding and
// the one-live-submission rule apply identically.
func (s *Server) handleCreateSubmission(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	var req createSubmissionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	opp, err := s.Store.GetOpportunity(ctx, req.OpportunityID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if opp == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Opportunity not found"})
	}

	title := req.Title
	if title == "" {
		title = opp.Title
	}

	id, err := s.Store.CreateSubmission(ctx, models.Submission{
		OpportunityID: opp.ID,
		OwnerID:       userID,
		Title:         title,
		Portal:        req.Portal,
		Status:        models.SubmissionDraft,
		DueDate:       opp.DueDate,
		Notes:         req.Notes,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, map[string]any{"id": id})
}

// submissionDetail is the full workflow view: the submission plus its
// tasks and approval steps.
type submissionDetail struct {
	models.Submission
	Tasks         []models.SubmissionTask `json:"tasks"`
	ApprovalSteps []models.ApprovalStep   `json:"approval_steps"`
}

func (s *Server) handleGetSubmission(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid submission ID"})
	}

	sub, err := s.Store.GetSubmission(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if sub == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Submission not found"})
	}

	tasks, err := s.Store.ListTasks(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	steps, err := s.Store.ListApprovalSteps(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, submissionDetail{Submission: *sub, Tasks: tasks, ApprovalSteps: steps})
}

type updateTaskRequest struct {
	Completed bool `json:"completed"`
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	submissionID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid submission ID"})
	}
	taskID, err := parseID(c, "taskID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid task ID"})
	}

	var req updateTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := s.Machine.SetTaskCompletion(ctx, submissionID, taskID, req.Completed, userID); err != nil {
		var locked *submission.TaskLockedError
		if errors.As(err, &locked) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": locked.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	tasks, err := s.Store.ListTasks(ctx, submissionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"tasks": tasks})
}

type approveStepRequest struct {
	StepName string `json:"step_name"`
	Notes    string `json:"notes"`
}

func (s *Server) handleApproveStep(c echo.Context) error {
	ctx := c.Request().Context()
	approverID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	submissionID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid submission ID"})
	}

	var req approveStepRequest
	if err := c.Bind(&req); err != nil || req.StepName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "step_name is required"})
	}

	if err := s.Machine.ApproveStep(ctx, submissionID, req.StepName, approverID, req.Notes); err != nil {
		var outOfOrder *submission.SequentialOrderViolation
		if errors.As(err, &outOfOrder) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": outOfOrder.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	sub, err := s.Store.GetSubmission(ctx, submissionID)
	if err != nil || sub == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "approved"})
	}
	return c.JSON(http.StatusOK, map[string]string{"approval_status": sub.ApprovalStatus})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleRejectSubmission(c echo.Context) error {
	ctx := c.Request().Context()
	submissionID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid submission ID"})
	}

	var req rejectRequest
	_ = c.Bind(&req)

	sub, err := s.Store.GetSubmission(ctx, submissionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if sub == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Submission not found"})
	}
	if models.TerminalSubmissionStatus(sub.Status) {
		return c.JSON(http.StatusConflict, map[string]string{"error": "Submission is already " + sub.Status})
	}

	if err := s.Store.SetSubmissionStatus(ctx, submissionID, models.SubmissionRejected); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if err := s.Store.SetApprovalStatus(ctx, submissionID, models.SubmissionRejected); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": models.SubmissionRejected})
}

// handleFinalizeSubmission marks a fully-approved submission as
// submitted and opens its follow-up so reconciliation picks it up.
func (s *Server) handleFinalizeSubmission(c echo.Context) error {
	ctx := c.Request().Context()
	submissionID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid submission ID"})
	}

	sub, err := s.Store.GetSubmission(ctx, submissionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if sub == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Submission not found"})
	}
	if models.TerminalSubmissionStatus(sub.Status) || sub.Status == models.SubmissionSubmitted {
		return c.JSON(http.StatusConflict, map[string]string{"error": "Submission is already " + sub.Status})
	}
	if sub.ApprovalStatus != "complete" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "All approval steps must be approved before finalizing"})
	}

	tasks, err := s.Store.ListTasks(ctx, submissionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	for _, t := range tasks {
		if !t.Completed {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Task not completed: " + t.Title})
		}
	}

	if err := s.Store.SetSubmissionStatus(ctx, submissionID, models.SubmissionSubmitted); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	followUpID, err := s.Store.CreateFollowUp(ctx, models.FollowUp{
		SubmissionID:  sub.ID,
		OpportunityID: sub.OpportunityID,
		AutoCheck:     true,
		NextCheckAt:   time.Now().UTC().Add(72 * time.Hour),
		AssignedTo:    &sub.OwnerID,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":       models.SubmissionSubmitted,
		"follow_up_id": followUpID,
	})
}
