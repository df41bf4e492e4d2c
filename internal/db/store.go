package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procura/backend/internal/models"
	"github.com/procura/backend/internal/submission"
)

// Store is the single persistence type. Every engine depends on its
// own narrow interface; *Store satisfies all of them.
type Store struct {
	Pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// --- opportunities ---

const opportunityColumns = `id, external_ref, source, title, agency, description, naics_code,
	set_aside, posted_date, due_date, estimated_value, status,
	fit_score, effort_score, urgency_score, ai_summary, url, created_at, updated_at`

func scanOpportunity(row pgx.Row) (models.Opportunity, error) {
	var o models.Opportunity
	err := row.Scan(&o.ID, &o.ExternalRef, &o.Source, &o.Title, &o.Agency, &o.Description,
		&o.NAICSCode, &o.SetAside, &o.PostedDate, &o.DueDate, &o.EstimatedValue, &o.Status,
		&o.FitScore, &o.EffortScore, &o.UrgencyScore, &o.AISummary, &o.URL, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (s *Store) GetOpportunity(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+opportunityColumns+` FROM opportunities WHERE id = $1`, id)
	o, err := scanOpportunity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting opportunity: %w", err)
	}
	return &o, nil
}

// ListOpportunities returns opportunities newest-first, optionally
// filtered by status. limit <= 0 means no limit.
func (s *Store) ListOpportunities(ctx context.Context, status string, limit int) ([]models.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing opportunities: %w", err)
	}
	defer rows.Close()

	var opps []models.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning opportunity: %w", err)
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

func (s *Store) SetOpportunityStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE opportunities SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("setting opportunity status: %w", err)
	}
	return nil
}

func (s *Store) UpdateOpportunityScores(ctx context.Context, id uuid.UUID, result models.QualificationResult) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE opportunities
		SET fit_score = $2, effort_score = $3, urgency_score = $4, ai_summary = $5, updated_at = NOW()
		WHERE id = $1`,
		id, result.FitScore, result.EffortScore, result.UrgencyScore, result.Summary)
	if err != nil {
		return fmt.Errorf("updating opportunity scores: %w", err)
	}
	return nil
}

// UpsertOpportunitiesByExternalRef inserts new opportunities and
// refreshes source-owned fields on existing ones, keyed by
// (source, external_ref). Score fields are never touched here: they
// belong to qualification. Returns the rows that were new.
func (s *Store) UpsertOpportunitiesByExternalRef(ctx context.Context, opps []models.Opportunity) ([]models.Opportunity, int, error) {
	var inserted []models.Opportunity
	updated := 0

	for _, o := range opps {
		// xmax = 0 distinguishes a fresh insert from a conflict update.
		row := s.Pool.QueryRow(ctx, `
			INSERT INTO opportunities
				(external_ref, source, title, agency, description, naics_code, set_aside,
				 posted_date, due_date, estimated_value, status, url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (source, external_ref) DO UPDATE SET
				title = EXCLUDED.title,
				agency = EXCLUDED.agency,
				description = EXCLUDED.description,
				naics_code = EXCLUDED.naics_code,
				set_aside = EXCLUDED.set_aside,
				posted_date = EXCLUDED.posted_date,
				due_date = EXCLUDED.due_date,
				estimated_value = EXCLUDED.estimated_value,
				url = EXCLUDED.url,
				updated_at = NOW()
			RETURNING id, (xmax = 0) AS is_insert`,
			o.ExternalRef, o.Source, o.Title, o.Agency, o.Description, o.NAICSCode, o.SetAside,
			o.PostedDate, o.DueDate, o.EstimatedValue, o.Status, o.URL)

		var id uuid.UUID
		var isInsert bool
		if err := row.Scan(&id, &isInsert); err != nil {
			return nil, 0, fmt.Errorf("upserting opportunity %s/%s: %w", o.Source, o.ExternalRef, err)
		}
		if isInsert {
			o.ID = id
			inserted = append(inserted, o)
		} else {
			updated++
		}
	}

	return inserted, updated, nil
}

func (s *Store) RecordDiscoveryRun(ctx context.Context, run models.DiscoveryRun) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO discovery_runs (started_at, completed_at, status, fetched, inserted, updated, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.StartedAt, run.CompletedAt, run.Status, run.Fetched, run.Inserted, run.Updated, run.Error)
	if err != nil {
		return fmt.Errorf("recording discovery run: %w", err)
	}
	return nil
}

func (s *Store) ListDiscoveryRuns(ctx context.Context, limit int) ([]models.DiscoveryRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, started_at, completed_at, status, fetched, inserted, updated, error
		FROM discovery_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing discovery runs: %w", err)
	}
	defer rows.Close()

	var runs []models.DiscoveryRun
	for rows.Next() {
		var r models.DiscoveryRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.CompletedAt, &r.Status, &r.Fetched, &r.Inserted, &r.Updated, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning discovery run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- qualification cache ---

func (s *Store) GetQualification(ctx context.Context, oppID uuid.UUID) (*models.QualificationResult, error) {
	var raw []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT result FROM llm_cache WHERE opportunity_id = $1`, oppID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading qualification cache: %w", err)
	}

	var result models.QualificationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding cached qualification: %w", err)
	}
	return &result, nil
}

func (s *Store) PutQualification(ctx context.Context, oppID uuid.UUID, result models.QualificationResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding qualification: %w", err)
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO llm_cache (opportunity_id, result) VALUES ($1, $2)
		ON CONFLICT (opportunity_id) DO UPDATE SET result = EXCLUDED.result, created_at = NOW()`,
		oppID, raw)
	if err != nil {
		return fmt.Errorf("writing qualification cache: %w", err)
	}
	return nil
}

// --- settings ---

const pipelineConfigKey = "pipeline_config"

// LoadPipelineConfig reads the pipeline config from system_settings,
// falling back to defaults when the row has never been written.
func (s *Store) LoadPipelineConfig(ctx context.Context) (models.PipelineConfig, error) {
	var raw []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT value FROM system_settings WHERE key = $1`, pipelineConfigKey).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultPipelineConfig(), nil
	}
	if err != nil {
		return models.PipelineConfig{}, fmt.Errorf("reading pipeline config: %w", err)
	}

	cfg := models.DefaultPipelineConfig()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return models.PipelineConfig{}, fmt.Errorf("decoding pipeline config: %w", err)
	}
	return cfg, nil
}

func (s *Store) SavePipelineConfig(ctx context.Context, cfg models.PipelineConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding pipeline config: %w", err)
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO system_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		pipelineConfigKey, raw)
	if err != nil {
		return fmt.Errorf("writing pipeline config: %w", err)
	}
	return nil
}

// --- company profile ---

func (s *Store) GetCompanyProfile(ctx context.Context) (models.CompanyProfile, error) {
	var p models.CompanyProfile
	var pastRaw []byte
	err := s.Pool.QueryRow(ctx, `
		SELECT company_name, naics_codes, certifications, set_aside_types, capabilities,
		       keywords, min_contract_value, max_contract_value, past_performance, preferred_agencies
		FROM company_profile WHERE id = 1`).Scan(
		&p.CompanyName, &p.NAICSCodes, &p.Certifications, &p.SetAsideTypes, &p.Capabilities,
		&p.Keywords, &p.MinContractValue, &p.MaxContractValue, &pastRaw, &p.PreferredAgencies)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.CompanyProfile{}, nil
	}
	if err != nil {
		return models.CompanyProfile{}, fmt.Errorf("reading company profile: %w", err)
	}

	if len(pastRaw) > 0 {
		if err := json.Unmarshal(pastRaw, &p.PastPerformance); err != nil {
			return models.CompanyProfile{}, fmt.Errorf("decoding past performance: %w", err)
		}
	}
	return p, nil
}

func (s *Store) SaveCompanyProfile(ctx context.Context, p models.CompanyProfile) error {
	pastRaw, err := json.Marshal(p.PastPerformance)
	if err != nil {
		return fmt.Errorf("encoding past performance: %w", err)
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO company_profile
			(id, company_name, naics_codes, certifications, set_aside_types, capabilities,
			 keywords, min_contract_value, max_contract_value, past_performance, preferred_agencies)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			naics_codes = EXCLUDED.naics_codes,
			certifications = EXCLUDED.certifications,
			set_aside_types = EXCLUDED.set_aside_types,
			capabilities = EXCLUDED.capabilities,
			keywords = EXCLUDED.keywords,
			min_contract_value = EXCLUDED.min_contract_value,
			max_contract_value = EXCLUDED.max_contract_value,
			past_performance = EXCLUDED.past_performance,
			preferred_agencies = EXCLUDED.preferred_agencies,
			updated_at = NOW()`,
		p.CompanyName, p.NAICSCodes, p.Certifications, p.SetAsideTypes, p.Capabilities,
		p.Keywords, p.MinContractValue, p.MaxContractValue, pastRaw, p.PreferredAgencies)
	if err != nil {
		return fmt.Errorf("writing company profile: %w", err)
	}
	return nil
}

// --- submissions ---

const submissionColumns = `id, opportunity_id, owner_id, title, portal, status, approval_status,
	due_date, notes, proposal_sections, created_at, updated_at`

func scanSubmission(row pgx.Row) (models.Submission, error) {
	var sub models.Submission
	var sectionsRaw []byte
	err := row.Scan(&sub.ID, &sub.OpportunityID, &sub.OwnerID, &sub.Title, &sub.Portal,
		&sub.Status, &sub.ApprovalStatus, &sub.DueDate, &sub.Notes, &sectionsRaw,
		&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return models.Submission{}, err
	}
	if len(sectionsRaw) > 0 {
		if err := json.Unmarshal(sectionsRaw, &sub.ProposalSections); err != nil {
			return models.Submission{}, fmt.Errorf("decoding proposal sections: %w", err)
		}
	}
	return sub, nil
}

func (s *Store) GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting submission: %w", err)
	}
	return &sub, nil
}

// FindSubmissionByOpportunity returns the live (non-terminal)
// submission for an opportunity, or nil.
func (s *Store) FindSubmissionByOpportunity(ctx context.Context, oppID uuid.UUID) (*models.Submission, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT `+submissionColumns+` FROM submissions
		WHERE opportunity_id = $1 AND status NOT IN ($2, $3)
		ORDER BY created_at DESC LIMIT 1`,
		oppID, models.SubmissionRejected, models.SubmissionAwarded)
	sub, err := scanSubmission(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding submission by opportunity: %w", err)
	}
	return &sub, nil
}

func (s *Store) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer rows.Close()

	var subs []models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ListActiveSubmissions returns every non-terminal, non-submitted
// submission, the set the due-date resync operates on.
func (s *Store) ListActiveSubmissions(ctx context.Context) ([]models.Submission, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+submissionColumns+` FROM submissions
		WHERE status IN ($1, $2, $3) ORDER BY created_at`,
		models.SubmissionDraft, models.SubmissionPendingApproval, models.SubmissionApproved)
	if err != nil {
		return nil, fmt.Errorf("listing active submissions: %w", err)
	}
	defer rows.Close()

	var subs []models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// CreateSubmission inserts the submission and seeds the default task
// and approval-step workflow in one transaction. The partial unique
// index on live submissions turns a racing duplicate into a conflict;
// the loser re-reads and returns the winner's row id.
func (s *Store) CreateSubmission(ctx context.Context, sub models.Submission) (uuid.UUID, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status := sub.Status
	if status == "" {
		status = models.SubmissionDraft
	}

	var id uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO submissions (opportunity_id, owner_id, title, portal, status, due_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (opportunity_id) WHERE status NOT IN ('rejected', 'awarded') DO NOTHING
		RETURNING id`,
		sub.OpportunityID, sub.OwnerID, sub.Title, sub.Portal, status, sub.DueDate, sub.Notes).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race: hand back the existing live submission.
		existing, ferr := s.FindSubmissionByOpportunity(ctx, sub.OpportunityID)
		if ferr != nil {
			return uuid.Nil, ferr
		}
		if existing == nil {
			return uuid.Nil, fmt.Errorf("submission conflict for opportunity %s but no live row found", sub.OpportunityID)
		}
		return existing.ID, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting submission: %w", err)
	}

	for _, task := range submission.DefaultTasks() {
		if _, err := tx.Exec(ctx, `
			INSERT INTO submission_tasks (submission_id, position, title, subtitle, locked)
			VALUES ($1, $2, $3, $4, $5)`,
			id, task.Position, task.Title, task.Subtitle, task.Locked); err != nil {
			return uuid.Nil, fmt.Errorf("seeding task %q: %w", task.Title, err)
		}
	}
	for _, step := range submission.DefaultApprovalSteps() {
		if _, err := tx.Exec(ctx, `
			INSERT INTO approval_steps (submission_id, step_name, step_order, approver_role)
			VALUES ($1, $2, $3, $4)`,
			id, step.StepName, step.StepOrder, step.ApproverRole); err != nil {
			return uuid.Nil, fmt.Errorf("seeding approval step %q: %w", step.StepName, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("committing submission: %w", err)
	}
	return id, nil
}

func (s *Store) SetSubmissionStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE submissions SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("setting submission status: %w", err)
	}
	return nil
}

func (s *Store) SetSubmissionDueDate(ctx context.Context, id uuid.UUID, due time.Time) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE submissions SET due_date = $2, updated_at = NOW() WHERE id = $1`, id, due)
	if err != nil {
		return fmt.Errorf("setting submission due date: %w", err)
	}
	return nil
}

func (s *Store) SetProposalSections(ctx context.Context, submissionID uuid.UUID, sections map[string]string) error {
	raw, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("encoding proposal sections: %w", err)
	}
	_, err = s.Pool.Exec(ctx,
		`UPDATE submissions SET proposal_sections = $2, updated_at = NOW() WHERE id = $1`,
		submissionID, raw)
	if err != nil {
		return fmt.Errorf("setting proposal sections: %w", err)
	}
	return nil
}

func (s *Store) SetApprovalStatus(ctx context.Context, submissionID uuid.UUID, status string) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE submissions SET approval_status = $2, updated_at = NOW() WHERE id = $1`,
		submissionID, status)
	if err != nil {
		return fmt.Errorf("setting approval status: %w", err)
	}
	return nil
}

// --- tasks & approval steps ---

func (s *Store) ListTasks(ctx context.Context, submissionID uuid.UUID) ([]models.SubmissionTask, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, submission_id, position, title, subtitle, locked, completed, completed_by, completed_at
		FROM submission_tasks WHERE submission_id = $1 ORDER BY position`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.SubmissionTask
	for rows.Next() {
		var t models.SubmissionTask
		if err := rows.Scan(&t.ID, &t.SubmissionID, &t.Position, &t.Title, &t.Subtitle,
			&t.Locked, &t.Completed, &t.CompletedBy, &t.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) MarkTaskCompleted(ctx context.Context, taskID uuid.UUID, completed bool, userID *uuid.UUID) error {
	var err error
	if completed {
		_, err = s.Pool.Exec(ctx, `
			UPDATE submission_tasks SET completed = TRUE, completed_by = $2, completed_at = NOW()
			WHERE id = $1`, taskID, userID)
	} else {
		_, err = s.Pool.Exec(ctx, `
			UPDATE submission_tasks SET completed = FALSE, completed_by = NULL, completed_at = NULL
			WHERE id = $1`, taskID)
	}
	if err != nil {
		return fmt.Errorf("updating task completion: %w", err)
	}
	return nil
}

func (s *Store) UnlockTask(ctx context.Context, taskID uuid.UUID) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE submission_tasks SET locked = FALSE WHERE id = $1`, taskID)
	if err != nil {
		return fmt.Errorf("unlocking task: %w", err)
	}
	return nil
}

func (s *Store) ListApprovalSteps(ctx context.Context, submissionID uuid.UUID) ([]models.ApprovalStep, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, submission_id, step_name, step_order, status, approver_role, approver_id, approved_at, notes
		FROM approval_steps WHERE submission_id = $1 ORDER BY step_order`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("listing approval steps: %w", err)
	}
	defer rows.Close()

	var steps []models.ApprovalStep
	for rows.Next() {
		var st models.ApprovalStep
		if err := rows.Scan(&st.ID, &st.SubmissionID, &st.StepName, &st.StepOrder, &st.Status,
			&st.ApproverRole, &st.ApproverID, &st.ApprovedAt, &st.Notes); err != nil {
			return nil, fmt.Errorf("scanning approval step: %w", err)
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

func (s *Store) MarkStepApproved(ctx context.Context, stepID uuid.UUID, approverID uuid.UUID, notes string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE approval_steps SET status = $2, approver_id = $3, approved_at = NOW(), notes = $4
		WHERE id = $1`, stepID, models.StepApproved, approverID, notes)
	if err != nil {
		return fmt.Errorf("marking step approved: %w", err)
	}
	return nil
}

// --- follow-ups ---

const followUpColumns = `id, submission_id, opportunity_id, status, auto_check, portal_status,
	next_check_at, check_interval_hours, checks_performed, max_checks, last_checked_at, assigned_to, created_at`

func scanFollowUp(row pgx.Row) (models.FollowUp, error) {
	var f models.FollowUp
	err := row.Scan(&f.ID, &f.SubmissionID, &f.OpportunityID, &f.Status, &f.AutoCheck,
		&f.PortalStatus, &f.NextCheckAt, &f.CheckIntervalHours, &f.ChecksPerformed,
		&f.MaxChecks, &f.LastCheckedAt, &f.AssignedTo, &f.CreatedAt)
	return f, err
}

func (s *Store) CreateFollowUp(ctx context.Context, f models.FollowUp) (uuid.UUID, error) {
	if f.CheckIntervalHours <= 0 {
		f.CheckIntervalHours = 72
	}
	if f.MaxChecks <= 0 {
		f.MaxChecks = 10
	}
	if f.Status == "" {
		f.Status = models.FollowUpPending
	}
	if f.NextCheckAt.IsZero() {
		f.NextCheckAt = time.Now().UTC().Add(time.Duration(f.CheckIntervalHours) * time.Hour)
	}

	var id uuid.UUID
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO follow_ups
			(submission_id, opportunity_id, status, auto_check, portal_status,
			 next_check_at, check_interval_hours, checks_performed, max_checks, assigned_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		f.SubmissionID, f.OpportunityID, f.Status, f.AutoCheck, f.PortalStatus,
		f.NextCheckAt, f.CheckIntervalHours, f.ChecksPerformed, f.MaxChecks, f.AssignedTo).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating follow-up: %w", err)
	}
	return id, nil
}

// ListDueFollowUps returns auto-check follow-ups whose next check time
// has passed, excluding terminal ones.
func (s *Store) ListDueFollowUps(ctx context.Context, now time.Time) ([]models.FollowUp, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+followUpColumns+` FROM follow_ups
		WHERE auto_check AND next_check_at <= $1
		  AND status NOT IN ($2, $3, $4, $5)
		ORDER BY next_check_at`,
		now, models.FollowUpNoChange, models.FollowUpAwarded, models.FollowUpLost, models.FollowUpCancelled)
	if err != nil {
		return nil, fmt.Errorf("listing due follow-ups: %w", err)
	}
	defer rows.Close()

	var fus []models.FollowUp
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning follow-up: %w", err)
		}
		fus = append(fus, f)
	}
	return fus, rows.Err()
}

func (s *Store) ListFollowUps(ctx context.Context) ([]models.FollowUp, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+followUpColumns+` FROM follow_ups ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing follow-ups: %w", err)
	}
	defer rows.Close()

	var fus []models.FollowUp
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning follow-up: %w", err)
		}
		fus = append(fus, f)
	}
	return fus, rows.Err()
}

func (s *Store) SetFollowUpStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.Pool.Exec(ctx,
		`UPDATE follow_ups SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("setting follow-up status: %w", err)
	}
	return nil
}

// RecordFollowUpCheck advances the follow-up's check bookkeeping after
// one reconciliation attempt.
func (s *Store) RecordFollowUpCheck(ctx context.Context, id uuid.UUID, status, portalStatus string, checksPerformed int, nextCheckAt, checkedAt time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE follow_ups
		SET status = $2, portal_status = $3, checks_performed = $4, next_check_at = $5, last_checked_at = $6
		WHERE id = $1`,
		id, status, portalStatus, checksPerformed, nextCheckAt, checkedAt)
	if err != nil {
		return fmt.Errorf("recording follow-up check: %w", err)
	}
	return nil
}

func (s *Store) InsertFollowUpCheck(ctx context.Context, check models.FollowUpCheck) error {
	var details []byte
	if check.Details != nil {
		raw, err := json.Marshal(check.Details)
		if err != nil {
			return fmt.Errorf("encoding check details: %w", err)
		}
		details = raw
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO follow_up_checks (follow_up_id, check_type, status_found, changes_detected, details)
		VALUES ($1, $2, $3, $4, $5)`,
		check.FollowUpID, check.CheckType, check.StatusFound, check.ChangesDetected, details)
	if err != nil {
		return fmt.Errorf("inserting follow-up check: %w", err)
	}
	return nil
}

func (s *Store) ListFollowUpChecks(ctx context.Context, followUpID uuid.UUID) ([]models.FollowUpCheck, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, follow_up_id, check_type, status_found, changes_detected, details, created_at
		FROM follow_up_checks WHERE follow_up_id = $1 ORDER BY created_at DESC`, followUpID)
	if err != nil {
		return nil, fmt.Errorf("listing follow-up checks: %w", err)
	}
	defer rows.Close()

	var checks []models.FollowUpCheck
	for rows.Next() {
		var c models.FollowUpCheck
		var details []byte
		if err := rows.Scan(&c.ID, &c.FollowUpID, &c.CheckType, &c.StatusFound, &c.ChangesDetected, &details, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning follow-up check: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &c.Details); err != nil {
				return nil, fmt.Errorf("decoding check details: %w", err)
			}
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

// --- notifications & correspondence ---

func (s *Store) InsertNotification(ctx context.Context, n models.Notification) error {
	if n.Priority == "" {
		n.Priority = "normal"
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO notifications (user_id, title, body, type, priority, entity_type, entity_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.UserID, n.Title, n.Body, n.Type, n.Priority, n.EntityType, n.EntityID)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, user_id, title, body, type, priority, entity_type, entity_id, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var ns []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Type, &n.Priority,
			&n.EntityType, &n.EntityID, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		ns = append(ns, n)
	}
	return ns, rows.Err()
}

func (s *Store) InsertCorrespondence(ctx context.Context, c models.Correspondence) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO correspondence (submission_id, opportunity_id, type, status, subject, body, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.SubmissionID, c.OpportunityID, c.Type, c.Status, c.Subject, c.Body, c.Source)
	if err != nil {
		return fmt.Errorf("inserting correspondence: %w", err)
	}
	return nil
}
