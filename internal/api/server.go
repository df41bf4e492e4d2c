package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/procura/backend/internal/ai"
	"github.com/procura/backend/internal/auth"
	"github.com/procura/backend/internal/db"
	"github.com/procura/backend/internal/discover"
	"github.com/procura/backend/internal/followup"
	"github.com/procura/backend/internal/models"
	"github.com/procura/backend/internal/orchestrate"
	"github.com/procura/backend/internal/pipeline"
	"github.com/procura/backend/internal/qualify"
	"github.com/procura/backend/internal/submission"
)

type Server struct {
	Store       *db.Store
	AuthService *auth.Service
	Echo        *echo.Echo
	DB          *pgxpool.Pool

	Qualify    *qualify.Engine
	Pipeline   *pipeline.Controller
	Machine    *submission.Machine
	Reconciler *followup.Reconciler
	Discovery  *discover.Service
	Driver     *orchestrate.Driver
}

func NewServer(pool *pgxpool.Pool) *Server {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// CORS: allow frontend origins from env or default to localhost
	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	store := db.NewStore(pool)
	authService := auth.NewService(pool)

	ollamaHost := os.Getenv("OLLAMA_HOST")
	llm := ai.NewOllamaClient(ollamaHost, os.Getenv("OLLAMA_MODEL"))

	qualifyEngine := qualify.NewEngine(ai.NewOllamaScorer(llm), store)
	controller := pipeline.NewController(store, store, authService, ai.NewProposalDrafter(llm))
	machine := submission.NewMachine(store)
	driver := orchestrate.NewDriver(store, qualifyEngine, controller)

	reconciler := followup.NewReconciler(store, &followup.MultiProvider{
		Providers: map[string]followup.SourceStatusProvider{
			"sam": followup.NewSAMStatusProvider(os.Getenv("SAM_API_KEY")),
			"govcon": followup.NewHTMLStatusProvider(map[string]followup.HTMLStatusSource{
				"govcon": {
					URLTemplate: "https://govconbids.example.com/bids/%s",
					Selector:    ".bid-status",
				},
			}),
		},
	})

	registry, err := discover.LoadRegistry("internal/discover/config/connectors.yaml")
	if err != nil {
		e.Logger.Fatalf("Failed to load connector registry: %v", err)
	}
	discovery := discover.NewService(store, registry)

	s := &Server{
		DB:          pool,
		Store:       store,
		AuthService: authService,
		Echo:        e,
		Qualify:     qualifyEngine,
		Pipeline:    controller,
		Machine:     machine,
		Reconciler:  reconciler,
		Discovery:   discovery,
		Driver:      driver,
	}

	s.routes()
	return s
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")

	// Auth Routes
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	// Everything below requires a valid token.
	protected := api.Group("")
	protected.Use(auth.Middleware)

	protected.GET("/opportunities", s.handleListOpportunities)
	protected.GET("/opportunities/:id", s.handleGetOpportunity)
	protected.POST("/opportunities/:id/qualify", s.handleQualifyOpportunity)
	protected.GET("/profile", s.handleGetProfile)
	protected.PUT("/profile", s.handleSaveProfile)

	protected.GET("/submissions", s.handleListSubmissions)
	protected.POST("/submissions", s.handleCreateSubmission)
	protected.GET("/submissions/:id", s.handleGetSubmission)
	protected.PATCH("/submissions/:id/tasks/:taskID", s.handleUpdateTask)
	protected.POST("/submissions/:id/finalize", s.handleFinalizeSubmission)

	protected.GET("/follow-ups", s.handleListFollowUps)
	protected.GET("/follow-ups/:id/checks", s.handleListFollowUpChecks)
	protected.GET("/notifications", s.handleListNotifications)
	protected.GET("/settings/pipeline", s.handleGetPipelineConfig)

	// Officer Routes (sign-off and orchestration triggers)
	officer := protected.Group("")
	officer.Use(auth.RequireOfficer)
	officer.POST("/opportunities/sync", s.handleSync)
	officer.POST("/opportunities/:id/disqualify", s.handleDisqualifyOpportunity)
	officer.POST("/submissions/:id/approve", s.handleApproveStep)
	officer.POST("/submissions/:id/reject", s.handleRejectSubmission)
	officer.POST("/follow-ups/run", s.handleRunFollowUps)
	officer.PUT("/settings/pipeline", s.handleSavePipelineConfig)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrUserExists {
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if err == auth.ErrInvalidCreds {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListOpportunities(c echo.Context) error {
	status := c.QueryParam("status")
	limit := 50
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 200 {
		limit = l
	}

	opps, err := s.Store.ListOpportunities(c.Request().Context(), status, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"opportunities": opps, "count": len(opps)})
}

func (s *Server) handleGetOpportunity(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid opportunity ID"})
	}

	opp, err := s.Store.GetOpportunity(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if opp == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Opportunity not found"})
	}
	return c.JSON(http.StatusOK, opp)
}

// handleSync runs the full dispatch: discovery, then qualification and
// the autonomy pipeline over everything new.
func (s *Server) handleSync(c echo.Context) error {
	ctx := c.Request().Context()
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	inserted, runStats, err := s.Discovery.Sync(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	batchStats := s.Driver.ProcessBatch(ctx, inserted, &userID)

	return c.JSON(http.StatusOK, map[string]any{
		"discovery": runStats,
		"pipeline":  batchStats,
	})
}

// handleQualifyOpportunity scores one opportunity on demand.
// ?force=true bypasses the cache.
func (s *Server) handleQualifyOpportunity(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid opportunity ID"})
	}

	opp, err := s.Store.GetOpportunity(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if opp == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Opportunity not found"})
	}

	profile, err := s.Store.GetCompanyProfile(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	force := c.QueryParam("force") == "true"
	result := s.Qualify.Qualify(ctx, *opp, profile, force)

	if err := s.Store.UpdateOpportunityScores(ctx, opp.ID, result); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleDisqualifyOpportunity(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid opportunity ID"})
	}
	if err := s.Store.SetOpportunityStatus(c.Request().Context(), id, models.OppStatusDisqualified); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": models.OppStatusDisqualified})
}

func (s *Server) handleGetProfile(c echo.Context) error {
	profile, err := s.Store.GetCompanyProfile(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) handleSaveProfile(c echo.Context) error {
	var profile models.CompanyProfile
	if err := c.Bind(&profile); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := s.Store.SaveCompanyProfile(c.Request().Context(), profile); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) handleGetPipelineConfig(c echo.Context) error {
	cfg, err := s.Store.LoadPipelineConfig(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, cfg)
}

func (s *Server) handleSavePipelineConfig(c echo.Context) error {
	var cfg models.PipelineConfig
	if err := c.Bind(&cfg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	switch cfg.Mode {
	case models.ModeManual, models.ModeSupervised, models.ModeAutonomous:
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid mode: " + cfg.Mode})
	}
	if cfg.FitThreshold < 0 || cfg.FitThreshold > 100 || cfg.AutoThreshold < 0 || cfg.AutoThreshold > 100 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Thresholds must be within [0,100]"})
	}
	if err := s.Store.SavePipelineConfig(c.Request().Context(), cfg); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, cfg)
}

func (s *Server) handleListFollowUps(c echo.Context) error {
	fus, err := s.Store.ListFollowUps(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"follow_ups": fus, "count": len(fus)})
}

func (s *Server) handleListFollowUpChecks(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid follow-up ID"})
	}
	checks, err := s.Store.ListFollowUpChecks(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"checks": checks, "count": len(checks)})
}

func (s *Server) handleRunFollowUps(c echo.Context) error {
	stats, err := s.Reconciler.RunDueChecks(c.Request().Context(), time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleListNotifications(c echo.Context) error {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}
	ns, err := s.Store.ListNotifications(c.Request().Context(), userID, 50)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"notifications": ns, "count": len(ns)})
}
