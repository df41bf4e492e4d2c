package discover

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/procura/backend/internal/models"
)

// Store is the persistence slice discovery needs. *db.Store satisfies
// it. UpsertOpportunitiesByExternalRef inserts new rows and refreshes
// changed fields on existing ones, keyed by (source, external_ref);
// it returns the rows that are new to the system.
type Store interface {
	UpsertOpportunitiesByExternalRef(ctx context.Context, opps []models.Opportunity) (inserted []models.Opportunity, updated int, err error)
	RecordDiscoveryRun(ctx context.Context, run models.DiscoveryRun) error
}

// RunStats summarizes one discovery sync.
type RunStats struct {
	Fetched  int `json:"fetched"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed_connectors"`
}

// Service runs the discovery sync: every enabled connector is fetched,
// descriptions are sanitized, and results land in storage via upsert.
type Service struct {
	store      Store
	connectors []Connector
	sanitizer  *bluemonday.Policy
}

func NewService(store Store, reg *Registry) *Service {
	var connectors []Connector
	for _, cfg := range reg.Connectors {
		if !cfg.Enabled {
			continue
		}
		switch cfg.Strategy {
		case "api_sam":
			connectors = append(connectors, NewSAMConnector(cfg))
		case "api_govcon":
			connectors = append(connectors, NewGovConConnector(cfg))
		default:
			log.Printf("[Discover] Unknown strategy %q for connector %q, skipping", cfg.Strategy, cfg.ID)
		}
	}
	return &Service{
		store:      store,
		connectors: connectors,
		sanitizer:  bluemonday.StrictPolicy(),
	}
}

// Sync fetches all connectors and upserts the results. Connector
// failures are isolated: one dead source is logged and the rest still
// land. The returned slice holds only opportunities that are new to
// the system, ready for the qualification batch.
func (s *Service) Sync(ctx context.Context) ([]models.Opportunity, RunStats, error) {
	started := time.Now().UTC()
	var stats RunStats
	var all []models.Opportunity

	for _, conn := range s.connectors {
		opps, err := conn.Fetch(ctx)
		if err != nil {
			log.Printf("[Discover] Connector %q failed: %v", conn.ID(), err)
			stats.Failed++
			continue
		}
		for i := range opps {
			s.normalize(&opps[i])
		}
		all = append(all, opps...)
	}
	stats.Fetched = len(all)

	if len(all) == 0 {
		s.recordRun(ctx, started, stats, "")
		return nil, stats, nil
	}

	inserted, updated, err := s.store.UpsertOpportunitiesByExternalRef(ctx, all)
	if err != nil {
		s.recordRun(ctx, started, stats, err.Error())
		return nil, stats, fmt.Errorf("upserting opportunities: %w", err)
	}
	stats.Inserted = len(inserted)
	stats.Updated = updated

	s.recordRun(ctx, started, stats, "")
	log.Printf("[Discover] Sync completed: fetched=%d inserted=%d updated=%d failed_connectors=%d",
		stats.Fetched, stats.Inserted, stats.Updated, stats.Failed)
	return inserted, stats, nil
}

// normalize strips markup from source-provided text. Descriptions come
// back from some portals as raw HTML.
func (s *Service) normalize(opp *models.Opportunity) {
	opp.Title = strings.TrimSpace(s.sanitizer.Sanitize(opp.Title))
	opp.Description = strings.TrimSpace(s.sanitizer.Sanitize(opp.Description))
	opp.Agency = strings.TrimSpace(opp.Agency)
	opp.ExternalRef = strings.TrimSpace(opp.ExternalRef)
	if opp.Status == "" {
		opp.Status = models.OppStatusOpen
	}
}

func (s *Service) recordRun(ctx context.Context, started time.Time, stats RunStats, errMsg string) {
	status := "completed"
	if errMsg != "" {
		status = "failed"
	}
	run := models.DiscoveryRun{
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
		Status:      status,
		Fetched:     stats.Fetched,
		Inserted:    stats.Inserted,
		Updated:     stats.Updated,
		Error:       errMsg,
	}
	if err := s.store.RecordDiscoveryRun(ctx, run); err != nil {
		log.Printf("[Discover] Failed to record discovery run: %v", err)
	}
}
