package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/procura/backend/internal/api"
	"github.com/procura/backend/internal/db"
	"github.com/procura/backend/internal/followup"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	srv := api.NewServer(pool)

	go runFollowUpScheduler(ctx, srv)

	log.Printf("Server starting on port %s...", port)
	if err := srv.Start(port); err != nil {
		log.Fatal(err)
	}
}

// runFollowUpScheduler drives the two recurring jobs: hourly follow-up
// reconciliation and a daily due-date resync. Both are safe to re-run;
// the hourly tick only processes follow-ups whose next_check_at has
// passed.
func runFollowUpScheduler(ctx context.Context, srv *api.Server) {
	checkTicker := time.NewTicker(time.Hour)
	syncTicker := time.NewTicker(24 * time.Hour)
	defer checkTicker.Stop()
	defer syncTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-checkTicker.C:
			if _, err := srv.Reconciler.RunDueChecks(ctx, time.Now().UTC()); err != nil {
				log.Printf("[Scheduler] Follow-up checks failed: %v", err)
			}
		case <-syncTicker.C:
			if _, err := followup.SyncSubmissionDueDates(ctx, srv.Store); err != nil {
				log.Printf("[Scheduler] Due-date sync failed: %v", err)
			}
		}
	}
}
