package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/procura/backend/internal/db"
)

func main() {
	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	runs, err := store.ListDiscoveryRuns(ctx, 10)
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Status", "Fetched", "Inserted", "Updated", "Duration", "Started At", "Error"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.Status, r.Fetched, r.Inserted, r.Updated,
			r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String(),
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Error,
		})
	}
	t.Render()

	fus, err := store.ListFollowUps(ctx)
	if err != nil {
		log.Fatal(err)
	}

	ft := table.NewWriter()
	ft.SetOutputMirror(os.Stdout)
	ft.AppendHeader(table.Row{"Follow-Up", "Status", "Portal Status", "Checks", "Max", "Next Check"})
	for _, f := range fus {
		ft.AppendRow(table.Row{
			f.ID.String()[:8], f.Status, f.PortalStatus,
			f.ChecksPerformed, f.MaxChecks,
			f.NextCheckAt.Format("2006-01-02 15:04"),
		})
	}
	ft.Render()
}
