// Package jobs runs the periodic maintenance work: order archival and ledger
// export.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const (
	archiveInterval    = 5 * time.Minute
	ledgerSyncInterval = 10 * time.Minute
)

// Archiver copies completed orders into the history tables.
// Satisfied by *service.ArchiveService.
type Archiver interface {
	Run(ctx context.Context) ([]int64, error)
}

// LedgerSyncer exports archived orders to the external ledger.
// Satisfied by *ledger.SyncService.
type LedgerSyncer interface {
	Run(ctx context.Context) (int, error)
}

// Scheduler owns the background jobs. Both jobs run in singleton mode so a
// slow run is never overlapped by the next tick.
type Scheduler struct {
	scheduler gocron.Scheduler
	archiver  Archiver
	syncer    LedgerSyncer
}

// NewScheduler creates a scheduler with the archival job registered, plus the
// ledger sync job when syncer is non-nil (nil means no ledger is configured).
func NewScheduler(archiver Archiver, syncer LedgerSyncer) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	s := &Scheduler{scheduler: sched, archiver: archiver, syncer: syncer}

	_, err = sched.NewJob(
		gocron.DurationJob(archiveInterval),
		gocron.NewTask(s.runArchive),
		gocron.WithName("order-archival"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("register archival job: %w", err)
	}

	if syncer != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(ledgerSyncInterval),
			gocron.NewTask(s.runLedgerSync),
			gocron.WithName("ledger-sync"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, fmt.Errorf("register ledger sync job: %w", err)
		}
	}

	return s, nil
}

// Start begins running the registered jobs on their intervals.
func (s *Scheduler) Start() {
	log.Printf("starting background jobs")
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs to finish.
func (s *Scheduler) Stop() error {
	log.Printf("stopping background jobs")
	return s.scheduler.Shutdown()
}

func (s *Scheduler) runArchive() {
	archived, err := s.archiver.Run(context.Background())
	if err != nil {
		log.Printf("ERROR: archival job: %v", err)
		return
	}
	if len(archived) > 0 {
		log.Printf("archived %d orders", len(archived))
	}
}

func (s *Scheduler) runLedgerSync() {
	synced, err := s.syncer.Run(context.Background())
	if err != nil {
		log.Printf("ERROR: ledger sync job: %v", err)
		return
	}
	if synced > 0 {
		log.Printf("synced %d orders to ledger", synced)
	}
}
