package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/krshsl/rentdesk/metrics"
	"github.com/krshsl/rentdesk/models"
	"github.com/krshsl/rentdesk/repository"
	"github.com/robfig/cron/v3"
)

const sweepTimeout = time.Minute

// Scheduler runs the periodic back-office jobs: the overdue contract sweep and
// housekeeping registered by the server
type Scheduler struct {
	cron   *cron.Cron
	repo   *repository.GORMRepository
	events EventPublisher
	now    func() time.Time

	// jobs that also run once when the scheduler starts
	startup []func()
}

func NewScheduler(repo *repository.GORMRepository, events EventPublisher) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		repo:   repo,
		events: publisherOrNoop(events),
		now:    time.Now,
	}
}

// Schedule registers a named job on a cron spec such as "@every 15m" or "0 * * * *"
func (s *Scheduler) Schedule(spec, name string, job func()) error {
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("failed to schedule %s with %q: %w", name, spec, err)
	}
	slog.Info("Job scheduled", "job", name, "spec", spec)
	return nil
}

// ScheduleOverdueSweep registers the sweep; it also runs once on Start
func (s *Scheduler) ScheduleOverdueSweep(spec string) error {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.SweepOverdue(ctx); err != nil {
			slog.Error("Overdue sweep failed", "error", err)
		}
	}
	if err := s.Schedule(spec, "overdue-sweep", run); err != nil {
		return err
	}
	s.startup = append(s.startup, run)
	return nil
}

func (s *Scheduler) Start() {
	for _, job := range s.startup {
		go job()
	}
	s.cron.Start()
	slog.Info("Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		slog.Info("Scheduler stopped")
	case <-ctx.Done():
		slog.Warn("Scheduler stop timed out")
	}
}

// SweepOverdue flags open contracts past their end date and returns how many were
// newly flagged
func (s *Scheduler) SweepOverdue(ctx context.Context) (int, error) {
	flagged, err := s.repo.FlagOverdueContracts(ctx, s.now())
	if err != nil {
		metrics.RecordOverdueSweep(false)
		return 0, err
	}
	metrics.RecordOverdueSweep(true)

	for i := range flagged {
		c := &flagged[i]
		c.Overdue = true
		s.events.Publish(newEvent(EventContractOverdue, "contract", c.ID, map[string]interface{}{
			"contract_number": c.ContractNumber,
			"end_date":        c.EndDate,
			"status":          models.ContractOpen,
		}))
	}

	if total, err := s.repo.CountOverdueContracts(ctx); err == nil {
		metrics.SetOverdueContracts(total)
	} else {
		slog.Warn("Failed to count overdue contracts", "error", err)
	}

	if len(flagged) > 0 {
		slog.Info("Contracts flagged overdue", "count", len(flagged))
	}
	return len(flagged), nil
}
