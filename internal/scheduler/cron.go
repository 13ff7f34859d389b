// Package scheduler runs the sync controller on a cron schedule for
// long-running deployments.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/RileyXX/imdb-trakt-syncer/internal/controllers"
)

// Scheduler manages scheduled sync runs
type Scheduler struct {
	cron     *cron.Cron
	syncCtrl *controllers.SyncController
	spec     string
	logger   *logrus.Logger
}

// NewScheduler creates a new scheduler. spec is a standard five-field cron
// expression.
func NewScheduler(syncCtrl *controllers.SyncController, spec string, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		syncCtrl: syncCtrl,
		spec:     spec,
		logger:   logger,
	}
}

// Start registers the sync job and starts the scheduler. An initial run is
// kicked off immediately so a fresh deployment does not wait for the first
// cron tick.
func (s *Scheduler) Start() error {
	s.logger.WithField("schedule", s.spec).Info("Starting scheduler")

	_, err := s.cron.AddFunc(s.spec, func() {
		s.runSync()
	})
	if err != nil {
		return fmt.Errorf("failed to add sync job: %w", err)
	}

	s.cron.Start()

	go s.runSync()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// runSync executes the sync job
func (s *Scheduler) runSync() {
	s.logger.Info("Running scheduled sync")
	ctx := context.Background()

	if err := s.syncCtrl.Run(ctx); err != nil {
		s.logger.WithError(err).Error("Sync job failed")
	} else {
		s.logger.Info("Sync job completed successfully")
	}
}
