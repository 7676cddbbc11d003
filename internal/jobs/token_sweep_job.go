// Package jobs runs scheduled maintenance tasks on github.com/robfig/cron/v3.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// TokenSweeper deletes refresh tokens that are past their expiry.
type TokenSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// TokenSweepJob purges expired refresh tokens on a cron schedule so the
// refresh_tokens table does not grow without bound.
type TokenSweepJob struct {
	sweeper TokenSweeper
	spec    string
	timeout time.Duration
	cron    *cron.Cron
	logger  *zap.Logger
}

// NewTokenSweepJob schedules sweeper on spec, a standard five-field cron
// expression or a descriptor such as "@hourly" or "@every 10m".
func NewTokenSweepJob(sweeper TokenSweeper, spec string, logger *zap.Logger) *TokenSweepJob {
	return &TokenSweepJob{
		sweeper: sweeper,
		spec:    spec,
		timeout: 30 * time.Second,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger.With(zap.String("component", "token_sweep_job")),
	}
}

func (j *TokenSweepJob) Start() error {
	if _, err := j.cron.AddFunc(j.spec, j.RunOnce); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info("token sweep job started", zap.String("spec", j.spec))
	return nil
}

// RunOnce performs a single sweep.
func (j *TokenSweepJob) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	if _, err := j.sweeper.SweepExpired(ctx); err != nil {
		j.logger.Error("token sweep failed", zap.Error(err))
	}
}

// Stop stops scheduling and waits for a running sweep to finish.
func (j *TokenSweepJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("token sweep job stopped")
}
