package jobs

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/orderdesk/internal/config"
)

// JobManager starts and stops every scheduled job together.
type JobManager struct {
	tokenSweepJob *TokenSweepJob
}

func NewJobManager(cfg config.JobsConfig, sweeper TokenSweeper, logger *zap.Logger) *JobManager {
	return &JobManager{
		tokenSweepJob: NewTokenSweepJob(sweeper, cfg.TokenSweepSpec, logger),
	}
}

func (jm *JobManager) StartAll() error {
	if err := jm.tokenSweepJob.Start(); err != nil {
		return fmt.Errorf("failed to start token sweep job: %w", err)
	}
	return nil
}

func (jm *JobManager) StopAll() {
	jm.tokenSweepJob.Stop()
}
