package cron

import (
	"context"
	"fmt"

	"github.com/stellovault/stellovault-backend/pkg/logger"
)

const defaultSweepBatchSize = 100

type escrowSweeper interface {
	ExpireEscrows(ctx context.Context, limit int) (int, error)
}

// EscrowTimeoutJobParams configure the escrow timeout sweeper.
type EscrowTimeoutJobParams struct {
	Logger    *logger.Logger
	Escrows   escrowSweeper
	BatchSize int
}

// NewEscrowTimeoutJob builds the job that cancels pending escrows whose
// expiry has passed and flags overdue funded ones.
func NewEscrowTimeoutJob(params EscrowTimeoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Escrows == nil {
		return nil, fmt.Errorf("escrow sweeper required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &escrowTimeoutJob{
		logg:      params.Logger,
		escrows:   params.Escrows,
		batchSize: batchSize,
	}, nil
}

type escrowTimeoutJob struct {
	logg      *logger.Logger
	escrows   escrowSweeper
	batchSize int
}

func (j *escrowTimeoutJob) Name() string { return "escrow-timeout" }

func (j *escrowTimeoutJob) Run(ctx context.Context) error {
	swept, err := j.escrows.ExpireEscrows(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("expire escrows: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "count", swept)
	j.logg.Info(logCtx, "escrow timeout sweep complete")
	return nil
}
