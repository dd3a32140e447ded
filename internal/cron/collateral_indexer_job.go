package cron

import (
	"context"
	"fmt"

	"github.com/stellovault/stellovault-backend/pkg/logger"
)

type depositIndexer interface {
	Run(ctx context.Context) (int, error)
}

// CollateralIndexerJobParams configure the deposit reconciliation job.
type CollateralIndexerJobParams struct {
	Logger  *logger.Logger
	Indexer depositIndexer
}

// NewCollateralIndexerJob builds the job that polls the ledger for deposit
// events and reconciles pending collateral records.
func NewCollateralIndexerJob(params CollateralIndexerJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Indexer == nil {
		return nil, fmt.Errorf("collateral indexer required")
	}
	return &collateralIndexerJob{
		logg:    params.Logger,
		indexer: params.Indexer,
	}, nil
}

type collateralIndexerJob struct {
	logg    *logger.Logger
	indexer depositIndexer
}

func (j *collateralIndexerJob) Name() string { return "collateral-indexer" }

func (j *collateralIndexerJob) Run(ctx context.Context) error {
	settled, err := j.indexer.Run(ctx)
	if err != nil {
		return fmt.Errorf("reconcile deposits: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "count", settled)
	j.logg.Info(logCtx, "collateral deposit reconciliation complete")
	return nil
}
