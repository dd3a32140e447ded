package collateral

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/stellovault/stellovault-backend/pkg/enums"
	pkgerrors "github.com/stellovault/stellovault-backend/pkg/errors"
	"github.com/stellovault/stellovault-backend/pkg/logger"
	"github.com/stellovault/stellovault-backend/pkg/outbox"
	"github.com/stellovault/stellovault-backend/pkg/stellar"
)

// depositTopic is the first event topic the collateral contract emits when an
// asset deposit lands on-chain.
const depositTopic = "deposit"

const indexerPageSize = 100

type depositEventValue struct {
	MetadataHash string `json:"metadata_hash"`
}

// Indexer reconciles off-chain collateral records against on-chain deposit
// events. Each pass resumes from the last ledger it saw; records move
// pending→deposited at most once via a conditional update, so replayed or
// overlapping polls are harmless.
type Indexer struct {
	repo       Repository
	gateway    stellar.Gateway
	tx         txRunner
	outbox     outboxPublisher
	contractID string
	logg       *logger.Logger

	mu         sync.Mutex
	lastLedger int64
}

// NewIndexer builds a collateral indexer for the given contract.
func NewIndexer(repo Repository, gateway stellar.Gateway, tx txRunner, ob outboxPublisher, contractID string, logg *logger.Logger) (*Indexer, error) {
	if repo == nil {
		return nil, fmt.Errorf("collateral repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("ledger gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if contractID == "" {
		return nil, fmt.Errorf("collateral contract id required")
	}
	return &Indexer{
		repo:       repo,
		gateway:    gateway,
		tx:         tx,
		outbox:     ob,
		contractID: contractID,
		logg:       logg,
	}, nil
}

// Run performs one reconciliation pass and returns how many records were
// marked deposited.
func (ix *Indexer) Run(ctx context.Context) (int, error) {
	ix.mu.Lock()
	startLedger := ix.lastLedger
	ix.mu.Unlock()

	page, err := ix.gateway.ListContractEvents(ctx, stellar.EventQuery{
		ContractIDs: []string{ix.contractID},
		StartLedger: startLedger + 1,
		Limit:       indexerPageSize,
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contract events")
	}

	settled := 0
	for _, event := range page.Events {
		ok, err := ix.applyDeposit(ctx, event)
		if err != nil {
			return settled, err
		}
		if ok {
			settled++
		}
	}

	ix.mu.Lock()
	if page.LatestLedger > ix.lastLedger {
		ix.lastLedger = page.LatestLedger
	}
	ix.mu.Unlock()

	return settled, nil
}

func (ix *Indexer) applyDeposit(ctx context.Context, event stellar.ContractEvent) (bool, error) {
	if len(event.Topics) == 0 || event.Topics[0] != depositTopic {
		return false, nil
	}

	var value depositEventValue
	if err := json.Unmarshal(event.Value, &value); err != nil || value.MetadataHash == "" {
		if ix.logg != nil {
			logCtx := ix.logg.WithField(ctx, "event_id", event.ID)
			ix.logg.Warn(logCtx, "skipping malformed deposit event")
		}
		return false, nil
	}

	record, err := ix.repo.FindByMetadataHash(ctx, value.MetadataHash)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			if ix.logg != nil {
				logCtx := ix.logg.WithField(ctx, "metadata_hash", value.MetadataHash)
				ix.logg.Warn(logCtx, "deposit event has no matching collateral record")
			}
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load collateral record")
	}
	if record.Status == enums.CollateralStatusDeposited {
		return false, nil
	}

	depositedAt := event.LedgerTime.UTC()
	marked := false
	err = ix.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := ix.repo.WithTx(tx).MarkDeposited(ctx, record.ID, depositedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark collateral deposited")
		}
		if !updated {
			// Another indexer pass won the race.
			return nil
		}
		marked = true
		return ix.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCollateralDeposited,
			AggregateType: enums.AggregateCollateral,
			AggregateID:   record.ID,
			Version:       1,
			Data: CollateralDepositedEvent{
				CollateralID: record.ID,
				MetadataHash: record.MetadataHash,
				TxHash:       event.TxHash,
				Ledger:       event.Ledger,
				DepositedAt:  depositedAt,
			},
		})
	})
	if err != nil {
		return false, err
	}

	if marked && ix.logg != nil {
		logCtx := ix.logg.WithField(ctx, "collateral_id", record.ID.String())
		ix.logg.Info(logCtx, "collateral deposit confirmed")
	}
	return marked, nil
}
