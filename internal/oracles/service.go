package oracles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stellovault/stellovault-backend/internal/escrows"
	"github.com/stellovault/stellovault-backend/pkg/cache"
	"github.com/stellovault/stellovault-backend/pkg/config"
	dbpkg "github.com/stellovault/stellovault-backend/pkg/db"
	"github.com/stellovault/stellovault-backend/pkg/db/models"
	"github.com/stellovault/stellovault-backend/pkg/enums"
	pkgerrors "github.com/stellovault/stellovault-backend/pkg/errors"
	"github.com/stellovault/stellovault-backend/pkg/logger"
	"github.com/stellovault/stellovault-backend/pkg/metrics"
	"github.com/stellovault/stellovault-backend/pkg/outbox"
	"github.com/stellovault/stellovault-backend/pkg/stellar"
)

const metricsCacheKey = "oracle_metrics"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines oracle registration, attestation, and dispute operations.
type Service interface {
	RegisterOracle(ctx context.Context, address string) (*models.Oracle, error)
	DeactivateOracle(ctx context.Context, address string) (*models.Oracle, error)
	ListOracles(ctx context.Context, activeOnly bool) ([]models.Oracle, error)
	ConfirmOracleEvent(ctx context.Context, input ConfirmEventInput) (*models.OracleConfirmation, error)
	GetConfirmations(ctx context.Context, escrowID uuid.UUID) ([]models.OracleConfirmation, error)
	GetOracleMetrics(ctx context.Context) (*Metrics, error)
	FlagDispute(ctx context.Context, input FlagDisputeInput) (*models.Dispute, error)
}

type service struct {
	repo         Repository
	escrows      escrows.Repository
	tx           txRunner
	outbox       outboxPublisher
	oracleMetric *metrics.OracleMetrics
	metricsCache *cache.TTL[*Metrics]
	cfg          config.OracleConfig
	logg         *logger.Logger
	now          func() time.Time
}

// NewService builds an oracle service with the required dependencies.
func NewService(
	repo Repository,
	escrowRepo escrows.Repository,
	tx txRunner,
	ob outboxPublisher,
	oracleMetric *metrics.OracleMetrics,
	cfg config.OracleConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("oracle repository required")
	}
	if escrowRepo == nil {
		return nil, fmt.Errorf("escrow repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 10
	}
	if cfg.MetricsCacheTTL <= 0 {
		cfg.MetricsCacheTTL = 30 * time.Second
	}
	if cfg.MetricsWindow <= 0 {
		cfg.MetricsWindow = 24 * time.Hour
	}
	return &service{
		repo:         repo,
		escrows:      escrowRepo,
		tx:           tx,
		outbox:       ob,
		oracleMetric: oracleMetric,
		metricsCache: cache.New[*Metrics](cfg.MetricsCacheTTL),
		cfg:          cfg,
		logg:         logg,
		now:          time.Now,
	}, nil
}

// RegisterOracle registers a new oracle or reactivates a previously
// deactivated one. Re-registering an address that is already active is a
// conflict.
func (s *service) RegisterOracle(ctx context.Context, address string) (*models.Oracle, error) {
	address = strings.TrimSpace(address)
	if !stellar.IsValidAccountID(address) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "oracle address is not a valid account id")
	}

	existing, err := s.repo.FindOracleByAddress(ctx, address)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load oracle")
	}
	if existing != nil {
		if existing.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "oracle is already registered")
		}
		if err := s.repo.SetOracleActive(ctx, existing.ID, true, nil); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reactivate oracle")
		}
		existing.IsActive = true
		existing.DeactivatedAt = nil
		return existing, nil
	}

	oracle := &models.Oracle{Address: address, IsActive: true}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOracle(ctx, oracle); err != nil {
			if dbpkg.IsUniqueViolation(err, "uq_oracles_address") {
				return pkgerrors.New(pkgerrors.CodeConflict, "oracle registered concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create oracle")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOracleRegistered,
			AggregateType: enums.AggregateOracle,
			AggregateID:   oracle.ID,
			Version:       1,
			Data:          OracleRegisteredEvent{OracleID: oracle.ID, Address: oracle.Address},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOracle(ctx, oracle.Address), "oracle registered")
	}
	return oracle, nil
}

// DeactivateOracle soft-deletes so confirmation history survives.
func (s *service) DeactivateOracle(ctx context.Context, address string) (*models.Oracle, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "oracle address required")
	}

	oracle, err := s.repo.FindOracleByAddress(ctx, address)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "oracle not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load oracle")
	}
	if !oracle.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "oracle is already deactivated")
	}

	deactivatedAt := s.now().UTC()
	if err := s.repo.SetOracleActive(ctx, oracle.ID, false, &deactivatedAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate oracle")
	}
	oracle.IsActive = false
	oracle.DeactivatedAt = &deactivatedAt

	if s.logg != nil {
		s.logg.Info(s.logg.WithOracle(ctx, oracle.Address), "oracle deactivated")
	}
	return oracle, nil
}

func (s *service) ListOracles(ctx context.Context, activeOnly bool) ([]models.Oracle, error) {
	rows, err := s.repo.ListOracles(ctx, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list oracles")
	}
	return rows, nil
}

// ConfirmOracleEvent runs the full attestation pipeline: resolve the signer,
// check the target escrow, verify the signature, consume rate budget, and
// persist the confirmation. Signature verification happens before the rate
// counter so forged requests cannot starve a legitimate oracle.
func (s *service) ConfirmOracleEvent(ctx context.Context, input ConfirmEventInput) (*models.OracleConfirmation, error) {
	if input.EscrowID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "escrow id required")
	}
	if !input.EventType.IsValid() {
		s.reject("event_type")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown event type %q", input.EventType))
	}
	nonce := strings.TrimSpace(input.Nonce)
	if nonce == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nonce required")
	}
	address := strings.TrimSpace(input.OracleAddress)
	if !stellar.IsValidAccountID(address) {
		s.reject("address")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "oracle address is not a valid account id")
	}

	oracle, err := s.repo.FindOracleByAddress(ctx, address)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			s.reject("unknown_oracle")
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "oracle is not registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load oracle")
	}
	if !oracle.IsActive {
		s.reject("inactive_oracle")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "oracle is deactivated")
	}

	escrow, err := s.escrows.FindByID(ctx, input.EscrowID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
	}
	if escrow.Status.IsTerminal() {
		s.reject("terminal_escrow")
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("escrow is %s and no longer accepts confirmations", escrow.Status))
	}

	// Replays are a conflict regardless of what the submission looks like, so
	// the duplicate check runs before signature verification. The unique
	// constraint below still backstops concurrent submissions.
	exists, err := s.repo.ConfirmationExists(ctx, oracle.ID, input.EscrowID, input.EventType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing confirmation")
	}
	if exists {
		s.reject("duplicate")
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			"confirmation for this escrow and event type already recorded")
	}

	message, err := CanonicalMessage(input.EscrowID, input.EventType, nonce, input.Payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "build canonical message")
	}
	if err := stellar.VerifySignature(address, message, input.Signature); err != nil {
		s.reject("signature")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "signature verification failed")
	}

	confirmation := &models.OracleConfirmation{
		OracleID:  oracle.ID,
		EscrowID:  input.EscrowID,
		EventType: input.EventType,
		Signature: input.Signature,
		Payload:   input.Payload,
		Nonce:     nonce,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		windowStart := s.now().UTC().Truncate(time.Minute)
		count, err := repo.IncrementRateCounter(ctx, oracle.ID, windowStart)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume rate budget")
		}
		if count > s.cfg.RateLimitPerMinute {
			if s.oracleMetric != nil {
				s.oracleMetric.IncRateLimited()
			}
			return pkgerrors.New(pkgerrors.CodeRateLimit, "oracle submission rate exceeded")
		}

		if err := repo.CreateConfirmation(ctx, confirmation); err != nil {
			if dbpkg.IsUniqueViolation(err, "uq_confirmations_oracle_escrow_event") {
				s.reject("duplicate")
				return pkgerrors.New(pkgerrors.CodeConflict,
					"confirmation for this escrow and event type already recorded")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record confirmation")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOracleConfirmationRecorded,
			AggregateType: enums.AggregateOracle,
			AggregateID:   confirmation.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{StellarAddress: oracle.Address, Role: "oracle"},
			Data: ConfirmationRecordedEvent{
				ConfirmationID: confirmation.ID,
				OracleID:       oracle.ID,
				EscrowID:       input.EscrowID,
				EventType:      input.EventType,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.oracleMetric != nil {
		s.oracleMetric.IncConfirmation(string(input.EventType))
	}
	if s.logg != nil {
		logCtx := s.logg.WithOracle(ctx, oracle.Address)
		logCtx = s.logg.WithEscrowID(logCtx, input.EscrowID.String())
		s.logg.Info(logCtx, "oracle confirmation recorded")
	}
	return confirmation, nil
}

func (s *service) GetConfirmations(ctx context.Context, escrowID uuid.UUID) ([]models.OracleConfirmation, error) {
	if escrowID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "escrow id required")
	}
	if _, err := s.escrows.FindByID(ctx, escrowID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
	}
	rows, err := s.repo.ListConfirmationsByEscrow(ctx, escrowID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list confirmations")
	}
	return rows, nil
}

// GetOracleMetrics serves a cached snapshot; the histogram queries are too
// heavy to run on every dashboard poll.
func (s *service) GetOracleMetrics(ctx context.Context) (*Metrics, error) {
	if cached, ok := s.metricsCache.Get(metricsCacheKey); ok {
		return cached, nil
	}

	end := s.now().UTC()
	start := end.Add(-s.cfg.MetricsWindow)

	active, inactive, err := s.repo.CountOracles(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count oracles")
	}
	confirmationCounts, err := s.repo.CountConfirmationsByEventType(ctx, start)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count confirmations")
	}
	statusCounts, err := s.escrows.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count escrows by status")
	}

	var total int64
	for _, n := range confirmationCounts {
		total += n
	}
	var avg float64
	if active > 0 {
		avg = float64(total) / float64(active)
	}

	snapshot := &Metrics{
		WindowStart:        start,
		WindowEnd:          end,
		ActiveOracles:      active,
		InactiveOracles:    inactive,
		ConfirmationCounts: confirmationCounts,
		TotalConfirmations: total,
		AvgPerActiveOracle: avg,
		EscrowStatusCounts: statusCounts,
	}
	s.metricsCache.Set(metricsCacheKey, snapshot)
	return snapshot, nil
}

// FlagDispute freezes an escrow. Only pending or funded escrows can be
// contested; the first dispute wins.
func (s *service) FlagDispute(ctx context.Context, input FlagDisputeInput) (*models.Dispute, error) {
	if input.EscrowID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "escrow id required")
	}
	reporter := strings.TrimSpace(input.ReporterAddress)
	if !stellar.IsValidAccountID(reporter) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reporter address is not a valid account id")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute reason required")
	}

	dispute := &models.Dispute{
		EscrowID:        input.EscrowID,
		ReporterAddress: reporter,
		Reason:          reason,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		escrowRepo := s.escrows.WithTx(tx)
		escrow, err := escrowRepo.FindByID(ctx, input.EscrowID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "escrow not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow")
		}
		if !escrows.CanTransition(escrow.Status, enums.EscrowStatusDisputed) {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("escrow is %s and cannot be disputed", escrow.Status))
		}

		updated, err := escrowRepo.UpdateStatusFrom(ctx, escrow.ID, escrow.Status, enums.EscrowStatusDisputed, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark escrow disputed")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeConflict, "escrow changed concurrently")
		}

		if err := s.repo.WithTx(tx).CreateDispute(ctx, dispute); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record dispute")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEscrowDisputed,
			AggregateType: enums.AggregateEscrow,
			AggregateID:   input.EscrowID,
			Version:       1,
			Actor:         &outbox.ActorRef{StellarAddress: reporter},
			Data: DisputeFlaggedEvent{
				DisputeID:       dispute.ID,
				EscrowID:        input.EscrowID,
				ReporterAddress: reporter,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithEscrowID(ctx, input.EscrowID.String()), "escrow disputed")
	}
	return dispute, nil
}

func (s *service) reject(reason string) {
	if s.oracleMetric != nil {
		s.oracleMetric.IncRejection(reason)
	}
}
