// Package sales orchestrates the sale use cases: validate the request, load
// the aggregate, run the pricing engine, persist and publish the events.
package sales

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/salesapi/backend/internal/domain/sales"
	"github.com/salesapi/backend/internal/domain/shared"
	"github.com/salesapi/backend/internal/infrastructure/logger"
	"github.com/salesapi/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const spanService = "sale"

// idempotencyKeyPrefix scopes client keys to the create operation
const idempotencyKeyPrefix = "sale:create:"

// A claimed key holds "<state>:<sale id>"; it moves from pending to
// created once the sale is stored.
const (
	keyStatePending = "pending"
	keyStateCreated = "created"
)

// ErrIdempotencyInFlight is returned when a replayed key belongs to a create
// that has not finished yet
var ErrIdempotencyInFlight = shared.NewDomainError("IDEMPOTENCY_CONFLICT",
	"A request with this Idempotency-Key is still being processed")

// ErrIdempotentSaleDeleted is returned when a replayed key produced a sale
// that has since been deleted
var ErrIdempotentSaleDeleted = shared.NewDomainError("IDEMPOTENCY_CONFLICT",
	"The sale created with this Idempotency-Key has been deleted")

func (k IdempotencyKey) storeKey() string {
	return idempotencyKeyPrefix + k.Owner + ":" + k.Value
}

// SaleService handles sale business operations
type SaleService struct {
	repo           sales.SaleRepository
	engine         *sales.Engine
	validator      *SaleRequestValidator
	eventPublisher shared.EventPublisher
	idempotency    shared.IdempotencyStore
	idemConfig     shared.IdempotencyConfig
	metrics        *telemetry.OperationMetrics
}

// NewSaleService creates a new SaleService
func NewSaleService(repo sales.SaleRepository, engine *sales.Engine, validator *SaleRequestValidator) *SaleService {
	return &SaleService{
		repo:      repo,
		engine:    engine,
		validator: validator,
	}
}

// SetEventPublisher sets the publisher that receives sale events after each write
func (s *SaleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables Idempotency-Key handling on Create
func (s *SaleService) SetIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) {
	s.idempotency = store
	s.idemConfig = cfg
}

// SetMetrics enables per-operation call and latency metrics
func (s *SaleService) SetMetrics(m *telemetry.OperationMetrics) {
	s.metrics = m
}

// Create prices and stores a new sale. With a non-empty idempotency key a
// repeated request from the same owner returns the sale stored by the first one.
func (s *SaleService) Create(ctx context.Context, req CreateSaleRequest, idem IdempotencyKey) (result *CreateSaleResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "create")
	defer span.End()
	done := s.metrics.Track(ctx, spanService, "create")
	defer func() {
		telemetry.RecordError(span, err)
		done(err)
	}()

	if err := s.validator.ValidateCreate(req); err != nil {
		return nil, err
	}

	sale, err := s.engine.Create(
		toDetails(req.CustomerID, req.CustomerName, req.BranchID, req.BranchName),
		toItemInputs(req.Items),
	)
	if err != nil {
		return nil, err
	}

	key := ""
	if idem.Value != "" && s.idempotency != nil && s.idemConfig.Enabled {
		key = idem.storeKey()
		claimed, existing, err := s.idempotency.Claim(ctx, key, keyStatePending+":"+sale.ID.String(), s.idemConfig.TTL)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return s.replay(ctx, existing)
		}
	}

	if err := s.repo.Save(ctx, sale); err != nil {
		if key != "" {
			if relErr := s.idempotency.Release(ctx, key); relErr != nil {
				logger.L(ctx).Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(relErr))
			}
		}
		return nil, err
	}
	if key != "" {
		if err := s.idempotency.Complete(ctx, key, keyStateCreated+":"+sale.ID.String()); err != nil {
			logger.L(ctx).Warn("Failed to complete idempotency key", zap.String("key", key), zap.Error(err))
		}
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSaleID, sale.ID,
		telemetry.SpanAttrSaleNumber, sale.SaleNumber,
		telemetry.SpanAttrItemCount, sale.ItemCount(),
		telemetry.SpanAttrTotalAmount, sale.TotalAmount.String(),
	)
	logger.L(ctx).Info("Sale created",
		zap.String("sale_id", sale.ID.String()),
		zap.String("sale_number", sale.SaleNumber),
		zap.String("total_amount", sale.TotalAmount.String()),
	)

	s.publishEvents(ctx, sale)

	return &CreateSaleResult{Sale: ToSaleResponse(sale), Created: true}, nil
}

func (s *SaleService) replay(ctx context.Context, existing string) (*CreateSaleResult, error) {
	state, rawID, _ := strings.Cut(existing, ":")
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, err
	}

	sale, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, sales.ErrSaleNotFound) {
		if state == keyStateCreated {
			return nil, ErrIdempotentSaleDeleted
		}
		return nil, ErrIdempotencyInFlight
	}
	if err != nil {
		return nil, err
	}

	logger.L(ctx).Info("Idempotent replay of sale creation", zap.String("sale_id", sale.ID.String()))
	return &CreateSaleResult{Sale: ToSaleResponse(sale), Created: false}, nil
}

// GetByID returns one sale with its lines
func (s *SaleService) GetByID(ctx context.Context, id uuid.UUID) (result *SaleResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "get",
		telemetry.WithAttribute(telemetry.SpanAttrSaleID, id))
	defer span.End()
	done := s.metrics.Track(ctx, spanService, "get")
	defer func() { done(err) }()

	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToSaleResponse(sale)
	return &response, nil
}

// List returns one page of sales, newest first
func (s *SaleService) List(ctx context.Context, q ListSalesQuery) (result *shared.Paginated[SaleResponse], err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "list")
	defer span.End()
	done := s.metrics.Track(ctx, spanService, "list")
	defer func() { done(err) }()

	filter, err := s.validator.ValidateList(q)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPage, filter.Page,
		telemetry.SpanAttrPageSize, filter.PageSize,
	)

	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	page := shared.NewPaginated(ToSaleResponses(list), total, filter.Page, filter.PageSize)
	return &page, nil
}

// Update replaces the sale's details and lines. Lines are matched by
// product so kept products keep their IDs; totals are recomputed.
func (s *SaleService) Update(ctx context.Context, id uuid.UUID, req UpdateSaleRequest) (result *SaleResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "update",
		telemetry.WithAttribute(telemetry.SpanAttrSaleID, id))
	defer span.End()
	done := s.metrics.Track(ctx, spanService, "update")
	defer func() {
		telemetry.RecordError(span, err)
		done(err)
	}()

	if err := s.validator.ValidateUpdate(req); err != nil {
		return nil, err
	}

	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sale.CheckVersion(req.Version); err != nil {
		return nil, err
	}

	if err := s.engine.Update(
		sale,
		toDetails(req.CustomerID, req.CustomerName, req.BranchID, req.BranchName),
		toItemInputs(req.Items),
	); err != nil {
		return nil, err
	}

	if err := s.repo.SaveWithLock(ctx, sale); err != nil {
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrItemCount, sale.ItemCount(),
		telemetry.SpanAttrTotalAmount, sale.TotalAmount.String(),
	)
	logger.L(ctx).Info("Sale updated",
		zap.String("sale_id", sale.ID.String()),
		zap.Int("version", sale.Version),
		zap.String("total_amount", sale.TotalAmount.String()),
	)

	s.publishEvents(ctx, sale)

	response := ToSaleResponse(sale)
	return &response, nil
}

// Cancel flags the sale as cancelled
func (s *SaleService) Cancel(ctx context.Context, id uuid.UUID) (result *SaleResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "cancel",
		telemetry.WithAttribute(telemetry.SpanAttrSaleID, id))
	defer span.End()
	done := s.metrics.Track(ctx, spanService, "cancel")
	defer func() {
		telemetry.RecordError(span, err)
		done(err)
	}()

	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sale.Cancel(s.engine.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, sale); err != nil {
		return nil, err
	}

	logger.L(ctx).Info("Sale cancelled", zap.String("sale_id", sale.ID.String()))

	s.publishEvents(ctx, sale)

	response := ToSaleResponse(sale)
	return &response, nil
}

// Delete removes the sale and its lines
func (s *SaleService) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "delete",
		telemetry.WithAttribute(telemetry.SpanAttrSaleID, id))
	defer span.End()
	done := s.metrics.Track(ctx, spanService, "delete")
	defer func() {
		telemetry.RecordError(span, err)
		done(err)
	}()

	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return sales.ErrSaleNotFound
	}

	logger.L(ctx).Info("Sale deleted", zap.String("sale_id", id.String()))

	sale.ClearDomainEvents()
	sale.AddDomainEvent(sales.NewSaleDeletedEvent(sale, s.engine.Now()))
	s.publishEvents(ctx, sale)

	return nil
}

// publishEvents hands the sale's pending events to the publisher and clears
// them. The write has already succeeded, so a publish failure is only logged.
func (s *SaleService) publishEvents(ctx context.Context, sale *sales.Sale) {
	events := sale.GetDomainEvents()
	sale.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.eventPublisher.Publish(publishCtx, events...); err != nil {
		logger.L(ctx).Warn("Failed to publish sale events",
			zap.String("sale_id", sale.ID.String()),
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}
