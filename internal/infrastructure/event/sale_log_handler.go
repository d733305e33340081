package event

import (
	"context"

	"github.com/salesapi/backend/internal/domain/sales"
	"github.com/salesapi/backend/internal/domain/shared"
	"github.com/salesapi/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// SaleLogHandler writes one structured log entry per sale lifecycle event
type SaleLogHandler struct {
	logger *zap.Logger
}

// NewSaleLogHandler creates a SaleLogHandler
func NewSaleLogHandler(l *zap.Logger) *SaleLogHandler {
	return &SaleLogHandler{logger: l.Named("sales")}
}

// EventTypes implements shared.EventHandler
func (h *SaleLogHandler) EventTypes() []string {
	return []string{
		sales.EventTypeSaleCreated,
		sales.EventTypeSaleModified,
		sales.EventTypeSaleCancelled,
		sales.EventTypeSaleDeleted,
	}
}

// Handle implements shared.EventHandler
func (h *SaleLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	log := logger.Enrich(ctx, h.logger).With(
		zap.String("event_id", event.EventID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)

	switch e := event.(type) {
	case *sales.SaleCreatedEvent:
		log.Info("Sale created",
			zap.String("sale_id", e.SaleID.String()),
			zap.String("sale_number", e.SaleNumber),
			zap.String("customer_id", e.CustomerID.String()),
			zap.String("branch_id", e.BranchID.String()),
			zap.Int("item_count", e.ItemCount),
			zap.String("total_amount", e.TotalAmount.StringFixed(2)),
		)
	case *sales.SaleModifiedEvent:
		log.Info("Sale modified",
			zap.String("sale_id", e.SaleID.String()),
			zap.String("sale_number", e.SaleNumber),
			zap.Int("items_added", len(e.Changes.Added)),
			zap.Int("items_updated", len(e.Changes.Updated)),
			zap.Int("items_removed", len(e.Changes.Removed)),
			zap.String("total_amount", e.TotalAmount.StringFixed(2)),
		)
	case *sales.SaleCancelledEvent:
		log.Info("Sale cancelled",
			zap.String("sale_id", e.SaleID.String()),
			zap.String("sale_number", e.SaleNumber),
		)
	case *sales.SaleDeletedEvent:
		log.Info("Sale deleted",
			zap.String("sale_id", e.SaleID.String()),
			zap.String("sale_number", e.SaleNumber),
		)
	default:
		log.Warn("Unexpected sale event", zap.String("event_type", event.EventType()))
	}
	return nil
}

var _ shared.EventHandler = (*SaleLogHandler)(nil)
