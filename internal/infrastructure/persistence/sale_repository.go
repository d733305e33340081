package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/salesapi/backend/internal/domain/sales"
	"github.com/salesapi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSaleRepository implements sales.SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// Ensure GormSaleRepository implements SaleRepository
var _ sales.SaleRepository = (*GormSaleRepository)(nil)

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}

// FindByID finds a sale by its ID, with its items in line order
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Sale, error) {
	var model models.SaleModel
	if err := preloadItems(r.db.WithContext(ctx)).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sales.ErrSaleNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or overwrites a sale and replaces its items
func (r *GormSaleRepository) Save(ctx context.Context, sale *sales.Sale) error {
	model := models.SaleModelFromDomain(sale)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		return replaceItems(tx, model)
	})
}

// SaveWithLock saves an existing sale only if its stored version matches
// sale.Version. On success the version is incremented on both sides.
func (r *GormSaleRepository) SaveWithLock(ctx context.Context, sale *sales.Sale) error {
	model := models.SaleModelFromDomain(sale)
	expected := model.Version

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.SaleModel{}).
			Where("id = ? AND version = ?", model.ID, expected).
			Updates(map[string]any{
				"customer_id":   model.CustomerID,
				"customer_name": model.CustomerName,
				"branch_id":     model.BranchID,
				"branch_name":   model.BranchName,
				"total_amount":  model.TotalAmount,
				"is_cancelled":  model.IsCancelled,
				"cancelled_at":  model.CancelledAt,
				"version":       expected + 1,
				"updated_at":    model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.SaleModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return sales.ErrSaleNotFound
			}
			return sales.ErrVersionMismatch
		}

		return replaceItems(tx, model)
	})
	if err != nil {
		return err
	}

	sale.Version = expected + 1
	return nil
}

// replaceItems deletes stored items no longer on the sale, then upserts the rest
func replaceItems(tx *gorm.DB, model *models.SaleModel) error {
	ids := make([]uuid.UUID, len(model.Items))
	for i, item := range model.Items {
		ids[i] = item.ID
	}

	query := tx.Where("sale_id = ?", model.ID)
	if len(ids) > 0 {
		query = query.Where("id NOT IN ?", ids)
	}
	if err := query.Delete(&models.SaleItemModel{}).Error; err != nil {
		return err
	}

	for i := range model.Items {
		model.Items[i].SaleID = model.ID
		if err := tx.Save(&model.Items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a sale and its items, reporting whether the sale existed
func (r *GormSaleRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sale_id = ?", id).Delete(&models.SaleItemModel{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.SaleModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// List returns one page of sales matching filter, newest first, with the total count
func (r *GormSaleRepository) List(ctx context.Context, filter sales.SaleFilter) ([]sales.Sale, int64, error) {
	filter = filter.Normalized()
	scoped := func() *gorm.DB {
		return applySaleFilter(r.db.WithContext(ctx).Model(&models.SaleModel{}), filter)
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.SaleModel
	if err := preloadItems(scoped()).
		Order("sale_date DESC").
		Order("id ASC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	result := make([]sales.Sale, len(rows))
	for i := range rows {
		result[i] = *rows[i].ToDomain()
	}
	return result, total, nil
}

func applySaleFilter(query *gorm.DB, filter sales.SaleFilter) *gorm.DB {
	if filter.StartDate != nil {
		query = query.Where("sale_date >= ?", filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		query = query.Where("sale_date <= ?", filter.EndDate.UTC())
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.BranchID != nil {
		query = query.Where("branch_id = ?", *filter.BranchID)
	}
	return query
}
