package repositories

import (
	"katalog/internal/models"
)

// ProductFilter narrows Find and Count. Category matches as a
// case-insensitive substring. MinPrice and MaxPrice are inclusive;
// a negative MaxPrice means unbounded.
type ProductFilter struct {
	Category string
	MinPrice float64
	MaxPrice float64
}

// UnboundedFilter matches every product.
func UnboundedFilter() ProductFilter {
	return ProductFilter{MaxPrice: -1}
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	Find(filter ProductFilter, page, limit int) ([]models.Product, error)
	Count(filter ProductFilter) (int64, error)
	FindByOwner(owner string) ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	CreateBatch(products []models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
}
