package repositories

import (
	"fmt"
	"strings"

	"katalog/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// applyFilter translates a ProductFilter into WHERE clauses.
// LOWER + LIKE keeps the substring match case-insensitive on both
// Postgres and SQLite.
func applyFilter(db *gorm.DB, filter ProductFilter) *gorm.DB {
	if filter.Category != "" {
		db = db.Where("LOWER(category) LIKE ?", "%"+strings.ToLower(filter.Category)+"%")
	}
	db = db.Where("price >= ?", filter.MinPrice)
	if filter.MaxPrice >= 0 {
		db = db.Where("price <= ?", filter.MaxPrice)
	}
	return db
}

// Find retrieves one page of products matching the filter, in store order.
// page is 1-based.
func (r *GORMProductRepository) Find(filter ProductFilter, page, limit int) ([]models.Product, error) {
	var products []models.Product
	q := applyFilter(r.db, filter).Offset((page - 1) * limit).Limit(limit)
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	return products, nil
}

// Count returns the number of products matching the filter.
func (r *GORMProductRepository) Count(filter ProductFilter) (int64, error) {
	var count int64
	if err := applyFilter(r.db.Model(&models.Product{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// FindByOwner retrieves every product owned by the given user.
func (r *GORMProductRepository) FindByOwner(owner string) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.Find(&products, "owner = ?", owner).Error; err != nil {
		return nil, fmt.Errorf("failed to find products for owner %s: %w", owner, err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("product with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// CreateBatch inserts all products in a single statement. IDs are filled
// in for records that lack one.
func (r *GORMProductRepository) CreateBatch(products []models.Product) error {
	for i := range products {
		if products[i].ID == "" {
			products[i].ID = uuid.New().String()
		}
	}
	if err := r.db.Create(&products).Error; err != nil {
		return fmt.Errorf("failed to batch create products: %w", err)
	}
	return nil
}

// Update updates an existing product in the database.
func (r *GORMProductRepository) Update(product *models.Product) error {
	res := r.db.Save(product) // Save will update all fields, including zero values
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// GORM's Save doesn't return ErrRecordNotFound when no rows were
		// touched, so we check RowsAffected.
		return fmt.Errorf("product with ID %s not found for update", product.ID)
	}
	return nil
}

// Delete removes a product by its ID. Hard delete: the catalog keeps no
// tombstones.
func (r *GORMProductRepository) Delete(id string) error {
	res := r.db.Unscoped().Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s not found for deletion", id)
	}
	return nil
}
