package repositories

import (
	"fmt"
	"strings"
	"sync"

	"katalog/internal/models"

	"github.com/google/uuid"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
// Records are kept in insertion order so pagination behaves like a real store.
type MockProductRepository struct {
	products []models.Product
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{}
}

func matchesFilter(p models.Product, filter ProductFilter) bool {
	if filter.Category != "" && !strings.Contains(strings.ToLower(p.Category), strings.ToLower(filter.Category)) {
		return false
	}
	if p.Price < filter.MinPrice {
		return false
	}
	if filter.MaxPrice >= 0 && p.Price > filter.MaxPrice {
		return false
	}
	return true
}

// Find returns one page of matching products in insertion order.
func (r *MockProductRepository) Find(filter ProductFilter, page, limit int) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.Product, 0)
	for _, p := range r.products {
		if matchesFilter(p, filter) {
			matched = append(matched, p)
		}
	}
	start := (page - 1) * limit
	if start >= len(matched) {
		return []models.Product{}, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// Count returns the number of matching products.
func (r *MockProductRepository) Count(filter ProductFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, p := range r.products {
		if matchesFilter(p, filter) {
			count++
		}
	}
	return count, nil
}

// FindByOwner returns all products owned by the given user.
func (r *MockProductRepository) FindByOwner(owner string) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owned := make([]models.Product, 0)
	for _, p := range r.products {
		if p.Owner == owner {
			owned = append(owned, p)
		}
	}
	return owned, nil
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.products {
		if p.ID == id {
			product := p
			return &product, nil
		}
	}
	return nil, fmt.Errorf("product with ID %s not found", id)
}

// Create adds a new product.
func (r *MockProductRepository) Create(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	r.products = append(r.products, *product)
	return nil
}

// CreateBatch adds all products in one call.
func (r *MockProductRepository) CreateBatch(products []models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range products {
		if products[i].ID == "" {
			products[i].ID = uuid.New().String()
		}
	}
	r.products = append(r.products, products...)
	return nil
}

// Update modifies an existing product.
func (r *MockProductRepository) Update(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.products {
		if p.ID == product.ID {
			r.products[i] = *product
			return nil
		}
	}
	return fmt.Errorf("product with ID %s not found for update", product.ID)
}

// Delete removes a product by its ID.
func (r *MockProductRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.products {
		if p.ID == id {
			r.products = append(r.products[:i], r.products[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("product with ID %s not found for deletion", id)
}
