package services

import (
	"errors"
	"fmt"
	"log"
	"math"

	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/pkg/rabbitmq"
)

// ErrNotOwner is returned when the target product does not exist or is not
// owned by the caller. The two cases are deliberately indistinguishable so
// a caller cannot probe for other users' product IDs.
var ErrNotOwner = errors.New("product not found or not owned by caller")

// ListParams are the optional filters and pagination settings for List.
// A negative MaxPrice means unbounded. Non-positive Page/Limit fall back
// to the defaults (1 and 10).
type ListParams struct {
	Category string
	MinPrice float64
	MaxPrice float64
	Page     int
	Limit    int
}

// ProductList is one page of results plus pagination metadata.
type ProductList struct {
	TotalCount int64            `json:"totalCount"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
	Products   []models.Product `json:"products"`
}

// UpdateProductRequest carries the partial fields of an update. Nil fields
// are left untouched. Owner is not updatable.
type UpdateProductRequest struct {
	ProductName *string  `json:"product_name"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo     repositories.ProductRepository
	mqClient *rabbitmq.Client // optional, nil disables event publication
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, mqClient *rabbitmq.Client) *ProductService {
	return &ProductService{
		repo:     repo,
		mqClient: mqClient,
	}
}

// CreateProduct persists a new product owned by the given user and publishes
// a catalog.product.created event (best effort).
func (s *ProductService) CreateProduct(product *models.Product, owner string) error {
	product.Owner = owner
	if err := s.repo.Create(product); err != nil {
		return err
	}

	s.publish("catalog.product.created", map[string]interface{}{
		"productID": product.ID,
		"owner":     product.Owner,
	})
	return nil
}

// ListProducts returns one page of products matching the filters, with
// totalPages computed as the ceiling of totalCount over limit.
func (s *ProductService) ListProducts(params ListParams) (*ProductList, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 10
	}

	filter := repositories.ProductFilter{
		Category: params.Category,
		MinPrice: params.MinPrice,
		MaxPrice: params.MaxPrice,
	}

	totalCount, err := s.repo.Count(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	products, err := s.repo.Find(filter, params.Page, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ProductList{
		TotalCount: totalCount,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: int(math.Ceil(float64(totalCount) / float64(params.Limit))),
		Products:   products,
	}, nil
}

// UpdateProduct applies the provided partial fields to a product after
// checking that the caller owns it.
func (s *ProductService) UpdateProduct(id, owner string, req UpdateProductRequest) error {
	product, err := s.loadOwned(id, owner)
	if err != nil {
		return err
	}

	if req.ProductName != nil {
		product.ProductName = *req.ProductName
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}

	if err := s.repo.Update(product); err != nil {
		return fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return nil
}

// DeleteProduct removes a product after checking that the caller owns it.
func (s *ProductService) DeleteProduct(id, owner string) error {
	if _, err := s.loadOwned(id, owner); err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	return nil
}

// loadOwned fetches a product and enforces the ownership invariant. The
// comparison is plain string equality between the stored owner and the
// token-derived caller ID.
func (s *ProductService) loadOwned(id, owner string) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotOwner
	}
	if product.Owner != owner {
		return nil, ErrNotOwner
	}
	return product, nil
}

// publish sends a catalog event if a RabbitMQ client is configured.
// Publication failures are logged, never surfaced to the request.
func (s *ProductService) publish(eventType string, payload map[string]interface{}) {
	if s.mqClient == nil {
		return
	}
	if err := s.mqClient.Publish(eventType, payload); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", eventType, err)
	}
}
