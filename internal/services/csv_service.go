package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/pkg/rabbitmq"
)

var (
	// ErrNoValidRows means the uploaded file produced zero importable rows.
	ErrNoValidRows = errors.New("CSV file is empty or no valid rows found")
	// ErrCSVRead means the uploaded file could not be read as CSV.
	ErrCSVRead = errors.New("error reading CSV file")
	// ErrNoProducts means the caller owns nothing to export.
	ErrNoProducts = errors.New("no products found to export")
)

// importFields are the header names a row must provide, case-sensitive.
var importFields = []string{"product_name", "category", "price", "stock"}

// exportHeader is the column set written by Export.
var exportHeader = []string{"id", "product_name", "category", "price", "stock", "owner"}

// CSVService implements the bulk import and export paths for the catalog.
type CSVService struct {
	repo     repositories.ProductRepository
	mqClient *rabbitmq.Client // optional, nil disables event publication
}

// NewCSVService creates a new CSVService.
func NewCSVService(repo repositories.ProductRepository, mqClient *rabbitmq.Client) *CSVService {
	return &CSVService{
		repo:     repo,
		mqClient: mqClient,
	}
}

// Import streams the CSV file at path, validating rows one by one, and bulk
// inserts every accepted row owned by the given user. Invalid rows are
// logged and skipped; they never abort the import. The file is removed
// only after the batch insert succeeds, so a failed import can be retried
// from the same upload. Returns the number of imported records.
func (s *CSVService) Import(path, owner string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCSVRead, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // ragged rows are handled per field

	header, err := reader.Read()
	if err == io.EOF {
		return 0, ErrNoValidRows
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCSVRead, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	var accepted []models.Product
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCSVRead, err)
		}

		product, ok := buildRow(record, columns, owner)
		if !ok {
			continue
		}
		accepted = append(accepted, product)
	}

	if len(accepted) == 0 {
		return 0, ErrNoValidRows
	}

	if err := s.repo.CreateBatch(accepted); err != nil {
		// Leave the uploaded file in place so the import can be retried.
		return 0, fmt.Errorf("failed to import products: %w", err)
	}

	if err := os.Remove(path); err != nil {
		log.Printf("Warning: failed to remove processed upload %s: %v", path, err)
	}

	s.publish("catalog.products.imported", map[string]interface{}{
		"owner":         owner,
		"importedCount": len(accepted),
	})

	return len(accepted), nil
}

// buildRow validates and sanitizes a single CSV record. It returns false
// when the row must be skipped.
func buildRow(record []string, columns map[string]int, owner string) (models.Product, bool) {
	values := make(map[string]string, len(importFields))
	for _, field := range importFields {
		idx, ok := columns[field]
		if !ok || idx >= len(record) {
			log.Printf("Row missing required fields, skipping: %v", record)
			return models.Product{}, false
		}
		value := strings.TrimSpace(record[idx])
		// A literal 0 counts the same as an absent value, so zero-priced
		// and zero-stock rows are rejected as missing.
		if value == "" || value == "0" {
			log.Printf("Row missing required fields, skipping: %v", record)
			return models.Product{}, false
		}
		values[field] = value
	}

	price, priceErr := strconv.ParseFloat(values["price"], 64)
	stock, stockErr := strconv.Atoi(values["stock"])
	if priceErr != nil || stockErr != nil {
		log.Printf("Row has invalid numeric values, skipping: %v", record)
		return models.Product{}, false
	}

	return models.Product{
		ProductName: values["product_name"],
		Category:    values["category"],
		Price:       price,
		Stock:       stock,
		Owner:       owner,
	}, true
}

// Export writes every product owned by the given user to w as CSV, header
// first, in store-retrieval order.
func (s *CSVService) Export(owner string, w io.Writer) error {
	products, err := s.repo.FindByOwner(owner)
	if err != nil {
		return fmt.Errorf("failed to load products for export: %w", err)
	}
	if len(products) == 0 {
		return ErrNoProducts
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, p := range products {
		row := []string{
			p.ID,
			p.ProductName,
			p.Category,
			strconv.FormatFloat(p.Price, 'f', -1, 64),
			strconv.Itoa(p.Stock),
			p.Owner,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV output: %w", err)
	}
	return nil
}

func (s *CSVService) publish(eventType string, payload map[string]interface{}) {
	if s.mqClient == nil {
		return
	}
	if err := s.mqClient.Publish(eventType, payload); err != nil {
		log.Printf("Warning: failed to publish %s event: %v", eventType, err)
	}
}
