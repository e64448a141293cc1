package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"katalog/internal/middleware"
	"katalog/internal/models"
	"katalog/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the product catalog.
type ProductHandler struct {
	productService *services.ProductService
	csvService     *services.CSVService
	validate       *validator.Validate
	uploadDir      string
}

// NewProductHandler creates a new ProductHandler. uploadDir is where CSV
// uploads are parked until the import pipeline consumes them.
func NewProductHandler(productService *services.ProductService, csvService *services.CSVService, uploadDir string) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		csvService:     csvService,
		validate:       validator.New(),
		uploadDir:      uploadDir,
	}
}

// RegisterRoutes registers the product routes with the Fiber app. The list
// endpoint is intentionally open; everything else requires the auth gate.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	products := router.Group("/products")
	products.Post("/csv", auth, h.HandleImportCSV)
	products.Get("/exportCSV", auth, h.HandleExportCSV)
	products.Post("/addProduct", auth, h.HandleCreateProduct)
	products.Get("/list", h.HandleListProducts)
	products.Put("/:id", auth, h.HandleUpdateProduct)
	products.Delete("/:id", auth, h.HandleDeleteProduct)
}

// callerID returns the authenticated user's ID stored by the auth middleware.
func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.UserIDKey).(string)
	return id
}

// HandleImportCSV saves the uploaded file and runs the import pipeline on it.
func (h *ProductHandler) HandleImportCSV(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "No file uploaded",
		})
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		log.Printf("Error creating upload directory %s: %v", h.uploadDir, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error uploading CSV",
			"error":   err.Error(),
		})
	}

	// Timestamp prefix keeps concurrent uploads of the same filename apart.
	dst := filepath.Join(h.uploadDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(fileHeader.Filename)))
	if err := c.SaveFile(fileHeader, dst); err != nil {
		log.Printf("Error saving uploaded file: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error uploading CSV",
			"error":   err.Error(),
		})
	}

	importedCount, err := h.csvService.Import(dst, callerID(c))
	if err != nil {
		if errors.Is(err, services.ErrNoValidRows) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": services.ErrNoValidRows.Error(),
			})
		}
		log.Printf("Error importing CSV: %v", err)
		if errors.Is(err, services.ErrCSVRead) {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Error reading CSV file",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error uploading CSV",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message":       "CSV Uploaded Successfully",
		"importedCount": importedCount,
	})
}

// HandleExportCSV streams the caller's products as a CSV attachment.
func (h *ProductHandler) HandleExportCSV(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.csvService.Export(callerID(c), &buf); err != nil {
		if errors.Is(err, services.ErrNoProducts) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": services.ErrNoProducts.Error(),
			})
		}
		log.Printf("Error exporting CSV: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error exporting CSV",
			"error":   err.Error(),
		})
	}

	c.Set(fiber.HeaderContentDisposition, `attachment; filename=products.csv`)
	c.Set(fiber.HeaderContentType, "text/csv")
	return c.Send(buf.Bytes())
}

// HandleCreateProduct creates a single product owned by the caller.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		log.Printf("Error parsing create product request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.validate.Struct(product); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	if err := h.productService.CreateProduct(&product, callerID(c)); err != nil {
		log.Printf("Error creating product: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error creating product",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Product Created Successfully",
	})
}

// HandleListProducts returns a filtered, paginated page of the catalog.
// No auth: the listing is public and not scoped to an owner.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	params := services.ListParams{
		Category: c.Query("category"),
		MinPrice: c.QueryFloat("minPrice", 0),
		MaxPrice: c.QueryFloat("maxPrice", -1),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 10),
	}

	result, err := h.productService.ListProducts(params)
	if err != nil {
		log.Printf("Error listing products: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error fetching products",
			"error":   err.Error(),
		})
	}

	return c.JSON(result)
}

// HandleUpdateProduct applies partial fields to a product the caller owns.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var req services.UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing update product request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	if err := h.productService.UpdateProduct(c.Params("id"), callerID(c), req); err != nil {
		if errors.Is(err, services.ErrNotOwner) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Unauthorized",
			})
		}
		log.Printf("Error updating product %s: %v", c.Params("id"), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error updating product",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Product Updated Successfully",
	})
}

// HandleDeleteProduct removes a product the caller owns.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.productService.DeleteProduct(c.Params("id"), callerID(c)); err != nil {
		if errors.Is(err, services.ErrNotOwner) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Unauthorized",
			})
		}
		log.Printf("Error deleting product %s: %v", c.Params("id"), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Error deleting product",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Product Deleted Successfully",
	})
}
