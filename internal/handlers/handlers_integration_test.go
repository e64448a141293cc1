package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"katalog/internal/handlers"
	"katalog/internal/middleware"
	"katalog/internal/models"
	"katalog/internal/repositories"
	"katalog/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testJWTSecret = "test_jwt_secret"

// setupApp wires the full API against an isolated in-memory SQLite database.
func setupApp(t *testing.T) (*fiber.App, repositories.ProductRepository, *services.AuthService) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.User{}))

	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)

	productService := services.NewProductService(productRepo, nil)
	csvService := services.NewCSVService(productRepo, nil)
	authService := services.NewAuthService(userRepo, testJWTSecret)

	productHandler := handlers.NewProductHandler(productService, csvService, t.TempDir())
	authHandler := handlers.NewAuthHandler(authService)

	app := fiber.New()
	api := app.Group("/api")
	authHandler.RegisterRoutes(api)
	productHandler.RegisterRoutes(api, middleware.AuthRequired(authService))

	return app, productRepo, authService
}

// registerAndLogin creates a user and returns their bearer token and ID.
func registerAndLogin(t *testing.T, app *fiber.App, authService *services.AuthService, username string) (token, userID string) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	body, _ = json.Marshal(map[string]string{"username": username, "password": "password123"})
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	resp.Body.Close()
	token = loginResp["token"]
	require.NotEmpty(t, token)

	claims, err := authService.ValidateToken(token)
	require.NoError(t, err)
	userID = claims["user_id"].(string)
	return token, userID
}

// csvUploadRequest builds a multipart POST carrying content as the file field.
func csvUploadRequest(t *testing.T, token, content string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "products.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products/csv", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	resp.Body.Close()
}

// TestMain suppresses logging during tests for cleaner output.
func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestImportCSV(t *testing.T) {
	app, productRepo, authService := setupApp(t)
	token, userID := registerAndLogin(t, app, authService, "importer")

	// One valid row, one with an empty product_name.
	csv := "product_name,category,price,stock\n" +
		"Pen,Office,1.50,100\n" +
		",Office,2,5\n"
	resp, err := app.Test(csvUploadRequest(t, token, csv), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var importResp map[string]interface{}
	decodeJSON(t, resp, &importResp)
	assert.Equal(t, "CSV Uploaded Successfully", importResp["message"])
	assert.Equal(t, float64(1), importResp["importedCount"])

	owned, err := productRepo.FindByOwner(userID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "Pen", owned[0].ProductName)
	assert.Equal(t, 1.50, owned[0].Price)
	assert.Equal(t, 100, owned[0].Stock)
}

func TestImportCSVNoValidRows(t *testing.T) {
	app, productRepo, authService := setupApp(t)
	token, userID := registerAndLogin(t, app, authService, "importer")

	csv := "product_name,category,price,stock\n" +
		",Office,2,5\n" +
		"Pen,Office,free,many\n"
	resp, err := app.Test(csvUploadRequest(t, token, csv), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var importResp map[string]interface{}
	decodeJSON(t, resp, &importResp)
	assert.Equal(t, "CSV file is empty or no valid rows found", importResp["message"])

	owned, err := productRepo.FindByOwner(userID)
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestImportCSVNoFile(t *testing.T) {
	app, _, authService := setupApp(t)
	token, _ := registerAndLogin(t, app, authService, "importer")

	req := httptest.NewRequest(http.MethodPost, "/api/products/csv", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var importResp map[string]interface{}
	decodeJSON(t, resp, &importResp)
	assert.Equal(t, "No file uploaded", importResp["message"])
}

func TestExportCSVIsOwnerScoped(t *testing.T) {
	app, _, authService := setupApp(t)
	tokenA, _ := registerAndLogin(t, app, authService, "alice")
	tokenB, _ := registerAndLogin(t, app, authService, "bob")

	csv := "product_name,category,price,stock\n" +
		"Pen,Office,1.5,100\n" +
		"Mug,Kitchen,8,30\n"
	resp, err := app.Test(csvUploadRequest(t, tokenA, csv), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Alice gets her two records back as an attachment.
	req := httptest.NewRequest(http.MethodGet, "/api/products/exportCSV", nil)
	req.Header.Set("Authorization", "Bearer "+tokenA)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename=products.csv`, resp.Header.Get("Content-Disposition"))

	exported, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(exported), "id,product_name,category,price,stock,owner")
	assert.Contains(t, string(exported), "Pen")
	assert.Contains(t, string(exported), "Mug")

	// Bob owns nothing, so export is a 404.
	req = httptest.NewRequest(http.MethodGet, "/api/products/exportCSV", nil)
	req.Header.Set("Authorization", "Bearer "+tokenB)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestListProductsPaginationAndFilter(t *testing.T) {
	app, productRepo, _ := setupApp(t)

	var batch []models.Product
	for i := 0; i < 15; i++ {
		batch = append(batch, models.Product{
			ProductName: fmt.Sprintf("Office Item %02d", i),
			Category:    "Office",
			Price:       float64(i + 1),
			Stock:       10,
			Owner:       "someone",
		})
	}
	for i := 0; i < 3; i++ {
		batch = append(batch, models.Product{
			ProductName: fmt.Sprintf("Kitchen Item %d", i),
			Category:    "Kitchen",
			Price:       5,
			Stock:       10,
			Owner:       "someone",
		})
	}
	require.NoError(t, productRepo.CreateBatch(batch))

	// Listing needs no token. Category matches case-insensitively.
	req := httptest.NewRequest(http.MethodGet, "/api/products/list?category=office&page=1&limit=10", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list services.ProductList
	decodeJSON(t, resp, &list)
	assert.Equal(t, int64(15), list.TotalCount)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 10, list.Limit)
	assert.Equal(t, 2, list.TotalPages)
	assert.Len(t, list.Products, 10)

	// Second page carries the remainder.
	req = httptest.NewRequest(http.MethodGet, "/api/products/list?category=office&page=2&limit=10", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	decodeJSON(t, resp, &list)
	assert.Len(t, list.Products, 5)

	// Price range is inclusive.
	req = httptest.NewRequest(http.MethodGet, "/api/products/list?minPrice=1&maxPrice=5", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	decodeJSON(t, resp, &list)
	assert.Equal(t, int64(8), list.TotalCount) // office items 1..5 plus three kitchen items at 5
}

func TestUpdateDeleteOwnership(t *testing.T) {
	app, productRepo, authService := setupApp(t)
	tokenA, userA := registerAndLogin(t, app, authService, "alice")
	tokenB, _ := registerAndLogin(t, app, authService, "bob")

	// Alice creates a product.
	body, _ := json.Marshal(map[string]interface{}{
		"product_name": "Pen",
		"category":     "Office",
		"price":        1.5,
		"stock":        100,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/products/addProduct", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenA)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	owned, err := productRepo.FindByOwner(userA)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	productID := owned[0].ID

	// Bob may neither update nor delete Alice's product.
	update, _ := json.Marshal(map[string]interface{}{"price": 999.0})
	req = httptest.NewRequest(http.MethodPut, "/api/products/"+productID, bytes.NewReader(update))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenB)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	req = httptest.NewRequest(http.MethodDelete, "/api/products/"+productID, nil)
	req.Header.Set("Authorization", "Bearer "+tokenB)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// The record is untouched.
	got, err := productRepo.GetByID(productID)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.Price)

	// Alice's partial update applies only the provided field.
	req = httptest.NewRequest(http.MethodPut, "/api/products/"+productID, bytes.NewReader(update))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenA)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	got, err = productRepo.GetByID(productID)
	require.NoError(t, err)
	assert.Equal(t, 999.0, got.Price)
	assert.Equal(t, "Pen", got.ProductName)
	assert.Equal(t, userA, got.Owner)

	// Updating an unknown ID is also a 403.
	req = httptest.NewRequest(http.MethodPut, "/api/products/no-such-id", bytes.NewReader(update))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tokenA)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Alice deletes her product.
	req = httptest.NewRequest(http.MethodDelete, "/api/products/"+productID, nil)
	req.Header.Set("Authorization", "Bearer "+tokenA)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	_, err = productRepo.GetByID(productID)
	assert.Error(t, err)
}

func TestAuthGateMessageVariants(t *testing.T) {
	app, _, authService := setupApp(t)
	registerAndLogin(t, app, authService, "alice")

	cases := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "UNAUTHORIZED_ACCESS: Token required"},
		{"wrong scheme", "Basic abc123", "UNAUTHORIZED_ACCESS: Invalid token format"},
		{"empty token", "Bearer ", "UNAUTHORIZED_ACCESS: Invalid token format"},
		{"garbage token", "Bearer not.a.token", "UNAUTHORIZED_ACCESS: Invalid or expired token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/products/exportCSV", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			var body map[string]string
			decodeJSON(t, resp, &body)
			assert.Equal(t, tc.message, body["message"])
		})
	}

	// A well-signed token that lacks the identity claim is its own case.
	anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := anonymous.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/products/exportCSV", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.Equal(t, "UNAUTHORIZED_ACCESS: Invalid token data", body["message"])
}
