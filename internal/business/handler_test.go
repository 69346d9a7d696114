package business

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"sokoni-backend/internal/auth"
	"sokoni-backend/internal/config"
	"sokoni-backend/internal/database"
	"sokoni-backend/internal/models"
	"sokoni-backend/internal/product"
)

const testSecret = "unit-test-secret-unit-test-secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// newTestApp wires the business routes behind a stub identity middleware,
// the way the JWT middleware would populate the request in production.
func newTestApp(db *gorm.DB, userID uint, role models.UserRole) *fiber.App {
	cfg := &config.Config{JWTSecret: testSecret}
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, userID)
		c.Locals(auth.CtxUserRoleKey, role)
		return c.Next()
	})
	app.Post("/api/business/register", RegisterHandler(db, cfg))
	app.Get("/api/business/:username", GetBusinessHandler(db))
	app.Put("/api/business/:id", UpdateBusinessHandler(db))
	app.Patch("/api/business/:id/open", ToggleOpenHandler(db))
	return app
}

func seedUser(t *testing.T, db *gorm.DB, name, email string) *models.User {
	t.Helper()
	user := models.User{Name: name, Email: email, PasswordHash: "x", Role: models.RoleBuyer}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &user
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func registerPayload(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":          name,
		"business_type": "home_chef",
		"tagline":       "Taste of the coast",
		"cuisine":       []string{"swahili"},
		"opening_hours": map[string]string{"monday": "09:00-17:00", "sunday": "closed"},
	}
}

func TestRegisterBusinessPromotesRole(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "Asha", "asha@example.com")
	app := newTestApp(db, user.ID, user.Role)

	resp, err := app.Test(jsonRequest("POST", "/api/business/register", registerPayload("Swahili Bites")), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	biz := body["business"].(map[string]interface{})
	if biz["username"] != "swahili-bites" {
		t.Errorf("username = %v, want swahili-bites", biz["username"])
	}
	if body["user"].(map[string]interface{})["role"] != "seller" {
		t.Errorf("response role = %v, want seller", body["user"].(map[string]interface{})["role"])
	}

	var stored models.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.Role != models.RoleSeller {
		t.Errorf("stored role = %s, want seller", stored.Role)
	}

	var auditCount int64
	db.Model(&models.AuditLog{}).Where("entity_type = ?", "business").Count(&auditCount)
	if auditCount != 1 {
		t.Errorf("audit rows = %d, want 1", auditCount)
	}
}

func TestRegisterDuplicateNameSameOwner(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "Asha", "asha@example.com")
	app := newTestApp(db, user.ID, user.Role)

	resp, _ := app.Test(jsonRequest("POST", "/api/business/register", registerPayload("Swahili Bites")), -1)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("first register status = %d", resp.StatusCode)
	}

	resp, _ = app.Test(jsonRequest("POST", "/api/business/register", registerPayload("Swahili Bites")), -1)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("second register status = %d, want 400", resp.StatusCode)
	}

	var count int64
	db.Model(&models.Business{}).Where("owner_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Errorf("business rows = %d, want 1", count)
	}
}

func TestRegisterUsernameSuffixes(t *testing.T) {
	db := newTestDB(t)

	for i := 0; i < 3; i++ {
		user := seedUser(t, db, "Owner", fmt.Sprintf("owner%d@example.com", i))
		app := newTestApp(db, user.ID, user.Role)
		resp, _ := app.Test(jsonRequest("POST", "/api/business/register", registerPayload("Swahili Bites")), -1)
		if resp.StatusCode != fiber.StatusCreated {
			t.Fatalf("register %d status = %d", i, resp.StatusCode)
		}
	}

	var usernames []string
	db.Model(&models.Business{}).Order("id asc").Pluck("username", &usernames)
	want := []string{"swahili-bites", "swahili-bites-1", "swahili-bites-2"}
	if len(usernames) != len(want) {
		t.Fatalf("got %d businesses, want %d", len(usernames), len(want))
	}
	for i := range want {
		if usernames[i] != want[i] {
			t.Errorf("username[%d] = %q, want %q", i, usernames[i], want[i])
		}
	}
}

// Product, catalog and dashboard routes check the role claim in the token,
// so registration must hand back a token carrying the seller role.
func TestRegisterTokenUnlocksSellerRoutes(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "Asha", "asha@example.com")
	cfg := &config.Config{JWTSecret: testSecret}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	api := app.Group("/api", auth.JWTMiddleware(cfg))
	api.Post("/business/register", RegisterHandler(db, cfg))
	seller := api.Group("", auth.RequireRole(models.RoleSeller))
	seller.Get("/product/:businessID", product.ListProductsHandler(db))

	buyerToken, err := auth.GenerateToken(cfg.JWTSecret, user)
	if err != nil {
		t.Fatal(err)
	}

	req := jsonRequest("POST", "/api/business/register", registerPayload("Swahili Bites"))
	req.Header.Set("Authorization", "Bearer "+buyerToken)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	sellerToken, _ := body["token"].(string)
	if sellerToken == "" {
		t.Fatal("registration response carries no token")
	}
	bizID := uint(body["business"].(map[string]interface{})["id"].(float64))
	target := fmt.Sprintf("/api/product/%d", bizID)

	// The pre-registration token still says buyer.
	req = httptest.NewRequest("GET", target, nil)
	req.Header.Set("Authorization", "Bearer "+buyerToken)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("stale token status = %d, want 403", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", target, nil)
	req.Header.Set("Authorization", "Bearer "+sellerToken)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("reissued token status = %d, want 200", resp.StatusCode)
	}
}

func TestRegisterValidation(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "Asha", "asha@example.com")
	app := newTestApp(db, user.ID, user.Role)

	payload := registerPayload("X") // too short
	payload["business_type"] = "spaceship"
	resp, _ := app.Test(jsonRequest("POST", "/api/business/register", payload), -1)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	fields, ok := body["fields"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected field errors, got %v", body)
	}
	if _, ok := fields["name"]; !ok {
		t.Error("missing name field error")
	}
	if _, ok := fields["business_type"]; !ok {
		t.Error("missing business_type field error")
	}
}

func TestUpdateBusinessOwnershipScoped(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "Asha", "asha@example.com")
	app := newTestApp(db, owner.ID, owner.Role)

	resp, _ := app.Test(jsonRequest("POST", "/api/business/register", registerPayload("Swahili Bites")), -1)
	body := decodeBody(t, resp)
	bizID := uint(body["business"].(map[string]interface{})["id"].(float64))

	// Another caller sees 404, not 403.
	other := seedUser(t, db, "Juma", "juma@example.com")
	otherApp := newTestApp(db, other.ID, other.Role)
	resp, _ = otherApp.Test(jsonRequest("PUT", fmt.Sprintf("/api/business/%d", bizID),
		map[string]interface{}{"tagline": "stolen"}), -1)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("foreign update status = %d, want 404", resp.StatusCode)
	}

	resp, _ = app.Test(jsonRequest("PUT", fmt.Sprintf("/api/business/%d", bizID),
		map[string]interface{}{"tagline": "New tagline", "cuisine": []string{"swahili", "seafood"}}), -1)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("owner update status = %d, want 200", resp.StatusCode)
	}

	var stored models.Business
	db.First(&stored, bizID)
	if stored.Tagline != "New tagline" {
		t.Errorf("tagline = %q", stored.Tagline)
	}
	if tags := models.FromJSONList(stored.Cuisine); len(tags) != 2 {
		t.Errorf("cuisine = %v", tags)
	}
}
