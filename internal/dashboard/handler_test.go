package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"sokoni-backend/internal/auth"
	"sokoni-backend/internal/database"
	"sokoni-backend/internal/models"
)

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

func newTestApp(db *gorm.DB, userID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, userID)
		return c.Next()
	})
	app.Get("/api/user-data", UserDataHandler(db))
	return app
}

func getUserData(t *testing.T, app *fiber.App) map[string]interface{} {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/user-data", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body
}

func TestUserDataBuyerStats(t *testing.T) {
	db := newTestDB(t)

	buyer := models.User{Name: "Juma", Email: "juma@example.com", PasswordHash: "x", Role: models.RoleBuyer}
	seller := models.User{Name: "Asha", Email: "asha@example.com", PasswordHash: "x", Role: models.RoleSeller}
	db.Create(&buyer)
	db.Create(&seller)
	biz := models.Business{OwnerID: seller.ID, Name: "Swahili Bites", Username: "swahili-bites", BusinessType: "home_chef"}
	db.Create(&biz)

	db.Create(&models.Order{Number: "ORD-AAAA0001", UserID: buyer.ID, BusinessID: biz.ID,
		Status: models.OrderStatusPending, TotalAmount: 1250})
	db.Create(&models.Order{Number: "ORD-AAAA0002", UserID: buyer.ID, BusinessID: biz.ID,
		Status: models.OrderStatusPending, TotalAmount: 750})
	db.Create(&models.Order{Number: "ORD-AAAA0003", UserID: buyer.ID, BusinessID: biz.ID,
		Status: models.OrderStatusCompleted, TotalAmount: 9999})
	db.Create(&models.Favorite{UserID: buyer.ID, BusinessID: biz.ID})
	db.Create(&models.Notification{UserID: buyer.ID, Type: models.NotificationOrderStatus, Title: "a"})
	db.Create(&models.Notification{UserID: buyer.ID, Type: models.NotificationOrderStatus, Title: "b", IsRead: true})

	body := getUserData(t, newTestApp(db, buyer.ID))

	stats := body["stats"].(map[string]interface{})
	if stats["order_count"].(float64) != 3 {
		t.Errorf("order_count = %v, want 3", stats["order_count"])
	}
	if stats["favorite_count"].(float64) != 1 {
		t.Errorf("favorite_count = %v, want 1", stats["favorite_count"])
	}
	if stats["unread_notifications"].(float64) != 1 {
		t.Errorf("unread_notifications = %v, want 1", stats["unread_notifications"])
	}
	// Only pending orders count: 12.50 + 7.50.
	if stats["pending_order_total"].(float64) != 20 {
		t.Errorf("pending_order_total = %v, want 20", stats["pending_order_total"])
	}
	if _, ok := body["business"]; ok {
		t.Error("buyer payload must not include a business section")
	}
}

func TestUserDataSellerStats(t *testing.T) {
	db := newTestDB(t)

	seller := models.User{Name: "Asha", Email: "asha@example.com", PasswordHash: "x", Role: models.RoleSeller}
	buyer := models.User{Name: "Juma", Email: "juma@example.com", PasswordHash: "x", Role: models.RoleBuyer}
	db.Create(&seller)
	db.Create(&buyer)
	biz := models.Business{OwnerID: seller.ID, Name: "Swahili Bites", Username: "swahili-bites", BusinessType: "home_chef"}
	db.Create(&biz)
	db.Create(&models.MenuItem{BusinessID: biz.ID, Name: "Pilau", NormalizedName: "pilau",
		Category: "mains", Price: 1250, IsAvailable: true})

	db.Create(&models.Order{Number: "ORD-BBBB0001", UserID: buyer.ID, BusinessID: biz.ID,
		Status: models.OrderStatusCompleted, TotalAmount: 2500})
	db.Create(&models.Order{Number: "ORD-BBBB0002", UserID: buyer.ID, BusinessID: biz.ID,
		Status: models.OrderStatusCompleted, TotalAmount: 1500})
	db.Create(&models.Order{Number: "ORD-BBBB0003", UserID: buyer.ID, BusinessID: biz.ID,
		Status: models.OrderStatusPending, TotalAmount: 1000})

	body := getUserData(t, newTestApp(db, seller.ID))

	bizBody, ok := body["business"].(map[string]interface{})
	if !ok {
		t.Fatal("seller payload missing business section")
	}
	if bizBody["username"] != "swahili-bites" {
		t.Errorf("business username = %v", bizBody["username"])
	}

	bs := body["business_stats"].(map[string]interface{})
	// Completed orders only: 25.00 + 15.00.
	if bs["sales_total"].(float64) != 40 {
		t.Errorf("sales_total = %v, want 40", bs["sales_total"])
	}
	if bs["menu_item_count"].(float64) != 1 {
		t.Errorf("menu_item_count = %v, want 1", bs["menu_item_count"])
	}
	byStatus := bs["orders_by_status"].([]interface{})
	counts := map[string]float64{}
	for _, entry := range byStatus {
		e := entry.(map[string]interface{})
		counts[e["status"].(string)] = e["count"].(float64)
	}
	if counts["completed"] != 2 || counts["pending"] != 1 {
		t.Errorf("orders_by_status = %v", counts)
	}
}
