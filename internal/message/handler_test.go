package message

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
		return c.Next()
	})
	app.Post("/api/messages", SendMessageHandler(db))
	app.Get("/api/messages/:businessID", ConversationHandler(db))
	return app
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func seedConversationFixture(t *testing.T, db *gorm.DB) (owner, buyer *models.User, biz *models.Business) {
	t.Helper()
	o := models.User{Name: "Asha", Email: "asha@example.com", PasswordHash: "x", Role: models.RoleSeller}
	b := models.User{Name: "Juma", Email: "juma@example.com", PasswordHash: "x", Role: models.RoleBuyer}
	if err := db.Create(&o).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&b).Error; err != nil {
		t.Fatal(err)
	}
	bz := models.Business{OwnerID: o.ID, Name: "Swahili Bites", Username: "swahili-bites", BusinessType: "home_chef"}
	if err := db.Create(&bz).Error; err != nil {
		t.Fatal(err)
	}
	return &o, &b, &bz
}

func TestSendAndReadConversation(t *testing.T) {
	db := newTestDB(t)
	owner, buyer, biz := seedConversationFixture(t, db)

	buyerApp := newTestApp(db, buyer.ID)
	ownerApp := newTestApp(db, owner.ID)

	resp, _ := buyerApp.Test(jsonRequest("POST", "/api/messages", fiber.Map{
		"business_id": biz.ID, "body": "Is the pilau ready?",
	}), -1)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("buyer send status = %d, want 201", resp.StatusCode)
	}

	// Owner replies into the same conversation by naming the buyer.
	resp, _ = ownerApp.Test(jsonRequest("POST", "/api/messages", fiber.Map{
		"business_id": biz.ID, "user_id": buyer.ID, "body": "Ten more minutes.",
	}), -1)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("owner send status = %d, want 201", resp.StatusCode)
	}

	// Owner reply without user_id is rejected.
	resp, _ = ownerApp.Test(jsonRequest("POST", "/api/messages", fiber.Map{
		"business_id": biz.ID, "body": "who am I talking to",
	}), -1)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("owner send without user_id status = %d, want 400", resp.StatusCode)
	}

	// Each side got notified once.
	var ownerNotifs, buyerNotifs int64
	db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", owner.ID, models.NotificationNewMessage).Count(&ownerNotifs)
	db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", buyer.ID, models.NotificationNewMessage).Count(&buyerNotifs)
	if ownerNotifs != 1 || buyerNotifs != 1 {
		t.Errorf("notifications owner=%d buyer=%d, want 1/1", ownerNotifs, buyerNotifs)
	}

	// Buyer loads the thread; the owner's reply flips to read.
	target := fmt.Sprintf("/api/messages/%d", biz.ID)
	resp, _ = buyerApp.Test(httptest.NewRequest("GET", target, nil), -1)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("conversation status = %d", resp.StatusCode)
	}
	var msgs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("conversation length = %d, want 2", len(msgs))
	}
	if msgs[0]["from_business"] != false || msgs[1]["from_business"] != true {
		t.Errorf("unexpected ordering: %v", msgs)
	}

	var unread int64
	db.Model(&models.Message{}).
		Where("business_id = ? AND user_id = ? AND from_business = ? AND is_read = ?",
			biz.ID, buyer.ID, true, false).Count(&unread)
	if unread != 0 {
		t.Errorf("unread owner messages after buyer read = %d, want 0", unread)
	}

	// The buyer's own message stays as it was for the buyer view.
	var buyerMsgUnread int64
	db.Model(&models.Message{}).
		Where("business_id = ? AND user_id = ? AND from_business = ? AND is_read = ?",
			biz.ID, buyer.ID, false, false).Count(&buyerMsgUnread)
	if buyerMsgUnread != 1 {
		t.Errorf("buyer-sent unread count = %d, want 1", buyerMsgUnread)
	}
}

func TestConversationOwnerView(t *testing.T) {
	db := newTestDB(t)
	owner, buyer, biz := seedConversationFixture(t, db)

	db.Create(&models.Message{BusinessID: biz.ID, UserID: buyer.ID, FromBusiness: false, Body: "hi"})

	ownerApp := newTestApp(db, owner.ID)
	target := fmt.Sprintf("/api/messages/%d", biz.ID)

	// Owner must name the buyer.
	resp, _ := ownerApp.Test(httptest.NewRequest("GET", target, nil), -1)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("owner view without user_id status = %d, want 400", resp.StatusCode)
	}

	resp, _ = ownerApp.Test(httptest.NewRequest("GET",
		fmt.Sprintf("%s?user_id=%d", target, buyer.ID), nil), -1)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("owner view status = %d", resp.StatusCode)
	}
	var msgs []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&msgs)
	if len(msgs) != 1 {
		t.Fatalf("owner view length = %d, want 1", len(msgs))
	}

	// Reading as the owner marks the buyer's message read.
	var unread int64
	db.Model(&models.Message{}).
		Where("business_id = ? AND from_business = ? AND is_read = ?", biz.ID, false, false).
		Count(&unread)
	if unread != 0 {
		t.Errorf("unread buyer messages after owner read = %d, want 0", unread)
	}

	// Message body validation.
	resp, _ = ownerApp.Test(jsonRequest("POST", "/api/messages", fiber.Map{
		"business_id": biz.ID, "user_id": buyer.ID, "body": "   ",
	}), -1)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("blank body status = %d, want 400", resp.StatusCode)
	}
}
