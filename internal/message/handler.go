package message

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sokoni-backend/internal/auth"
	"sokoni-backend/internal/models"
)

type SendMessageRequest struct {
	BusinessID uint   `json:"business_id"`
	UserID     uint   `json:"user_id"` // required when the business side writes
	Body       string `json:"body"`
}

// POST /api/messages
//
// Buyers write to a business; owners write back by naming the buyer. The
// conversation key is always (business_id, buyer user_id).
func SendMessageHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		callerID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body SendMessageRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Body = strings.TrimSpace(body.Body)
		if body.Body == "" || len(body.Body) > 1000 {
			return fiber.NewError(fiber.StatusBadRequest, "message body must be 1-1000 characters")
		}

		var biz models.Business
		if err := db.First(&biz, body.BusinessID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "business not found")
		}

		fromBusiness := biz.OwnerID == callerID
		buyerID := callerID
		if fromBusiness {
			if body.UserID == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "user_id is required when replying as the business")
			}
			buyerID = body.UserID
		}

		msg := models.Message{
			BusinessID:   biz.ID,
			UserID:       buyerID,
			FromBusiness: fromBusiness,
			Body:         body.Body,
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&msg).Error; err != nil {
				return err
			}
			recipient := biz.OwnerID
			if fromBusiness {
				recipient = buyerID
			}
			notif := models.Notification{
				UserID:     recipient,
				Type:       models.NotificationNewMessage,
				Title:      "New message",
				EntityType: "message",
				EntityID:   msg.ID,
			}
			return tx.Create(&notif).Error
		})
		if err != nil {
			logrus.WithError(err).Error("send message")
			return fiber.NewError(fiber.StatusInternalServerError, "could not send message")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":            msg.ID,
			"business_id":   msg.BusinessID,
			"user_id":       msg.UserID,
			"from_business": msg.FromBusiness,
			"body":          msg.Body,
			"created_at":    msg.CreatedAt.Format(time.RFC3339),
		})
	}
}

// GET /api/messages/:businessID?user_id=N
func ConversationHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		callerID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var biz models.Business
		if err := db.First(&biz, "id = ?", c.Params("businessID")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "business not found")
		}

		buyerID := callerID
		if biz.OwnerID == callerID {
			buyerID = uint(c.QueryInt("user_id", 0))
			if buyerID == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "user_id is required")
			}
		}

		var msgs []models.Message
		if err := db.Where("business_id = ? AND user_id = ?", biz.ID, buyerID).
			Order("created_at asc").Limit(500).Find(&msgs).Error; err != nil {
			logrus.WithError(err).Error("load conversation")
			return fiber.NewError(fiber.StatusInternalServerError, "could not load conversation")
		}

		// Everything addressed to the caller is now read.
		db.Model(&models.Message{}).
			Where("business_id = ? AND user_id = ? AND from_business = ? AND is_read = ?",
				biz.ID, buyerID, biz.OwnerID != callerID, false).
			Update("is_read", true)

		res := make([]fiber.Map, 0, len(msgs))
		for _, m := range msgs {
			res = append(res, fiber.Map{
				"id":            m.ID,
				"from_business": m.FromBusiness,
				"body":          m.Body,
				"is_read":       m.IsRead,
				"created_at":    m.CreatedAt.Format(time.RFC3339),
			})
		}
		return c.JSON(res)
	}
}
