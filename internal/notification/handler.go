package notification

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sokoni-backend/internal/auth"
	"sokoni-backend/internal/models"
)

// GET /api/notifications?unread=true
func ListNotificationsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		dbq := db.Where("user_id = ?", userID)
		if c.Query("unread") == "true" {
			dbq = dbq.Where("is_read = ?", false)
		}

		var notifs []models.Notification
		if err := dbq.Order("created_at DESC").Limit(100).Find(&notifs).Error; err != nil {
			logrus.WithError(err).Error("list notifications")
			return fiber.NewError(fiber.StatusInternalServerError, "could not list notifications")
		}

		res := make([]fiber.Map, 0, len(notifs))
		for _, n := range notifs {
			res = append(res, fiber.Map{
				"id":          n.ID,
				"type":        n.Type,
				"title":       n.Title,
				"body":        n.Body,
				"entity_type": n.EntityType,
				"entity_id":   n.EntityID,
				"is_read":     n.IsRead,
				"created_at":  n.CreatedAt.Format(time.RFC3339),
			})
		}
		return c.JSON(res)
	}
}

// PATCH /api/notifications/:id/read
func MarkReadHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		res := db.Model(&models.Notification{}).
			Where("id = ? AND user_id = ?", c.Params("id"), userID).
			Update("is_read", true)
		if res.Error != nil {
			logrus.WithError(res.Error).Error("mark notification read")
			return fiber.NewError(fiber.StatusInternalServerError, "could not update notification")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "notification not found")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
