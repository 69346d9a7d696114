package dashboard

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"sokoni-backend/internal/auth"
	"sokoni-backend/internal/models"
)

type statusCount struct {
	Status models.OrderStatus `json:"status"`
	Count  int64              `json:"count"`
}

// GET /api/user-data
//
// Rollups are recomputed per request; nothing here is cached or maintained
// incrementally.
func UserDataHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}

		var orderCount, favoriteCount, unreadCount int64
		db.Model(&models.Order{}).Where("user_id = ?", userID).Count(&orderCount)
		db.Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&favoriteCount)
		db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&unreadCount)

		var pendingTotal int64
		db.Model(&models.Order{}).
			Where("user_id = ? AND status = ?", userID, models.OrderStatusPending).
			Select("COALESCE(SUM(total_amount), 0)").Scan(&pendingTotal)

		res := fiber.Map{
			"user": fiber.Map{
				"id":      user.ID,
				"name":    user.Name,
				"email":   user.Email,
				"role":    user.Role,
				"phone":   user.Phone,
				"address": user.Address,
				"image":   user.Image,
			},
			"stats": fiber.Map{
				"order_count":          orderCount,
				"favorite_count":       favoriteCount,
				"unread_notifications": unreadCount,
				"pending_order_total":  models.PriceToFloat(pendingTotal),
			},
		}

		if user.Role == models.RoleSeller {
			// The oldest business is treated as the primary one; dashboards
			// for additional businesses use the per-business endpoints.
			var biz models.Business
			if err := db.Where("owner_id = ?", userID).
				Order("created_at asc").First(&biz).Error; err == nil {

				var salesTotal int64
				db.Model(&models.Order{}).
					Where("business_id = ? AND status = ?", biz.ID, models.OrderStatusCompleted).
					Select("COALESCE(SUM(total_amount), 0)").Scan(&salesTotal)

				var byStatus []statusCount
				db.Model(&models.Order{}).
					Where("business_id = ?", biz.ID).
					Select("status, COUNT(*) as count").
					Group("status").Scan(&byStatus)

				var menuCount int64
				db.Model(&models.MenuItem{}).Where("business_id = ?", biz.ID).Count(&menuCount)

				res["business"] = fiber.Map{
					"id":           biz.ID,
					"name":         biz.Name,
					"username":     biz.Username,
					"is_open":      biz.IsOpen,
					"rating":       biz.Rating,
					"review_count": biz.ReviewCount,
				}
				res["business_stats"] = fiber.Map{
					"sales_total":      models.PriceToFloat(salesTotal),
					"orders_by_status": byStatus,
					"menu_item_count":  menuCount,
				}
			}
		}

		return c.JSON(res)
	}
}
