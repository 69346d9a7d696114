package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sokoni-backend/internal/audit"
	"sokoni-backend/internal/auth"
	"sokoni-backend/internal/models"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}

type PlaceOrderRequest struct {
	BusinessID uint `json:"business_id"`
	Items      []struct {
		MenuItemID uint `json:"menu_item_id"`
		Quantity   int  `json:"quantity"`
	} `json:"items"`
	DeliveryAddress     string `json:"delivery_address"`
	SpecialInstructions string `json:"special_instructions"`
}

type UpdateStatusRequest struct {
	OrderID uint               `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
}

func orderJSON(o *models.Order) fiber.Map {
	items := make([]fiber.Map, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, fiber.Map{
			"menu_item_id": it.MenuItemID,
			"name":         it.Name,
			"unit_price":   models.PriceToFloat(it.UnitPrice),
			"quantity":     it.Quantity,
		})
	}
	res := fiber.Map{
		"id":                   o.ID,
		"number":               o.Number,
		"business_id":          o.BusinessID,
		"status":               o.Status,
		"total_amount":         models.PriceToFloat(o.TotalAmount),
		"delivery_address":     o.DeliveryAddress,
		"special_instructions": o.SpecialInstructions,
		"created_at":           o.CreatedAt.Format(time.RFC3339),
		"items":                items,
	}
	if o.Business != nil {
		res["business"] = fiber.Map{
			"id":       o.Business.ID,
			"name":     o.Business.Name,
			"username": o.Business.Username,
		}
	}
	if o.User != nil {
		res["customer"] = fiber.Map{
			"id":    o.User.ID,
			"name":  o.User.Name,
			"phone": o.User.Phone,
		}
	}
	return res
}

// POST /api/orders
func PlaceOrderHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body PlaceOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "order must contain at least one item")
		}
		for _, it := range body.Items {
			if it.Quantity < 1 || it.Quantity > 50 {
				return fiber.NewError(fiber.StatusBadRequest, "item quantities must be 1-50")
			}
		}

		var biz models.Business
		if err := db.First(&biz, body.BusinessID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "business not found")
		}
		if !biz.IsOpen {
			return fiber.NewError(fiber.StatusBadRequest, "this business is currently closed")
		}

		order := models.Order{
			Number:              newOrderNumber(),
			UserID:              userID,
			BusinessID:          biz.ID,
			Status:              models.OrderStatusPending,
			DeliveryAddress:     strings.TrimSpace(body.DeliveryAddress),
			SpecialInstructions: strings.TrimSpace(body.SpecialInstructions),
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			var total int64
			lines := make([]models.OrderItem, 0, len(body.Items))
			for _, it := range body.Items {
				var menuItem models.MenuItem
				if err := tx.Where("id = ? AND business_id = ? AND is_available = ?",
					it.MenuItemID, biz.ID, true).First(&menuItem).Error; err != nil {
					return fiber.NewError(fiber.StatusBadRequest,
						fmt.Sprintf("menu item %d is not available from this business", it.MenuItemID))
				}
				total += menuItem.Price * int64(it.Quantity)
				lines = append(lines, models.OrderItem{
					MenuItemID: menuItem.ID,
					Name:       menuItem.Name,
					UnitPrice:  menuItem.Price,
					Quantity:   it.Quantity,
				})
			}
			order.TotalAmount = total

			// A Number collision is vanishingly rare; one regenerate is enough.
			if err := tx.Create(&order).Error; err != nil {
				if !errors.Is(err, gorm.ErrDuplicatedKey) {
					return err
				}
				order.Number = newOrderNumber()
				if err := tx.Create(&order).Error; err != nil {
					return err
				}
			}
			for i := range lines {
				lines[i].OrderID = order.ID
			}
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
			order.Items = lines

			notif := models.Notification{
				UserID:     biz.OwnerID,
				Type:       models.NotificationOrderPlaced,
				Title:      "New order " + order.Number,
				Body:       fmt.Sprintf("%d item(s), total %s", len(lines), models.PriceToString(total)),
				EntityType: "order",
				EntityID:   order.ID,
			}
			return tx.Create(&notif).Error
		})
		if err != nil {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return fe
			}
			logrus.WithError(err).Error("place order")
			return fiber.NewError(fiber.StatusInternalServerError, "could not place order")
		}

		order.Business = &biz
		return c.Status(fiber.StatusCreated).JSON(orderJSON(&order))
	}
}

// GET /api/orders returns the caller's own orders, newest first.
func ListMyOrdersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var orders []models.Order
		if err := db.Preload("Items").Preload("Business").
			Where("user_id = ?", userID).
			Order("created_at DESC").Limit(100).Find(&orders).Error; err != nil {
			logrus.WithError(err).Error("list user orders")
			return fiber.NewError(fiber.StatusInternalServerError, "could not list orders")
		}

		res := make([]fiber.Map, 0, len(orders))
		for i := range orders {
			res = append(res, orderJSON(&orders[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/dashboard/:businessID/orders?status&page&limit&search&startDate&endDate
func ListBusinessOrdersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var biz models.Business
		if err := db.Where("id = ? AND owner_id = ?", c.Params("businessID"), userID).
			First(&biz).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "business not found")
		}

		dbq := db.Model(&models.Order{}).Where("business_id = ?", biz.ID)

		if status := c.Query("status"); status != "" {
			if !models.ValidOrderStatus(models.OrderStatus(status)) {
				return fiber.NewError(fiber.StatusBadRequest, "unknown status filter")
			}
			dbq = dbq.Where("status = ?", status)
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			dbq = dbq.Where("number LIKE ?", "%"+strings.ToUpper(search)+"%")
		}
		if raw := c.Query("startDate"); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "startDate must be YYYY-MM-DD")
			}
			dbq = dbq.Where("created_at >= ?", t)
		}
		if raw := c.Query("endDate"); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "endDate must be YYYY-MM-DD")
			}
			dbq = dbq.Where("created_at < ?", t.AddDate(0, 0, 1)) // inclusive end day
		}

		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		limit := c.QueryInt("limit", defaultPageSize)
		if limit < 1 || limit > maxPageSize {
			limit = defaultPageSize
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			logrus.WithError(err).Error("count business orders")
			return fiber.NewError(fiber.StatusInternalServerError, "could not count orders")
		}
		totalPages := int((total + int64(limit) - 1) / int64(limit))

		var orders []models.Order
		if err := dbq.Preload("Items").Preload("User").
			Order("created_at DESC").
			Offset((page - 1) * limit).Limit(limit).
			Find(&orders).Error; err != nil {
			logrus.WithError(err).Error("list business orders")
			return fiber.NewError(fiber.StatusInternalServerError, "could not list orders")
		}

		res := make([]fiber.Map, 0, len(orders))
		for i := range orders {
			res = append(res, orderJSON(&orders[i]))
		}

		return c.JSON(fiber.Map{
			"orders": res,
			"pagination": fiber.Map{
				"page":       page,
				"limit":      limit,
				"total":      total,
				"totalPages": totalPages,
				"hasNext":    page < totalPages,
				"hasPrev":    page > 1 && total > 0,
			},
		})
	}
}

// PATCH /api/dashboard/:businessID/orders
//
// Any status in the enum may follow any other; there is deliberately no
// transition table.
func UpdateOrderStatusHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var biz models.Business
		if err := db.Where("id = ? AND owner_id = ?", c.Params("businessID"), userID).
			First(&biz).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "business not found")
		}

		var body UpdateStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if !models.ValidOrderStatus(body.Status) {
			return fiber.NewError(fiber.StatusBadRequest,
				"status must be one of pending|confirmed|preparing|ready|completed|cancelled")
		}

		var order models.Order
		if err := db.Where("id = ? AND business_id = ?", body.OrderID, biz.ID).
			First(&order).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}

		previous := order.Status
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&order).Update("status", body.Status).Error; err != nil {
				return err
			}
			notif := models.Notification{
				UserID:     order.UserID,
				Type:       models.NotificationOrderStatus,
				Title:      "Order " + order.Number + " is " + string(body.Status),
				EntityType: "order",
				EntityID:   order.ID,
			}
			if err := tx.Create(&notif).Error; err != nil {
				return err
			}
			return audit.Write(tx, audit.LogOptions{
				BusinessID:  &biz.ID,
				UserID:      userID,
				EntityType:  "order",
				EntityID:    order.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("order %s: %s -> %s", order.Number, previous, body.Status),
				Before:      fiber.Map{"status": previous},
				After:       fiber.Map{"status": body.Status},
			})
		})
		if err != nil {
			logrus.WithError(err).Error("update order status")
			return fiber.NewError(fiber.StatusInternalServerError, "could not update order status")
		}

		order.Status = body.Status
		return c.JSON(fiber.Map{
			"id":     order.ID,
			"number": order.Number,
			"status": order.Status,
		})
	}
}
