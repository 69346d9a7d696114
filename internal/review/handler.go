package review

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sokoni-backend/internal/auth"
	"sokoni-backend/internal/models"
)

type CreateReviewRequest struct {
	BusinessID uint   `json:"business_id"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
}

type ReplyRequest struct {
	Body string `json:"body"`
}

func reviewJSON(r *models.Review) fiber.Map {
	res := fiber.Map{
		"id":          r.ID,
		"business_id": r.BusinessID,
		"rating":      r.Rating,
		"comment":     r.Comment,
		"created_at":  r.CreatedAt.Format(time.RFC3339),
	}
	if r.User != nil {
		res["user"] = fiber.Map{"id": r.User.ID, "name": r.User.Name, "image": r.User.Image}
	}
	if r.Reply != nil {
		res["reply"] = fiber.Map{
			"body":       r.Reply.Body,
			"created_at": r.Reply.CreatedAt.Format(time.RFC3339),
		}
	}
	return res
}

// recomputeRating refreshes the denormalized rating/review_count pair from
// the review rows, inside the caller's transaction.
func recomputeRating(tx *gorm.DB, businessID uint) error {
	var stats struct {
		Avg   float64
		Count int64
	}
	if err := tx.Model(&models.Review{}).
		Where("business_id = ?", businessID).
		Select("COALESCE(AVG(rating), 0) as avg, COUNT(*) as count").
		Scan(&stats).Error; err != nil {
		return err
	}
	return tx.Model(&models.Business{}).Where("id = ?", businessID).
		Updates(map[string]interface{}{
			"rating":       stats.Avg,
			"review_count": stats.Count,
		}).Error
}

// POST /api/reviews
func CreateReviewHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body CreateReviewRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.Rating < 1 || body.Rating > 5 {
			return fiber.NewError(fiber.StatusBadRequest, "rating must be 1-5")
		}
		if len(body.Comment) > 1000 {
			return fiber.NewError(fiber.StatusBadRequest, "comment must be at most 1000 characters")
		}

		var biz models.Business
		if err := db.First(&biz, body.BusinessID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "business not found")
		}
		if biz.OwnerID == userID {
			return fiber.NewError(fiber.StatusBadRequest, "you cannot review your own business")
		}

		rev := models.Review{
			UserID:     userID,
			BusinessID: biz.ID,
			Rating:     body.Rating,
			Comment:    strings.TrimSpace(body.Comment),
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&rev).Error; err != nil {
				return err
			}
			if err := recomputeRating(tx, biz.ID); err != nil {
				return err
			}
			notif := models.Notification{
				UserID:     biz.OwnerID,
				Type:       models.NotificationNewReview,
				Title:      "New review for " + biz.Name,
				EntityType: "review",
				EntityID:   rev.ID,
			}
			return tx.Create(&notif).Error
		})
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusConflict, "you have already reviewed this business")
		}
		if err != nil {
			logrus.WithError(err).Error("create review")
			return fiber.NewError(fiber.StatusInternalServerError, "could not create review")
		}

		return c.Status(fiber.StatusCreated).JSON(reviewJSON(&rev))
	}
}

// GET /api/business/:username/reviews (public)
func ListReviewsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var biz models.Business
		if err := db.Where("username = ?", c.Params("username")).First(&biz).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "business not found")
		}

		var reviews []models.Review
		if err := db.Preload("User").Preload("Reply").
			Where("business_id = ?", biz.ID).
			Order("created_at DESC").Limit(100).Find(&reviews).Error; err != nil {
			logrus.WithError(err).Error("list reviews")
			return fiber.NewError(fiber.StatusInternalServerError, "could not list reviews")
		}

		res := make([]fiber.Map, 0, len(reviews))
		for i := range reviews {
			res = append(res, reviewJSON(&reviews[i]))
		}
		return c.JSON(fiber.Map{
			"rating":       biz.Rating,
			"review_count": biz.ReviewCount,
			"reviews":      res,
		})
	}
}

// POST /api/reviews/:id/reply. One reply, by the business owner.
func ReplyHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var rev models.Review
		if err := db.Preload("Business").First(&rev, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "review not found")
		}
		if rev.Business == nil || rev.Business.OwnerID != userID {
			return fiber.NewError(fiber.StatusNotFound, "review not found")
		}

		var body ReplyRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Body = strings.TrimSpace(body.Body)
		if body.Body == "" || len(body.Body) > 1000 {
			return fiber.NewError(fiber.StatusBadRequest, "reply must be 1-1000 characters")
		}

		reply := models.ReviewReply{ReviewID: rev.ID, Body: body.Body}
		if err := db.Create(&reply).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "this review already has a reply")
			}
			logrus.WithError(err).Error("create review reply")
			return fiber.NewError(fiber.StatusInternalServerError, "could not create reply")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":         reply.ID,
			"review_id":  reply.ReviewID,
			"body":       reply.Body,
			"created_at": reply.CreatedAt.Format(time.RFC3339),
		})
	}
}
