package favorite

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sokoni-backend/internal/auth"
	"sokoni-backend/internal/models"
)

// POST /api/favorites/:businessID toggles and returns the new state.
func ToggleFavoriteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var biz models.Business
		if err := db.First(&biz, "id = ?", c.Params("businessID")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "business not found")
		}

		var existing models.Favorite
		err = db.Where("user_id = ? AND business_id = ?", userID, biz.ID).First(&existing).Error
		if err == nil {
			if err := db.Delete(&existing).Error; err != nil {
				logrus.WithError(err).Error("remove favorite")
				return fiber.NewError(fiber.StatusInternalServerError, "could not remove favorite")
			}
			return c.JSON(fiber.Map{"business_id": biz.ID, "favorited": false})
		}

		fav := models.Favorite{UserID: userID, BusinessID: biz.ID}
		if err := db.Create(&fav).Error; err != nil {
			// A concurrent toggle already created it; report the state.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return c.JSON(fiber.Map{"business_id": biz.ID, "favorited": true})
			}
			logrus.WithError(err).Error("add favorite")
			return fiber.NewError(fiber.StatusInternalServerError, "could not add favorite")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"business_id": biz.ID, "favorited": true})
	}
}

// GET /api/favorites
func ListFavoritesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var favorites []models.Favorite
		if err := db.Preload("Business").
			Where("user_id = ?", userID).
			Order("created_at DESC").Find(&favorites).Error; err != nil {
			logrus.WithError(err).Error("list favorites")
			return fiber.NewError(fiber.StatusInternalServerError, "could not list favorites")
		}

		res := make([]fiber.Map, 0, len(favorites))
		for _, f := range favorites {
			if f.Business == nil {
				continue
			}
			res = append(res, fiber.Map{
				"id":           f.Business.ID,
				"name":         f.Business.Name,
				"username":     f.Business.Username,
				"tagline":      f.Business.Tagline,
				"logo":         f.Business.Logo,
				"rating":       f.Business.Rating,
				"review_count": f.Business.ReviewCount,
				"is_open":      f.Business.IsOpen,
			})
		}
		return c.JSON(res)
	}
}
