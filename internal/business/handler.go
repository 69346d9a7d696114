package business

import (
	"errors"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sokoni-backend/internal/audit"
	"sokoni-backend/internal/auth"
	"sokoni-backend/internal/config"
	"sokoni-backend/internal/models"
)

// How many suffixed usernames to try before giving up. Collisions past the
// first couple of attempts only happen when registrations race.
const maxUsernameAttempts = 20

var validBusinessTypes = map[string]bool{
	"home_chef":  true,
	"restaurant": true,
	"bakery":     true,
	"caterer":    true,
	"food_truck": true,
}

var validDays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

var hoursRangeRe = regexp.MustCompile(`^\d{2}:\d{2}-\d{2}:\d{2}$`)

type RegisterRequest struct {
	Name         string            `json:"name"`
	BusinessType string            `json:"business_type"`
	Tagline      string            `json:"tagline"`
	Bio          string            `json:"bio"`
	Location     string            `json:"location"`
	Phone        string            `json:"phone"`
	Logo         string            `json:"logo"`
	Cuisine      []string          `json:"cuisine"`
	OpeningHours map[string]string `json:"opening_hours"`
}

type UpdateRequest struct {
	Tagline      *string            `json:"tagline"`
	Bio          *string            `json:"bio"`
	Location     *string            `json:"location"`
	Phone        *string            `json:"phone"`
	Logo         *string            `json:"logo"`
	Cuisine      *[]string          `json:"cuisine"`
	OpeningHours *map[string]string `json:"opening_hours"`
}

func BusinessJSON(b *models.Business) fiber.Map {
	return fiber.Map{
		"id":            b.ID,
		"owner_id":      b.OwnerID,
		"name":          b.Name,
		"username":      b.Username,
		"business_type": b.BusinessType,
		"tagline":       b.Tagline,
		"bio":           b.Bio,
		"location":      b.Location,
		"phone":         b.Phone,
		"logo":          b.Logo,
		"cuisine":       models.FromJSONList(b.Cuisine),
		"opening_hours": models.FromJSONMap(b.OpeningHours),
		"rating":        b.Rating,
		"review_count":  b.ReviewCount,
		"is_open":       b.IsOpen,
	}
}

func validateRegister(body *RegisterRequest) map[string]string {
	fields := map[string]string{}

	body.Name = strings.TrimSpace(body.Name)
	if len(body.Name) < 2 || len(body.Name) > 100 {
		fields["name"] = "name must be between 2 and 100 characters"
	}
	if !validBusinessTypes[body.BusinessType] {
		fields["business_type"] = "unknown business type"
	}
	if len(body.Tagline) > 150 {
		fields["tagline"] = "tagline must be at most 150 characters"
	}
	if len(body.Bio) > 1000 {
		fields["bio"] = "bio must be at most 1000 characters"
	}
	if len(body.Cuisine) > 10 {
		fields["cuisine"] = "at most 10 cuisine tags"
	} else {
		for i, tag := range body.Cuisine {
			tag = strings.TrimSpace(tag)
			if tag == "" || len(tag) > 30 {
				fields["cuisine"] = "cuisine tags must be 1-30 characters"
				break
			}
			body.Cuisine[i] = tag
		}
	}
	for day, rng := range body.OpeningHours {
		if !validDays[strings.ToLower(day)] {
			fields["opening_hours"] = "unknown day: " + day
			break
		}
		if rng != "closed" && !hoursRangeRe.MatchString(rng) {
			fields["opening_hours"] = "hours must be 'HH:MM-HH:MM' or 'closed'"
			break
		}
	}

	return fields
}

// POST /api/business/register
//
// Username uniqueness is owned by the unique column; the LIKE query below
// only picks a likely-free starting suffix. Racing registrations fall into
// the retry loop via the duplicate-key error.
func RegisterHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if fields := validateRegister(&body); len(fields) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  "validation failed",
				"fields": fields,
			})
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}

		// One business per (owner, name).
		var count int64
		db.Model(&models.Business{}).
			Where("owner_id = ? AND lower(name) = lower(?)", userID, body.Name).
			Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "you already have a business with this name")
		}

		base := Slugify(body.Name)
		if base == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  "validation failed",
				"fields": map[string]string{"name": "name must contain letters or digits"},
			})
		}

		var taken []string
		db.Model(&models.Business{}).
			Where("username = ? OR username LIKE ?", base, base+"-%").
			Pluck("username", &taken)
		takenSet := make(map[string]bool, len(taken))
		for _, t := range taken {
			takenSet[t] = true
		}
		start := 0
		for takenSet[CandidateUsername(base, start)] {
			start++
		}

		var biz models.Business
		created := false
		for n := start; n < start+maxUsernameAttempts; n++ {
			biz = models.Business{
				OwnerID:      userID,
				Name:         body.Name,
				Username:     CandidateUsername(base, n),
				BusinessType: body.BusinessType,
				Tagline:      strings.TrimSpace(body.Tagline),
				Bio:          strings.TrimSpace(body.Bio),
				Location:     strings.TrimSpace(body.Location),
				Phone:        strings.TrimSpace(body.Phone),
				Logo:         strings.TrimSpace(body.Logo),
				Cuisine:      models.ToJSONList(body.Cuisine),
				OpeningHours: models.ToJSONMap(body.OpeningHours),
				IsOpen:       true,
			}

			err = db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(&biz).Error; err != nil {
					return err
				}
				if user.Role != models.RoleSeller {
					if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
						Update("role", models.RoleSeller).Error; err != nil {
						return err
					}
					user.Role = models.RoleSeller
				}
				return audit.Write(tx, audit.LogOptions{
					BusinessID:  &biz.ID,
					UserID:      user.ID,
					UserName:    user.Name,
					EntityType:  "business",
					EntityID:    biz.ID,
					Action:      models.AuditActionCreate,
					Description: "registered business " + biz.Name,
					After:       biz,
				})
			})
			if err == nil {
				created = true
				break
			}
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue // username taken by a concurrent registration
			}
			logrus.WithError(err).Error("create business")
			return fiber.NewError(fiber.StatusInternalServerError, "could not create business")
		}
		if !created {
			logrus.Errorf("no free username for base %q after %d attempts", base, maxUsernameAttempts)
			return fiber.NewError(fiber.StatusInternalServerError, "could not allocate a unique username")
		}

		// The role claim in the caller's token just went stale; hand back a
		// fresh one so seller routes work without a re-login.
		token, err := auth.GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			logrus.WithError(err).Error("issue token after registration")
			return fiber.NewError(fiber.StatusInternalServerError, "could not issue token")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"token":    token,
			"business": BusinessJSON(&biz),
			"user": fiber.Map{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
				"role":  user.Role,
			},
		})
	}
}

// GET /api/business/:username (public)
func GetBusinessHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username := c.Params("username")

		var biz models.Business
		if err := db.Preload("MenuItems", "is_available = ?", true).
			Preload("MenuItems.Images").
			Where("username = ?", username).First(&biz).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "business not found")
		}

		items := make([]fiber.Map, 0, len(biz.MenuItems))
		for i := range biz.MenuItems {
			m := &biz.MenuItems[i]
			images := make([]fiber.Map, 0, len(m.Images))
			for _, img := range m.Images {
				images = append(images, fiber.Map{
					"url":        img.URL,
					"alt_text":   img.AltText,
					"is_primary": img.IsPrimary,
					"sort_order": img.SortOrder,
				})
			}
			items = append(items, fiber.Map{
				"id":               m.ID,
				"name":             m.Name,
				"description":      m.Description,
				"price":            models.PriceToFloat(m.Price),
				"category":         m.Category,
				"subcategory":      m.Subcategory,
				"dietary_info":     models.FromJSONList(m.DietaryInfo),
				"preparation_time": m.PreparationTime,
				"images":           images,
			})
		}

		res := BusinessJSON(&biz)
		res["menu"] = items
		return c.JSON(res)
	}
}

// findOwned loads a business by id scoped to the caller. A business that
// exists but belongs to someone else looks identical to a missing one.
func findOwned(db *gorm.DB, id string, ownerID uint) (*models.Business, error) {
	var biz models.Business
	if err := db.Where("id = ? AND owner_id = ?", id, ownerID).First(&biz).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "business not found")
	}
	return &biz, nil
}

// PUT /api/business/:id
func UpdateBusinessHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		biz, err := findOwned(db, c.Params("id"), userID)
		if err != nil {
			return err
		}
		before := *biz

		var body UpdateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.Tagline != nil {
			if len(*body.Tagline) > 150 {
				return fiber.NewError(fiber.StatusBadRequest, "tagline must be at most 150 characters")
			}
			biz.Tagline = strings.TrimSpace(*body.Tagline)
		}
		if body.Bio != nil {
			if len(*body.Bio) > 1000 {
				return fiber.NewError(fiber.StatusBadRequest, "bio must be at most 1000 characters")
			}
			biz.Bio = strings.TrimSpace(*body.Bio)
		}
		if body.Location != nil {
			biz.Location = strings.TrimSpace(*body.Location)
		}
		if body.Phone != nil {
			biz.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Logo != nil {
			biz.Logo = strings.TrimSpace(*body.Logo)
		}
		if body.Cuisine != nil {
			if len(*body.Cuisine) > 10 {
				return fiber.NewError(fiber.StatusBadRequest, "at most 10 cuisine tags")
			}
			biz.Cuisine = models.ToJSONList(*body.Cuisine)
		}
		if body.OpeningHours != nil {
			for day, rng := range *body.OpeningHours {
				if !validDays[strings.ToLower(day)] {
					return fiber.NewError(fiber.StatusBadRequest, "unknown day: "+day)
				}
				if rng != "closed" && !hoursRangeRe.MatchString(rng) {
					return fiber.NewError(fiber.StatusBadRequest, "hours must be 'HH:MM-HH:MM' or 'closed'")
				}
			}
			biz.OpeningHours = models.ToJSONMap(*body.OpeningHours)
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(biz).Error; err != nil {
				return err
			}
			return audit.Write(tx, audit.LogOptions{
				BusinessID:  &biz.ID,
				UserID:      userID,
				EntityType:  "business",
				EntityID:    biz.ID,
				Action:      models.AuditActionUpdate,
				Description: "updated business settings",
				Before:      before,
				After:       *biz,
			})
		})
		if err != nil {
			logrus.WithError(err).Error("update business")
			return fiber.NewError(fiber.StatusInternalServerError, "could not update business")
		}

		return c.JSON(BusinessJSON(biz))
	}
}

// PATCH /api/business/:id/open
func ToggleOpenHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		biz, err := findOwned(db, c.Params("id"), userID)
		if err != nil {
			return err
		}

		var body struct {
			IsOpen *bool `json:"is_open"`
		}
		if err := c.BodyParser(&body); err != nil || body.IsOpen == nil {
			return fiber.NewError(fiber.StatusBadRequest, "is_open is required")
		}

		if err := db.Model(biz).Update("is_open", *body.IsOpen).Error; err != nil {
			logrus.WithError(err).Error("toggle business open state")
			return fiber.NewError(fiber.StatusInternalServerError, "could not update business")
		}
		biz.IsOpen = *body.IsOpen

		return c.JSON(fiber.Map{"id": biz.ID, "is_open": biz.IsOpen})
	}
}
