package product

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"os"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sokoni-backend/internal/audit"
	"sokoni-backend/internal/auth"
	"sokoni-backend/internal/config"
	"sokoni-backend/internal/models"
)

var (
	errDuplicateItem = errors.New("duplicate menu item")
	errNoRowsUpdated = errors.New("update affected no rows")
	errTooManyImages = errors.New("too many images")
)

// NormalizeName is the canonical form used for duplicate detection:
// lowercased with whitespace runs collapsed.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

var menuItemConflictColumns = []clause.Column{
	{Name: "business_id"}, {Name: "category"}, {Name: "normalized_name"},
}

func ownedBusiness(db *gorm.DB, c *fiber.Ctx, userID uint) (*models.Business, error) {
	var biz models.Business
	if err := db.Where("id = ? AND owner_id = ?", c.Params("businessID"), userID).
		First(&biz).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "business not found")
	}
	return &biz, nil
}

func formVal(form *multipart.Form, key string) (string, bool) {
	if v, ok := form.Value[key]; ok && len(v) > 0 {
		return strings.TrimSpace(v[0]), true
	}
	return "", false
}

func parseTagList(raw, kind string, fields map[string]string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		fields[kind] = kind + " must be a JSON array of strings"
		return nil
	}
	for i, t := range tags {
		tags[i] = strings.TrimSpace(t)
		if tags[i] == "" || len(tags[i]) > 50 {
			fields[kind] = kind + " entries must be 1-50 characters"
			return nil
		}
	}
	if len(tags) > 30 {
		fields[kind] = "at most 30 " + kind + " entries"
		return nil
	}
	return tags
}

func validateImages(files []*multipart.FileHeader, max int, fields map[string]string) {
	if len(files) > max {
		fields["images"] = "at most " + strconv.Itoa(max) + " images per item"
		return
	}
	for _, fh := range files {
		if !validImageFile(fh) {
			fields["images"] = "unsupported image type: " + fh.Filename
			return
		}
	}
}

func imageJSON(img *models.MenuItemImage) fiber.Map {
	return fiber.Map{
		"id":         img.ID,
		"url":        img.URL,
		"alt_text":   img.AltText,
		"is_primary": img.IsPrimary,
		"sort_order": img.SortOrder,
	}
}

func itemJSON(m *models.MenuItem) fiber.Map {
	images := make([]fiber.Map, 0, len(m.Images))
	for i := range m.Images {
		images = append(images, imageJSON(&m.Images[i]))
	}
	return fiber.Map{
		"id":               m.ID,
		"business_id":      m.BusinessID,
		"name":             m.Name,
		"description":      m.Description,
		"price":            models.PriceToFloat(m.Price),
		"category":         m.Category,
		"subcategory":      m.Subcategory,
		"ingredients":      models.FromJSONList(m.Ingredients),
		"dietary_info":     models.FromJSONList(m.DietaryInfo),
		"preparation_time": m.PreparationTime,
		"is_available":     m.IsAvailable,
		"images":           images,
	}
}

func conflictResponse(c *fiber.Ctx, existing *models.MenuItem) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{
		"error": "a menu item with this name already exists in this category",
		"existing": fiber.Map{
			"id":       existing.ID,
			"name":     existing.Name,
			"category": existing.Category,
		},
	})
}

// POST /api/product/:businessID/add-product (multipart)
//
// Duplicate detection rides entirely on the composite unique index: the
// insert is conflict-do-nothing, and zero rows affected means 409.
func CreateProductHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		biz, err := ownedBusiness(db, c, userID)
		if err != nil {
			return err
		}

		form, err := c.MultipartForm()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "expected multipart form data")
		}

		fields := map[string]string{}

		name, _ := formVal(form, "name")
		if len(name) < 2 || len(name) > 100 {
			fields["name"] = "name must be between 2 and 100 characters"
		}

		priceStr, ok := formVal(form, "price")
		var priceMinor int64
		if !ok || priceStr == "" {
			fields["price"] = "price is required"
		} else if priceMinor, err = models.PriceToMinor(priceStr); err != nil {
			fields["price"] = "price must be a non-negative decimal number"
		} else if priceMinor == 0 {
			fields["price"] = "price must be greater than zero"
		}

		category, _ := formVal(form, "category")
		subcategory, _ := formVal(form, "subcategory")
		if !ValidCategory(category) {
			fields["category"] = "unknown category"
		} else if !ValidSubcategory(category, subcategory) {
			fields["subcategory"] = "unknown subcategory for " + category
		}

		description, _ := formVal(form, "description")
		if len(description) > 1000 {
			fields["description"] = "description must be at most 1000 characters"
		}

		var ingredients, dietary []string
		if raw, ok := formVal(form, "ingredients"); ok && raw != "" {
			ingredients = parseTagList(raw, "ingredients", fields)
		}
		if raw, ok := formVal(form, "dietary_info"); ok && raw != "" {
			dietary = parseTagList(raw, "dietary_info", fields)
			for _, t := range dietary {
				if !ValidDietaryTag(t) {
					fields["dietary_info"] = "unknown dietary tag: " + t
					break
				}
			}
		}

		prepTime := 0
		if raw, ok := formVal(form, "preparation_time"); ok && raw != "" {
			prepTime, err = strconv.Atoi(raw)
			if err != nil || prepTime < 0 || prepTime > 720 {
				fields["preparation_time"] = "preparation time must be 0-720 minutes"
			}
		}

		isAvailable := true
		if raw, ok := formVal(form, "is_available"); ok && raw == "false" {
			isAvailable = false
		}

		files := form.File["images"]
		validateImages(files, cfg.MaxProductImages, fields)

		if len(fields) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  "validation failed",
				"fields": fields,
			})
		}

		item := models.MenuItem{
			BusinessID:      biz.ID,
			Name:            name,
			NormalizedName:  NormalizeName(name),
			Category:        category,
			Subcategory:     subcategory,
			Description:     description,
			Price:           priceMinor,
			Ingredients:     models.ToJSONList(ingredients),
			DietaryInfo:     models.ToJSONList(dietary),
			PreparationTime: prepTime,
			IsAvailable:     isAvailable,
		}

		var conflict models.MenuItem
		err = db.Transaction(func(tx *gorm.DB) error {
			res := tx.Clauses(clause.OnConflict{
				Columns:   menuItemConflictColumns,
				DoNothing: true,
			}).Create(&item)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				tx.Where("business_id = ? AND category = ? AND normalized_name = ?",
					biz.ID, item.Category, item.NormalizedName).First(&conflict)
				return errDuplicateItem
			}

			for i, fh := range files {
				url, err := saveImageFile(c, fh, cfg.UploadPath, biz.ID, item.ID)
				if err != nil {
					return err
				}
				img := models.MenuItemImage{
					MenuItemID: item.ID,
					URL:        url,
					AltText:    item.Name,
					IsPrimary:  i == 0,
					SortOrder:  i,
				}
				if err := tx.Create(&img).Error; err != nil {
					return err
				}
				item.Images = append(item.Images, img)
			}

			return audit.Write(tx, audit.LogOptions{
				BusinessID:  &biz.ID,
				UserID:      userID,
				EntityType:  "menu_item",
				EntityID:    item.ID,
				Action:      models.AuditActionCreate,
				Description: "added menu item " + item.Name,
				After:       item,
			})
		})
		if errors.Is(err, errDuplicateItem) {
			return conflictResponse(c, &conflict)
		}
		if err != nil {
			logrus.WithError(err).Error("create menu item")
			return fiber.NewError(fiber.StatusInternalServerError, "could not create menu item")
		}

		return c.Status(fiber.StatusCreated).JSON(itemJSON(&item))
	}
}

// PUT /api/product/:businessID/add-edit-product/:productID (multipart)
//
// The changed-name/category pre-check is an early exit that also hands the
// caller the conflicting row; the unique index still backs it up if a
// concurrent write slips between check and update.
func EditProductHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		biz, err := ownedBusiness(db, c, userID)
		if err != nil {
			return err
		}

		var item models.MenuItem
		if err := db.Where("id = ? AND business_id = ?", c.Params("productID"), biz.ID).
			First(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "menu item not found")
		}
		before := item

		form, err := c.MultipartForm()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "expected multipart form data")
		}

		fields := map[string]string{}
		updates := map[string]interface{}{}

		newName := item.Name
		if raw, ok := formVal(form, "name"); ok {
			if len(raw) < 2 || len(raw) > 100 {
				fields["name"] = "name must be between 2 and 100 characters"
			} else {
				newName = raw
				updates["name"] = raw
				updates["normalized_name"] = NormalizeName(raw)
			}
		}

		newCategory := item.Category
		if raw, ok := formVal(form, "category"); ok {
			if !ValidCategory(raw) {
				fields["category"] = "unknown category"
			} else {
				newCategory = raw
				updates["category"] = raw
			}
		}
		if raw, ok := formVal(form, "subcategory"); ok {
			if !ValidSubcategory(newCategory, raw) {
				fields["subcategory"] = "unknown subcategory for " + newCategory
			} else {
				updates["subcategory"] = raw
			}
		} else if newCategory != item.Category && !ValidSubcategory(newCategory, item.Subcategory) {
			// Category changed without a new subcategory, and the current one
			// does not belong under the new parent.
			fields["subcategory"] = "subcategory " + item.Subcategory + " is not valid for " + newCategory
		}

		if raw, ok := formVal(form, "price"); ok {
			minor, err := models.PriceToMinor(raw)
			if err != nil || minor == 0 {
				fields["price"] = "price must be a positive decimal number"
			} else {
				updates["price"] = minor
			}
		}

		if raw, ok := formVal(form, "description"); ok {
			if len(raw) > 1000 {
				fields["description"] = "description must be at most 1000 characters"
			} else {
				updates["description"] = raw
			}
		}

		if raw, ok := formVal(form, "ingredients"); ok {
			if tags := parseTagList(raw, "ingredients", fields); fields["ingredients"] == "" {
				updates["ingredients"] = models.ToJSONList(tags)
			}
		}
		if raw, ok := formVal(form, "dietary_info"); ok {
			tags := parseTagList(raw, "dietary_info", fields)
			for _, t := range tags {
				if !ValidDietaryTag(t) {
					fields["dietary_info"] = "unknown dietary tag: " + t
					break
				}
			}
			if fields["dietary_info"] == "" {
				updates["dietary_info"] = models.ToJSONList(tags)
			}
		}

		if raw, ok := formVal(form, "preparation_time"); ok {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 || n > 720 {
				fields["preparation_time"] = "preparation time must be 0-720 minutes"
			} else {
				updates["preparation_time"] = n
			}
		}
		if raw, ok := formVal(form, "is_available"); ok {
			updates["is_available"] = raw != "false"
		}

		var deleteURLs []string
		if raw, ok := formVal(form, "delete_images"); ok && raw != "" {
			if err := json.Unmarshal([]byte(raw), &deleteURLs); err != nil {
				fields["delete_images"] = "delete_images must be a JSON array of URLs"
			}
		}

		files := form.File["images"]
		validateImages(files, cfg.MaxProductImages, fields)

		if len(fields) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  "validation failed",
				"fields": fields,
			})
		}

		// Early duplicate exit, only when the identity actually changed.
		if NormalizeName(newName) != item.NormalizedName || newCategory != item.Category {
			var existing models.MenuItem
			if err := db.Where(
				"business_id = ? AND category = ? AND normalized_name = ? AND id <> ?",
				biz.ID, newCategory, NormalizeName(newName), item.ID,
			).First(&existing).Error; err == nil {
				return conflictResponse(c, &existing)
			}
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if len(updates) > 0 {
				res := tx.Model(&models.MenuItem{}).
					Where("id = ? AND business_id = ?", item.ID, biz.ID).
					Updates(updates)
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return errNoRowsUpdated
				}
			}

			for _, url := range deleteURLs {
				if err := tx.Where("menu_item_id = ? AND url = ?", item.ID, url).
					Delete(&models.MenuItemImage{}).Error; err != nil {
					return err
				}
				if p := imageFilePath(cfg.UploadPath, url); p != "" {
					_ = os.Remove(p) // best effort, row is authoritative
				}
			}

			var remaining []models.MenuItemImage
			if err := tx.Where("menu_item_id = ?", item.ID).
				Order("sort_order asc").Find(&remaining).Error; err != nil {
				return err
			}
			if len(remaining)+len(files) > cfg.MaxProductImages {
				return errTooManyImages
			}

			maxSort := -1
			hasPrimary := false
			for _, img := range remaining {
				if img.SortOrder > maxSort {
					maxSort = img.SortOrder
				}
				if img.IsPrimary {
					hasPrimary = true
				}
			}

			for i, fh := range files {
				url, err := saveImageFile(c, fh, cfg.UploadPath, biz.ID, item.ID)
				if err != nil {
					return err
				}
				img := models.MenuItemImage{
					MenuItemID: item.ID,
					URL:        url,
					AltText:    newName,
					SortOrder:  maxSort + 1 + i,
				}
				if !hasPrimary && i == 0 {
					img.IsPrimary = true
					hasPrimary = true
				}
				if err := tx.Create(&img).Error; err != nil {
					return err
				}
			}

			// Deletions took the primary and nothing new arrived: promote
			// the lowest-sorted survivor.
			if !hasPrimary && len(remaining) > 0 {
				if err := tx.Model(&models.MenuItemImage{}).
					Where("id = ?", remaining[0].ID).
					Update("is_primary", true).Error; err != nil {
					return err
				}
			}

			return audit.Write(tx, audit.LogOptions{
				BusinessID:  &biz.ID,
				UserID:      userID,
				EntityType:  "menu_item",
				EntityID:    item.ID,
				Action:      models.AuditActionUpdate,
				Description: "edited menu item " + newName,
				Before:      before,
				After:       updates,
			})
		})
		switch {
		case errors.Is(err, errNoRowsUpdated):
			logrus.WithField("menu_item_id", item.ID).Error("menu item update affected no rows")
			return fiber.NewError(fiber.StatusInternalServerError, "update affected no rows")
		case errors.Is(err, errTooManyImages):
			return fiber.NewError(fiber.StatusBadRequest,
				"at most "+strconv.Itoa(cfg.MaxProductImages)+" images per item")
		case errors.Is(err, gorm.ErrDuplicatedKey):
			var existing models.MenuItem
			db.Where("business_id = ? AND category = ? AND normalized_name = ? AND id <> ?",
				biz.ID, newCategory, NormalizeName(newName), item.ID).First(&existing)
			return conflictResponse(c, &existing)
		case err != nil:
			logrus.WithError(err).Error("update menu item")
			return fiber.NewError(fiber.StatusInternalServerError, "could not update menu item")
		}

		var updated models.MenuItem
		if err := db.Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order asc")
		}).First(&updated, item.ID).Error; err != nil {
			logrus.WithError(err).Error("reload menu item")
			return fiber.NewError(fiber.StatusInternalServerError, "could not reload menu item")
		}

		return c.JSON(itemJSON(&updated))
	}
}

// GET /api/product/:businessID?category=&available=&q=
// Owner view: includes unavailable items.
func ListProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		biz, err := ownedBusiness(db, c, userID)
		if err != nil {
			return err
		}

		dbq := db.Model(&models.MenuItem{}).Where("business_id = ?", biz.ID)
		if cat := c.Query("category"); cat != "" {
			dbq = dbq.Where("category = ?", cat)
		}
		if avail := c.Query("available"); avail == "true" || avail == "false" {
			dbq = dbq.Where("is_available = ?", avail == "true")
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			dbq = dbq.Where("normalized_name LIKE ?", "%"+strings.ToLower(q)+"%")
		}

		var items []models.MenuItem
		if err := dbq.Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order asc")
		}).Order("category asc, name asc").Find(&items).Error; err != nil {
			logrus.WithError(err).Error("list menu items")
			return fiber.NewError(fiber.StatusInternalServerError, "could not list menu items")
		}

		res := make([]fiber.Map, 0, len(items))
		for i := range items {
			res = append(res, itemJSON(&items[i]))
		}
		return c.JSON(res)
	}
}

// DELETE /api/product/:businessID/:productID
func DeleteProductHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		biz, err := ownedBusiness(db, c, userID)
		if err != nil {
			return err
		}

		var item models.MenuItem
		if err := db.Preload("Images").
			Where("id = ? AND business_id = ?", c.Params("productID"), biz.ID).
			First(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "menu item not found")
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("menu_item_id = ?", item.ID).
				Delete(&models.MenuItemImage{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.MenuItem{}, item.ID).Error; err != nil {
				return err
			}
			return audit.Write(tx, audit.LogOptions{
				BusinessID:  &biz.ID,
				UserID:      userID,
				EntityType:  "menu_item",
				EntityID:    item.ID,
				Action:      models.AuditActionDelete,
				Description: "deleted menu item " + item.Name,
				Before:      item,
			})
		})
		if err != nil {
			logrus.WithError(err).Error("delete menu item")
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete menu item")
		}

		for _, img := range item.Images {
			if p := imageFilePath(cfg.UploadPath, img.URL); p != "" {
				_ = os.Remove(p)
			}
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
