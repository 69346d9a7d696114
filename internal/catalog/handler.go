package catalog

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sokoni-backend/internal/audit"
	"sokoni-backend/internal/auth"
	"sokoni-backend/internal/models"
	"sokoni-backend/internal/product"
)

const sheetName = "Menu"

var exportHeader = []string{
	"Name", "Category", "Subcategory", "Price", "Description",
	"Preparation Time", "Available", "Ingredients", "Dietary",
}

func ownedBusiness(db *gorm.DB, c *fiber.Ctx, userID uint) (*models.Business, error) {
	var biz models.Business
	if err := db.Where("id = ? AND owner_id = ?", c.Params("businessID"), userID).
		First(&biz).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "business not found")
	}
	return &biz, nil
}

// GET /api/catalog/:businessID/export
func ExportHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		biz, err := ownedBusiness(db, c, userID)
		if err != nil {
			return err
		}

		var items []models.MenuItem
		if err := db.Where("business_id = ?", biz.ID).
			Order("category asc, name asc").Find(&items).Error; err != nil {
			logrus.WithError(err).Error("load menu for export")
			return fiber.NewError(fiber.StatusInternalServerError, "could not load menu")
		}

		f := excelize.NewFile()
		defer f.Close()

		index, err := f.NewSheet(sheetName)
		if err != nil {
			logrus.WithError(err).Error("build export workbook")
			return fiber.NewError(fiber.StatusInternalServerError, "could not build workbook")
		}
		f.SetActiveSheet(index)
		f.DeleteSheet("Sheet1")

		for col, h := range exportHeader {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			f.SetCellValue(sheetName, cell, h)
		}

		for row, item := range items {
			values := []interface{}{
				item.Name,
				item.Category,
				item.Subcategory,
				models.PriceToString(item.Price),
				item.Description,
				item.PreparationTime,
				item.IsAvailable,
				strings.Join(models.FromJSONList(item.Ingredients), ", "),
				strings.Join(models.FromJSONList(item.DietaryInfo), ", "),
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				f.SetCellValue(sheetName, cell, v)
			}
		}

		buf, err := f.WriteToBuffer()
		if err != nil {
			logrus.WithError(err).Error("write export workbook")
			return fiber.NewError(fiber.StatusInternalServerError, "could not write workbook")
		}

		c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-menu.xlsx", biz.Username))
		return c.Send(buf.Bytes())
	}
}

type importRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// POST /api/catalog/:businessID/import
//
// Accepts the export layout back: Name | Category | Subcategory | Price,
// further columns optional. Rows that collide with an existing item (same
// composite identity) are skipped, not overwritten.
func ImportHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := auth.UserID(c)
		if err != nil {
			return err
		}

		biz, err := ownedBusiness(db, c, userID)
		if err != nil {
			return err
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file upload is required")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "only .xlsx files are supported")
		}

		file, err := fileHeader.Open()
		if err != nil {
			logrus.WithError(err).Error("open import upload")
			return fiber.NewError(fiber.StatusInternalServerError, "could not open upload")
		}
		defer file.Close()

		excelFile, err := excelize.OpenReader(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read Excel file")
		}
		defer excelFile.Close()

		sheets := excelFile.GetSheetList()
		if len(sheets) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "workbook has no sheets")
		}
		rows, err := excelFile.GetRows(sheets[0])
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read sheet")
		}
		if len(rows) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "sheet is empty")
		}

		start := 0
		if first := strings.ToUpper(strings.TrimSpace(cell(rows[0], 0))); first == "NAME" || strings.Contains(first, "PRODUCT") {
			start = 1
		}

		created := 0
		skipped := 0
		var rowErrors []importRowError

		for i := start; i < len(rows); i++ {
			row := rows[i]
			name := strings.TrimSpace(cell(row, 0))
			if name == "" {
				continue
			}
			rowNum := i + 1

			if len(name) < 2 || len(name) > 100 {
				rowErrors = append(rowErrors, importRowError{rowNum, "name must be 2-100 characters"})
				continue
			}
			category := strings.ToLower(strings.TrimSpace(cell(row, 1)))
			if !product.ValidCategory(category) {
				rowErrors = append(rowErrors, importRowError{rowNum, "unknown category: " + category})
				continue
			}
			subcategory := strings.ToLower(strings.TrimSpace(cell(row, 2)))
			if !product.ValidSubcategory(category, subcategory) {
				rowErrors = append(rowErrors, importRowError{rowNum, "unknown subcategory: " + subcategory})
				continue
			}
			priceMinor, err := models.PriceToMinor(strings.TrimSpace(cell(row, 3)))
			if err != nil || priceMinor == 0 {
				rowErrors = append(rowErrors, importRowError{rowNum, "price must be a positive decimal number"})
				continue
			}

			item := models.MenuItem{
				BusinessID:     biz.ID,
				Name:           name,
				NormalizedName: product.NormalizeName(name),
				Category:       category,
				Subcategory:    subcategory,
				Description:    strings.TrimSpace(cell(row, 4)),
				Price:          priceMinor,
				IsAvailable:    true,
			}

			res := db.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "business_id"}, {Name: "category"}, {Name: "normalized_name"},
				},
				DoNothing: true,
			}).Create(&item)
			if res.Error != nil {
				rowErrors = append(rowErrors, importRowError{rowNum, "could not insert row"})
				continue
			}
			if res.RowsAffected == 0 {
				skipped++
				continue
			}
			created++
		}

		_ = audit.Write(db, audit.LogOptions{
			BusinessID:  &biz.ID,
			UserID:      userID,
			EntityType:  "business",
			EntityID:    biz.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("imported menu from %s: %d created, %d skipped", fileHeader.Filename, created, skipped),
		})

		return c.JSON(fiber.Map{
			"created": created,
			"skipped": skipped,
			"errors":  rowErrors,
		})
	}
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
