package product

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

func validImageFile(fh *multipart.FileHeader) bool {
	return allowedImageExts[strings.ToLower(filepath.Ext(fh.Filename))]
}

// saveImageFile stores an upload under <root>/<businessID>/<itemID>/ with a
// random filename and returns the public URL. The URL mirrors the on-disk
// layout under the /uploads static route.
func saveImageFile(c *fiber.Ctx, fh *multipart.FileHeader, root string, businessID, itemID uint) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	name := uuid.NewString() + ext

	dir := filepath.Join(root, fmt.Sprint(businessID), fmt.Sprint(itemID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := c.SaveFile(fh, filepath.Join(dir, name)); err != nil {
		return "", err
	}

	return fmt.Sprintf("/uploads/%d/%d/%s", businessID, itemID, name), nil
}

// imageFilePath maps a stored image URL back to its path on disk. Returns
// "" for URLs outside the uploads namespace.
func imageFilePath(root, url string) string {
	const prefix = "/uploads/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	rel := filepath.FromSlash(strings.TrimPrefix(url, prefix))
	if strings.Contains(rel, "..") {
		return ""
	}
	return filepath.Join(root, rel)
}
