package utils

import (
	"os"
	"strings"
)

// BuildObjectAccessURL turns a GCS object key into the public URL stored on
// inspection items. Falls back to the raw key when storage envs are missing
// (local dev), which keeps the photo arrays usable in tests.
func BuildObjectAccessURL(objectKey string) string {
	gcsURL := strings.TrimSpace(os.Getenv("GCS_URL"))
	gcsBucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	if gcsURL != "" && gcsBucket != "" {
		return "https://" + gcsURL + "/" + gcsBucket + "/" + objectKey
	}
	return objectKey
}

// ThumbnailObjectKey derives the thumbnail key next to the original object.
func ThumbnailObjectKey(objectKey string) string {
	dot := strings.LastIndex(objectKey, ".")
	if dot <= 0 {
		return objectKey + "_thumb"
	}
	return objectKey[:dot] + "_thumb.jpg"
}
