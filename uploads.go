package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"bitbucket.org/gymfocus/maintenance_backend/config"
	"bitbucket.org/gymfocus/maintenance_backend/models"
	"bitbucket.org/gymfocus/maintenance_backend/utils"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxUploadSizeBytes int64 = 5 * 1024 * 1024

var imageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

type itemPhotoResponse struct {
	ItemId       int    `json:"item_id"`
	Kind         string `json:"kind"`
	PhotoURL     string `json:"photo_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	CanCloseTask bool   `json:"can_close_task"`
}

// itemPhotoUploadHandler receives one multipart photo for an inspection item:
// multipart field "photo" plus form field "kind" (deterioro|reparacion). The
// original and a 200px thumbnail go to GCS, the access URL is appended to the
// item's photo array and the close-task rule is recomputed.
func itemPhotoUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		itemId, err := strconv.Atoi(c.Param("id"))
		if err != nil || itemId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
			return
		}

		// Reject unknown items before any GCS work.
		if err := utils.ValidateResourceId[models.InspectionItem](c.Request.Context(), itemId); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		kind := models.PhotoKind(strings.TrimSpace(c.PostForm("kind")))
		if !kind.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be deterioro or reparacion"})
			return
		}

		fileHeader, err := c.FormFile("photo")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
			return
		}
		if fileHeader.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 5MB limit"})
			return
		}
		contentType := fileHeader.Header.Get("Content-Type")
		if !imageMimeTypes[contentType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read photo"})
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadSizeBytes+1))
		if err != nil || int64(len(data)) > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read photo"})
			return
		}

		ext := ".jpg"
		if contentType == "image/png" {
			ext = ".png"
		}
		centerId, _ := utils.GetCenterIdFromContext(c.Request.Context())
		if centerId == "" {
			centerId = "unknown"
		}
		objectKey := path.Join("maintenance", centerId, fmt.Sprintf("item-%d", itemId), uuid.NewString()+ext)

		ctx := c.Request.Context()
		if err := utils.UploadBytesToGCS(ctx, objectKey, data, contentType); err != nil {
			config.LogError(logger, "uploads.go", "itemPhotoUploadHandler", "upload original", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
			return
		}

		thumbnailKey := utils.ThumbnailObjectKey(objectKey)
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image"})
			return
		}
		thumbnail := imaging.Resize(img, 200, 0, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, thumbnail, imaging.JPEG); err != nil {
			config.LogError(logger, "uploads.go", "itemPhotoUploadHandler", "encode thumbnail", objectKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "thumbnail failed"})
			return
		}
		if err := utils.UploadBytesToGCS(ctx, thumbnailKey, buf.Bytes(), "image/jpeg"); err != nil {
			config.LogError(logger, "uploads.go", "itemPhotoUploadHandler", "upload thumbnail", thumbnailKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "thumbnail upload failed"})
			return
		}

		photoURL := utils.BuildObjectAccessURL(objectKey)
		item, err := models.AppendItemPhoto(ctx, itemId, kind, photoURL)
		if err != nil {
			// Orphan object cleanup, best-effort.
			_ = utils.DeleteObjectFromGCS(ctx, objectKey)
			_ = utils.DeleteObjectFromGCS(ctx, thumbnailKey)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logger.WithFields(logrus.Fields{
			"item_id":    itemId,
			"kind":       kind,
			"object_key": objectKey,
		}).Info("[upload.item-photo]")

		c.JSON(http.StatusOK, gin.H{"data": itemPhotoResponse{
			ItemId:       item.ID,
			Kind:         string(kind),
			PhotoURL:     photoURL,
			ThumbnailURL: utils.BuildObjectAccessURL(thumbnailKey),
			CanCloseTask: item.CanCloseTask,
		}})
	}
}
