package transport

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/x-xaie/cloud-IR/internal/config"
	apperrors "github.com/x-xaie/cloud-IR/internal/errors"
	"github.com/x-xaie/cloud-IR/internal/logger"
	"github.com/x-xaie/cloud-IR/internal/service"
	"github.com/x-xaie/cloud-IR/internal/storage"
	"github.com/x-xaie/cloud-IR/pkg/models"
)

// Image uploads larger than the configured cap or wider/taller than
// this are rejected before any bytes reach storage.
const maxImageDimension = 4000

var allowedFormats = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
}

// NewHandler builds the HTTP surface: upload, analyze, retrieval,
// search, stats, and health.
func NewHandler(svc service.AnalysisService, uploader storage.BlobUploader, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(
		requestSizeLimiter(cfg.MaxUploadSize + 1024*1024),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.POST("/images/upload", uploadImage(uploader, cfg))
	r.POST("/images/:id/analyze", analyzeImage(svc, cfg))
	r.GET("/images/:id/results", getResults(svc))
	r.GET("/results/search", searchResults(svc))
	r.GET("/results/stats", getStats(svc))

	return r
}

func uploadImage(uploader storage.BlobUploader, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		fileHeader, err := firstFile(c)
		if err != nil {
			respondError(c, http.StatusBadRequest, "no image file in request", err)
			return
		}

		if fileHeader.Size > cfg.MaxUploadSize {
			respondError(c, http.StatusBadRequest, "image exceeds size limit",
				apperrors.NewValidationError(fmt.Sprintf("file is %d bytes, limit is %d", fileHeader.Size, cfg.MaxUploadSize), nil))
			return
		}

		data, err := readFile(fileHeader)
		if err != nil {
			respondError(c, http.StatusBadRequest, "could not read uploaded file", err)
			return
		}

		imgConfig, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			respondError(c, http.StatusBadRequest, "unsupported image format",
				apperrors.NewValidationError("only JPEG and PNG images are accepted", err))
			return
		}
		ext, ok := allowedFormats[format]
		if !ok {
			respondError(c, http.StatusBadRequest, "unsupported image format",
				apperrors.NewValidationError(fmt.Sprintf("format %q is not accepted", format), nil))
			return
		}
		if imgConfig.Width > maxImageDimension || imgConfig.Height > maxImageDimension {
			respondError(c, http.StatusBadRequest, "image dimensions too large",
				apperrors.NewValidationError(fmt.Sprintf("%dx%d exceeds %dpx limit", imgConfig.Width, imgConfig.Height, maxImageDimension), nil))
			return
		}

		now := time.Now().UTC()
		imageID := uuid.NewString()
		blobName := fmt.Sprintf("%s_%s.%s", now.Format("20060102_150405"), imageID, ext)
		meta := models.UploadMetadata{
			OriginalName: fileHeader.Filename,
			FileSize:     fileHeader.Size,
			Dimensions:   fmt.Sprintf("%dx%d", imgConfig.Width, imgConfig.Height),
			Format:       format,
			UploadTime:   now,
		}

		uploadURL, err := uploader.Upload(c.Request.Context(), blobName, data, &meta)
		if err != nil {
			storageErr := apperrors.NewStorageError("failed to store uploaded image", err)
			respondError(c, apperrors.GetStatusCode(storageErr), "upload failed", storageErr)
			return
		}

		logger.WithFields(logrus.Fields{
			"image_id":  imageID,
			"blob_name": blobName,
			"size":      fileHeader.Size,
			"format":    format,
		}).Info("Image uploaded")

		c.JSON(http.StatusOK, models.UploadResponse{
			Success:   true,
			ImageID:   imageID,
			BlobName:  blobName,
			UploadURL: uploadURL,
			Message:   "image uploaded successfully",
			Metadata:  meta,
		})
	}
}

func analyzeImage(svc service.AnalysisService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		imageID := c.Param("id")

		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"image_id": imageID,
			"ip":       c.ClientIP(),
		}).Info("Processing analysis request")

		var req models.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.WithError(err).WithField("ip", c.ClientIP()).Error("Invalid request format")
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		result, err := svc.RunAnalysisPipeline(ctx, service.PipelineRequest{
			ImageID:  imageID,
			ImageURL: req.ImageURL,
			BlobRef:  req.BlobName,
			Metadata: &req.Metadata,
		})
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "analysis failed", err)
			return
		}

		c.JSON(http.StatusOK, models.AnalyzeResponse{
			Success: true,
			ImageID: imageID,
			Cached:  result.Persisted,
			Results: result.Record,
		})
	}
}

func getResults(svc service.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := svc.GetResult(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "result lookup failed", err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func searchResults(svc service.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		daysBack := intQuery(c, "daysBack", 0)
		maxResults := intQuery(c, "maxResults", 0)
		filters := models.SearchFilters{
			HasFaces:   c.Query("hasFaces") == "true",
			HasObjects: c.Query("hasObjects") == "true",
			HasText:    c.Query("hasText") == "true",
		}

		records, err := svc.SearchResults(c.Request.Context(), daysBack, maxResults, filters)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "search failed", err)
			return
		}

		c.JSON(http.StatusOK, models.SearchResponse{
			Success: true,
			Count:   len(records),
			Results: records,
		})
	}
}

func getStats(svc service.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := svc.GetStats(c.Request.Context(), intQuery(c, "daysBack", 0))
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "stats computation failed", err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "cloud-ir",
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// firstFile returns the first file part of the multipart form,
// whatever its field name.
func firstFile(c *gin.Context) (*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("request is not multipart form data", err)
	}
	for _, headers := range form.File {
		if len(headers) > 0 {
			return headers[0], nil
		}
	}
	return nil, apperrors.NewValidationError("multipart form contains no file", nil)
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			respondError(c, apperrors.GetStatusCode(err.Err), "request processing failed", err)
		}
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
