package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/chainsight_backend/config"
	"bitbucket.org/mmdatafocus/chainsight_backend/models"
	"bitbucket.org/mmdatafocus/chainsight_backend/utils"
	"bitbucket.org/mmdatafocus/chainsight_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type uploadSignRequest struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

type uploadCompleteRequest struct {
	ObjectKey string `json:"objectKey"`
	FileName  string `json:"fileName"`
}

type uploadSignResponse struct {
	UploadURL string            `json:"uploadUrl"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ObjectKey string            `json:"objectKey"`
	AccessURL string            `json:"accessUrl"`
	ExpiresAt string            `json:"expiresAt"`
}

type uploadCompleteResponse struct {
	UploadId  int    `json:"uploadId"`
	ObjectKey string `json:"objectKey"`
	FileName  string `json:"fileName"`
	RowCount  int    `json:"rowCount"`
	Status    string `json:"status"`
}

const maxUploadSizeBytes int64 = 10 * 1024 * 1024

var spreadsheetMimeTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

func signUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		requestID := requestIDFromHeaders(c)

		user, err := getSessionUser(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req uploadSignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		if req.FileName == "" || req.MimeType == "" || req.Size <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fileName, mimeType and size are required"})
			return
		}
		if req.Size > maxUploadSizeBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size exceeds 10MB limit"})
			return
		}
		if !spreadsheetMimeTypes[req.MimeType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type: only .xlsx spreadsheets are accepted"})
			return
		}

		ext := strings.ToLower(filepath.Ext(req.FileName))
		if ext != ".xlsx" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "only .xlsx files are allowed"})
			return
		}

		objectKey := path.Join(user.OrganizationId, "uploads", uuid.New().String()+ext)
		if utils.GetStorageProvider() != utils.StorageProviderGCS {
			c.JSON(http.StatusBadRequest, gin.H{"error": "storage provider not supported"})
			return
		}

		signed, err := utils.SignUpload(c.Request.Context(), objectKey, req.MimeType, 15*time.Minute)
		if err != nil {
			logUploadError(logger, err, utils.GetStorageProvider(), requestID)
			message := "failed to sign upload"
			if !strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
				message = fmt.Sprintf("failed to sign upload: %v", err)
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": message})
			return
		}

		logger.WithFields(logrus.Fields{
			"organization_id": user.OrganizationId,
			"mime_type":       req.MimeType,
			"size":            req.Size,
			"object_key":      objectKey,
		}).Info("[upload.sign]")

		c.JSON(http.StatusOK, gin.H{
			"data": uploadSignResponse{
				UploadURL: signed.UploadURL,
				Method:    signed.Method,
				Headers:   signed.Headers,
				ObjectKey: signed.ObjectKey,
				AccessURL: signed.AccessURL,
				ExpiresAt: signed.ExpiresAt.UTC().Format(time.RFC3339),
			},
		})
	}
}

func completeUploadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()
		requestID := requestIDFromHeaders(c)

		user, err := getSessionUser(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req uploadCompleteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		// Clients may send the access URL instead of the bare key.
		objectKey := utils.ExtractObjectKeyFromURL(req.ObjectKey)
		if objectKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "objectKey is required"})
			return
		}
		if !strings.HasPrefix(objectKey, user.OrganizationId+"/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid object key"})
			return
		}
		fileName := strings.TrimSpace(req.FileName)
		if fileName == "" {
			fileName = path.Base(objectKey)
		}

		exists, err := utils.ObjectExistsInGCS(c.Request.Context(), objectKey)
		if err != nil {
			logUploadError(logger, err, utils.GetStorageProvider(), requestID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify upload"})
			return
		}
		if !exists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "uploaded object not found"})
			return
		}

		ctx := c.Request.Context()
		ctx = utils.SetOrganizationIdInContext(ctx, user.OrganizationId)
		ctx = utils.SetUserIdInContext(ctx, user.ID)
		ctx = utils.SetUsernameInContext(ctx, user.Username)

		upload, err := workflow.ProcessSpreadsheetUpload(ctx, config.GetDB(), logger, user.OrganizationId, objectKey, fileName, user.Username)
		if err != nil {
			logUploadError(logger, err, utils.GetStorageProvider(), requestID)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logger.WithFields(logrus.Fields{
			"organization_id": user.OrganizationId,
			"object_key":      objectKey,
			"upload_id":       upload.ID,
			"row_count":       upload.RowCount,
			"status":          "completed",
		}).Info("[upload.complete]")

		c.JSON(http.StatusOK, gin.H{"data": uploadCompleteResponse{
			UploadId:  upload.ID,
			ObjectKey: upload.ObjectKey,
			FileName:  upload.FileName,
			RowCount:  upload.RowCount,
			Status:    string(upload.Status),
		}})
	}
}

func getSessionUser(ctx context.Context) (*models.User, error) {
	username := utils.GetUsernameFromContext(ctx)
	if username == "" {
		return nil, errors.New("unauthorized")
	}

	var user models.User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}
	if !exists {
		db := config.GetDB()
		if db == nil {
			return nil, errors.New("db is nil")
		}
		// Session users are looked up by username, before any tenant scoping.
		lookupCtx := utils.SetSkipTenantScopeInContext(ctx)
		if err := db.WithContext(lookupCtx).Model(&models.User{}).Where("username = ?", username).Take(&user).Error; err != nil {
			return nil, errors.New("unauthorized")
		}
	}
	if user.OrganizationId == "" {
		return nil, errors.New("unauthorized")
	}
	return &user, nil
}

func logUploadError(logger *logrus.Logger, err error, provider string, requestID string) {
	logger.WithFields(logrus.Fields{
		"error":      err.Error(),
		"provider":   provider,
		"request_id": requestID,
	}).Error("[upload.error]")
}

func requestIDFromHeaders(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader("X-Correlation-Id")); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.GetHeader("X-Request-Id")); id != "" {
		return id
	}
	return fmt.Sprintf("upload-%d", time.Now().UnixNano())
}
