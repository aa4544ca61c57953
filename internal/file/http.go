package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/abduss/easyshare/internal/auth"
	"github.com/abduss/easyshare/internal/logger"
	"github.com/abduss/easyshare/internal/metrics"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipartOverhead is the slack allowed on top of the file limit for form framing.
const multipartOverhead = 1 << 20

const uploadInterruptedMessage = "Upload failed, the transfer was interrupted"

// RegisterRoutes mounts the upload page, upload form target and downloads.
// The group is expected to enforce a session.
func RegisterRoutes(group gin.IRoutes, service *Service, baseURL string) {
	handler := &httpHandler{service: service, baseURL: baseURL}
	group.GET("/upload", handler.uploadPage)
	group.POST("/upload", handler.uploadFile)
	group.GET("/download/:storedName", handler.downloadFile)
}

type httpHandler struct {
	service *Service
	baseURL string
}

type fileView struct {
	OriginalName string
	DownloadPath string
	ShareLink    string
	Uploader     string
	Size         string
	UploadedAt   string
}

func (h *httpHandler) uploadPage(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	files := []fileView{}
	for rec, err := range h.service.All(c.Request.Context()) {
		if err != nil {
			logger.FromContext(c).Error("list uploads", zap.Error(err))
			c.HTML(http.StatusServiceUnavailable, "error.html", gin.H{
				"Status":  http.StatusServiceUnavailable,
				"Message": "The file list is temporarily unavailable.",
			})
			return
		}
		downloadPath := "/download/" + url.PathEscape(rec.StoredName)
		files = append(files, fileView{
			OriginalName: rec.OriginalName,
			DownloadPath: downloadPath,
			ShareLink:    h.baseURL + downloadPath,
			Uploader:     rec.Uploader,
			Size:         humanize.Bytes(uint64(rec.SizeBytes)),
			UploadedAt:   rec.CreatedAt.Format(time.RFC3339),
		})
	}

	c.HTML(http.StatusOK, "upload.html", gin.H{
		"Username": user.Username,
		"Files":    files,
		"Error":    c.Query("error"),
		"Notice":   c.Query("notice"),
		"MaxSize":  humanize.Bytes(uint64(h.service.MaxFileSize())),
	})
}

func (h *httpHandler) uploadFile(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.service.MaxFileSize()+multipartOverhead)

	reader, err := c.Request.MultipartReader()
	if err != nil {
		metrics.ObserveUpload(metrics.OutcomeRejected, 0)
		h.redirectUpload(c, user.Username, "error", "Please upload a file")
		return
	}

	for {
		part, err := reader.NextPart()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				metrics.ObserveUpload(metrics.OutcomeRejected, 0)
				h.redirectUpload(c, user.Username, "error", h.tooLargeMessage())
				return
			}
			// io.EOF or a malformed body: no usable file part
			metrics.ObserveUpload(metrics.OutcomeRejected, 0)
			h.redirectUpload(c, user.Username, "error", "Please upload a file")
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		h.storePart(c, user.Username, part.FileName(), part.Header.Get("Content-Type"), part)
		part.Close()
		return
	}
}

func (h *httpHandler) storePart(c *gin.Context, username, filename, contentType string, body io.Reader) {
	if filename == "" {
		metrics.ObserveUpload(metrics.OutcomeRejected, 0)
		h.redirectUpload(c, username, "error", "Please upload a file")
		return
	}

	rec, err := h.service.Store(c.Request.Context(), StoreInput{
		Uploader:     username,
		OriginalName: filename,
		ContentType:  contentType,
		Body:         body,
	})
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, ErrEmptyUpload):
			metrics.ObserveUpload(metrics.OutcomeRejected, 0)
			h.redirectUpload(c, username, "error", "Please upload a file")
		case errors.Is(err, ErrFileTooLarge), errors.As(err, &maxErr):
			metrics.ObserveUpload(metrics.OutcomeRejected, 0)
			h.redirectUpload(c, username, "error", h.tooLargeMessage())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// the client may be gone, but a live one still needs an answer
			metrics.ObserveUpload(metrics.OutcomeError, 0)
			logger.FromContext(c).Info("upload interrupted", zap.String("filename", filename), zap.Error(err))
			h.redirectUpload(c, username, "error", uploadInterruptedMessage)
		default:
			metrics.ObserveUpload(metrics.OutcomeError, 0)
			logger.FromContext(c).Error("store upload", zap.String("filename", filename), zap.Error(err))
			h.redirectUpload(c, username, "error", "Upload failed, please try again")
		}
		return
	}

	metrics.ObserveUpload(metrics.OutcomeOK, rec.SizeBytes)
	logger.FromContext(c).Info("upload stored",
		zap.String("stored_name", rec.StoredName),
		zap.String("uploader", rec.Uploader),
		zap.Int64("size_bytes", rec.SizeBytes),
	)
	h.redirectUpload(c, username, "notice", fmt.Sprintf("Uploaded %s", rec.OriginalName))
}

func (h *httpHandler) downloadFile(c *gin.Context) {
	rec, reader, err := h.service.Fetch(c.Request.Context(), c.Param("storedName"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.ObserveDownload(metrics.OutcomeRejected)
			c.HTML(http.StatusNotFound, "error.html", gin.H{
				"Status":  http.StatusNotFound,
				"Message": "File not found.",
			})
			return
		}
		metrics.ObserveDownload(metrics.OutcomeError)
		logger.FromContext(c).Error("fetch upload", zap.String("stored_name", c.Param("storedName")), zap.Error(err))
		c.HTML(http.StatusServiceUnavailable, "error.html", gin.H{
			"Status":  http.StatusServiceUnavailable,
			"Message": "The file is temporarily unavailable.",
		})
		return
	}
	defer reader.Close()

	metrics.ObserveDownload(metrics.OutcomeOK)
	c.DataFromReader(http.StatusOK, rec.SizeBytes, rec.ContentType, reader, map[string]string{
		"Content-Disposition":    contentDisposition(rec.OriginalName),
		"X-Content-Type-Options": "nosniff",
	})
}

func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return `attachment; filename="download"`
}

func (h *httpHandler) tooLargeMessage() string {
	return fmt.Sprintf("File exceeds the maximum size of %s", humanize.Bytes(uint64(h.service.MaxFileSize())))
}

func (h *httpHandler) redirectUpload(c *gin.Context, username, key, message string) {
	query := url.Values{}
	query.Set("username", username)
	query.Set(key, message)
	c.Redirect(http.StatusSeeOther, "/upload?"+query.Encode())
}
