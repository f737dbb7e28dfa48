package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/apportal/apportal/internal/auth"
	"github.com/apportal/apportal/internal/metrics"
	"github.com/apportal/apportal/internal/storage"
)

// ObjectUploader stores an object and returns its public URL.
type ObjectUploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Pinner pins content and returns its gateway URL.
type Pinner interface {
	Add(ctx context.Context, filename string, data io.Reader) (string, error)
}

// UploadHandler handles file uploads to the object store and the IPFS pin
// service. Either collaborator may be absent when not configured.
type UploadHandler struct {
	logger        *slog.Logger
	uploader      ObjectUploader
	pinner        Pinner
	metrics       metrics.Recorder
	maxUploadSize int64
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(logger *slog.Logger, uploader ObjectUploader, pinner Pinner, recorder metrics.Recorder, maxUploadSize int64) *UploadHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UploadHandler{
		logger:        logger,
		uploader:      uploader,
		pinner:        pinner,
		metrics:       recorder,
		maxUploadSize: maxUploadSize,
	}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// Upload accepts a multipart file and stores it. With pin=true the file
// goes to the IPFS pin service, otherwise to the object store.
// POST /api/v1/uploads
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserIDFromContext(ctx)
	if userID == "" {
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "A file is required")
		return
	}
	defer file.Close()

	pin := r.FormValue("pin") == "true"

	start := time.Now()
	var url string
	switch {
	case pin && h.pinner != nil:
		url, err = h.pinner.Add(ctx, header.Filename, file)
	case !pin && h.uploader != nil:
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		url, err = h.uploader.Upload(ctx, storage.ObjectKey(), contentType, file)
	default:
		writeMessage(w, http.StatusServiceUnavailable, "Upload target is not configured")
		return
	}

	if err != nil {
		h.logger.Error("upload failed",
			slog.String("user_id", userID),
			slog.String("filename", header.Filename),
			slog.Bool("pin", pin),
			slog.String("error", err.Error()),
		)
		internalError(w)
		return
	}

	h.metrics.ObserveUploadDuration(time.Since(start))
	h.logger.Info("file uploaded",
		slog.String("user_id", userID),
		slog.String("filename", header.Filename),
		slog.Bool("pin", pin),
	)

	writeData(w, http.StatusCreated, "Upload complete", uploadResponse{URL: url})
}
