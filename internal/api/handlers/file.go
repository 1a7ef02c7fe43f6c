package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"

	"github.com/yemaney/filevector/internal/api/middleware"
	"github.com/yemaney/filevector/internal/repositories"
	"github.com/yemaney/filevector/internal/utils"
)

const supportedContentType = "text/plain"

// ObjectStore is the slice of the object store the upload path needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

// JobQueue enqueues processing jobs for the embedding worker.
type JobQueue interface {
	Enqueue(ctx context.Context, job repositories.Job) error
}

// UploadedFile is the response body for a successful upload.
type UploadedFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Status      string `json:"status"`
}

type FileHandler struct {
	store ObjectStore
	queue JobQueue
}

func NewFileHandler(store ObjectStore, queue JobQueue) *FileHandler {
	return &FileHandler{store: store, queue: queue}
}

// POST /api/v1/files
// Upload godoc
// @Summary Upload a text file for background embedding
// @Description Stores the file and queues it for vector embedding. Only text/plain is accepted.
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Security BearerAuth
// @Success 201 {object} UploadedFile
// @Failure 415 {object} utils.ErrorBody
// @Failure 500 {object} utils.ErrorBody
// @Router /api/v1/files [post]
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	const maxUploadSize = 100 << 20 // 100 MB
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid file upload form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	// Reject unsupported types before touching storage or the queue
	mediaType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if err != nil || mediaType != supportedContentType {
		utils.JSONError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("File type of %s is not a supported media type of %s", mediaType, supportedContentType))
		return
	}

	key := repositories.ObjectKey(userID, header.Filename)

	// Store first, enqueue second: a job must never reference bytes that
	// aren't durably written yet.
	if err := h.store.Put(r.Context(), key, file, header.Size, mediaType); err != nil {
		log.Printf("Failed to store %s: %v", key, err)
		utils.JSONError(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	job := repositories.NewJob(userID, header.Filename, mediaType)
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		// The stored object is orphaned; no compensating delete is attempted.
		log.Printf("Failed to enqueue job for %s, object is orphaned: %v", key, err)
		utils.JSONError(w, http.StatusInternalServerError, "Failed to queue file for processing")
		return
	}

	utils.JSONResponse(w, http.StatusCreated, UploadedFile{
		Filename:    header.Filename,
		ContentType: mediaType,
		Size:        header.Size,
		Status:      "queued",
	})
}
