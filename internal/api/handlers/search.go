package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/pgvector/pgvector-go"
	"github.com/yemaney/filevector/internal/api/middleware"
	"github.com/yemaney/filevector/internal/models"
	"github.com/yemaney/filevector/internal/repositories"
	"github.com/yemaney/filevector/internal/utils"
	"gorm.io/gorm"
)

// Embedder turns query text into a vector.
type Embedder interface {
	Generate(ctx context.Context, text string) ([]float32, error)
}

// FileSearcher is the metadata repo surface the search endpoints use.
type FileSearcher interface {
	GetOwned(ctx context.Context, id, userID uint) (*models.FileMetadata, error)
	Search(ctx context.Context, userID uint, query pgvector.Vector, limit int, excludeID uint) ([]repositories.SearchResult, error)
}

type SearchHandler struct {
	repo     FileSearcher
	embedder Embedder
}

func NewSearchHandler(repo FileSearcher, embedder Embedder) *SearchHandler {
	return &SearchHandler{repo: repo, embedder: embedder}
}

// GET /api/v1/search/files?query=&limit=
// SearchFiles godoc
// @Summary Search files by text similarity
// @Description Embeds the query text and ranks the caller's files by cosine similarity.
// @Tags Search
// @Produce json
// @Param query query string true "Search query text"
// @Param limit query int false "Maximum number of results (1-100, default 10)"
// @Security BearerAuth
// @Success 200 {array} repositories.SearchResult
// @Failure 400 {object} utils.ErrorBody
// @Failure 500 {object} utils.ErrorBody
// @Router /api/v1/search/files [get]
func (h *SearchHandler) SearchFiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	query := r.URL.Query().Get("query")
	if query == "" {
		utils.JSONError(w, http.StatusBadRequest, "Missing query parameter")
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	vector, err := h.embedder.Generate(r.Context(), query)
	if err != nil {
		// A provider failure must surface as an error, never as zero results
		log.Printf("Failed to embed search query for user %d: %v", userID, err)
		utils.JSONError(w, http.StatusInternalServerError, "Error performing vector search")
		return
	}

	results, err := h.repo.Search(r.Context(), userID, pgvector.NewVector(vector), limit, 0)
	if err != nil {
		log.Printf("Vector search failed for user %d: %v", userID, err)
		utils.JSONError(w, http.StatusInternalServerError, "Error performing vector search")
		return
	}

	utils.JSONResponse(w, http.StatusOK, results)
}

// GET /api/v1/search/files/similar/{file_id}?limit=
// FindSimilar godoc
// @Summary Find files similar to an existing file
// @Description Ranks the caller's other files by similarity to the given file's stored embedding.
// @Tags Search
// @Produce json
// @Param file_id path int true "Reference file id"
// @Param limit query int false "Maximum number of results (1-100, default 10)"
// @Security BearerAuth
// @Success 200 {array} repositories.SearchResult
// @Failure 404 {object} utils.ErrorBody
// @Failure 500 {object} utils.ErrorBody
// @Router /api/v1/search/files/similar/{file_id} [get]
func (h *SearchHandler) FindSimilar(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	fileID, err := strconv.ParseUint(r.PathValue("file_id"), 10, 32)
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "Invalid file id")
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	target, err := h.repo.GetOwned(r.Context(), uint(fileID), userID)
	switch {
	case err == nil:
		// found and owned by caller
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Absent and not-owned look identical on purpose
		utils.JSONError(w, http.StatusNotFound, "File not found or access denied")
		return
	default:
		log.Printf("Failed to load file %d for user %d: %v", fileID, userID, err)
		utils.JSONError(w, http.StatusInternalServerError, "Error finding similar files")
		return
	}

	// Reuse the stored embedding; no provider call here
	results, err := h.repo.Search(r.Context(), userID, target.Embedding, limit, target.ID)
	if err != nil {
		log.Printf("Similar-file search failed for user %d: %v", userID, err)
		utils.JSONError(w, http.StatusInternalServerError, "Error finding similar files")
		return
	}

	utils.JSONResponse(w, http.StatusOK, results)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 10, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 100 {
		return 0, errors.New("limit must be between 1 and 100")
	}
	return limit, nil
}
