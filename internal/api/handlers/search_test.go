package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yemaney/filevector/internal/api/middleware"
	"github.com/yemaney/filevector/internal/models"
	"github.com/yemaney/filevector/internal/repositories"
	"gorm.io/gorm"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type searchCall struct {
	userID    uint
	query     pgvector.Vector
	limit     int
	excludeID uint
}

type fakeSearcher struct {
	files     map[uint]*models.FileMetadata
	results   []repositories.SearchResult
	searchErr error
	calls     []searchCall
}

func (f *fakeSearcher) GetOwned(ctx context.Context, id, userID uint) (*models.FileMetadata, error) {
	meta, ok := f.files[id]
	if !ok || meta.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return meta, nil
}

func (f *fakeSearcher) Search(ctx context.Context, userID uint, query pgvector.Vector, limit int, excludeID uint) ([]repositories.SearchResult, error) {
	f.calls = append(f.calls, searchCall{userID: userID, query: query, limit: limit, excludeID: excludeID})
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.results == nil {
		return []repositories.SearchResult{}, nil
	}
	return f.results, nil
}

func searchRequest(userID uint, target string) (*httptest.ResponseRecorder, *http.Request) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	return httptest.NewRecorder(), req
}

func TestSearchFiles_Success(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	searcher := &fakeSearcher{
		results: []repositories.SearchResult{
			{ID: 1, Filename: "my_file.txt", ContentType: "text/plain", Size: 11, UserID: 1, CreatedAt: time.Now(), Similarity: 0.92},
		},
	}
	h := NewSearchHandler(searcher, embedder)

	rec, req := searchRequest(1, "/search/files?query=hello")
	h.SearchFiles(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var results []repositories.SearchResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&results))
	require.Len(t, results, 1)
	assert.Equal(t, "my_file.txt", results[0].Filename)
	assert.InDelta(t, 0.92, results[0].Similarity, 1e-9)

	require.Len(t, searcher.calls, 1)
	call := searcher.calls[0]
	assert.Equal(t, uint(1), call.userID)
	assert.Equal(t, 10, call.limit, "limit defaults to 10")
	assert.Zero(t, call.excludeID)
	assert.Equal(t, []float32{0.1, 0.2}, call.query.Slice())
}

func TestSearchFiles_EmptyResultIsNotAnError(t *testing.T) {
	h := NewSearchHandler(&fakeSearcher{}, &fakeEmbedder{vector: []float32{1}})

	rec, req := searchRequest(1, "/search/files?query=nothing")
	h.SearchFiles(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSearchFiles_MissingQuery(t *testing.T) {
	h := NewSearchHandler(&fakeSearcher{}, &fakeEmbedder{})

	rec, req := searchRequest(1, "/search/files")
	h.SearchFiles(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchFiles_LimitBounds(t *testing.T) {
	tests := []struct {
		name  string
		limit string
		want  int
	}{
		{"zero", "0", http.StatusBadRequest},
		{"negative", "-5", http.StatusBadRequest},
		{"too large", "101", http.StatusBadRequest},
		{"not a number", "abc", http.StatusBadRequest},
		{"max allowed", "100", http.StatusOK},
		{"min allowed", "1", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSearchHandler(&fakeSearcher{}, &fakeEmbedder{vector: []float32{1}})
			rec, req := searchRequest(1, "/search/files?query=x&limit="+tt.limit)
			h.SearchFiles(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestSearchFiles_ProviderFailure(t *testing.T) {
	h := NewSearchHandler(&fakeSearcher{}, &fakeEmbedder{err: errors.New("provider down")})

	rec, req := searchRequest(1, "/search/files?query=hello")
	h.SearchFiles(rec, req)

	// Must surface as an error, never as an empty result set
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSearchFiles_StoreFailure(t *testing.T) {
	searcher := &fakeSearcher{searchErr: errors.New("db down")}
	h := NewSearchHandler(searcher, &fakeEmbedder{vector: []float32{1}})

	rec, req := searchRequest(1, "/search/files?query=hello")
	h.SearchFiles(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFindSimilar_Success(t *testing.T) {
	stored := pgvector.NewVector([]float32{0.3, 0.4})
	embedder := &fakeEmbedder{}
	searcher := &fakeSearcher{
		files: map[uint]*models.FileMetadata{
			5: {ID: 5, UserID: 1, Filename: "ref.txt", Embedding: stored},
		},
		results: []repositories.SearchResult{
			{ID: 6, Filename: "twin.txt", UserID: 1, Similarity: 0.99},
		},
	}
	h := NewSearchHandler(searcher, embedder)

	req := httptest.NewRequest(http.MethodGet, "/search/files/similar/5", nil)
	req.SetPathValue("file_id", "5")
	req = req.WithContext(middleware.WithUserID(req.Context(), 1))
	rec := httptest.NewRecorder()

	h.FindSimilar(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, searcher.calls, 1)
	call := searcher.calls[0]
	assert.Equal(t, uint(5), call.excludeID, "reference file must be excluded from results")
	assert.Equal(t, stored.Slice(), call.query.Slice(), "stored embedding is reused")
	assert.Zero(t, embedder.calls, "no provider call for find-similar")
}

func TestFindSimilar_OtherUsersFileIsNotFound(t *testing.T) {
	searcher := &fakeSearcher{
		files: map[uint]*models.FileMetadata{
			5: {ID: 5, UserID: 2, Filename: "theirs.txt"},
		},
	}
	h := NewSearchHandler(searcher, &fakeEmbedder{})

	req := httptest.NewRequest(http.MethodGet, "/search/files/similar/5", nil)
	req.SetPathValue("file_id", "5")
	req = req.WithContext(middleware.WithUserID(req.Context(), 1))
	rec := httptest.NewRecorder()

	h.FindSimilar(rec, req)

	// Not 403: ownership failures must be indistinguishable from absence
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, searcher.calls)
}

func TestFindSimilar_MissingFile(t *testing.T) {
	h := NewSearchHandler(&fakeSearcher{}, &fakeEmbedder{})

	req := httptest.NewRequest(http.MethodGet, "/search/files/similar/999", nil)
	req.SetPathValue("file_id", "999")
	req = req.WithContext(middleware.WithUserID(req.Context(), 1))
	rec := httptest.NewRecorder()

	h.FindSimilar(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFindSimilar_InvalidID(t *testing.T) {
	h := NewSearchHandler(&fakeSearcher{}, &fakeEmbedder{})

	req := httptest.NewRequest(http.MethodGet, "/search/files/similar/abc", nil)
	req.SetPathValue("file_id", "abc")
	req = req.WithContext(middleware.WithUserID(req.Context(), 1))
	rec := httptest.NewRecorder()

	h.FindSimilar(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchFiles_Unauthenticated(t *testing.T) {
	h := NewSearchHandler(&fakeSearcher{}, &fakeEmbedder{})

	req := httptest.NewRequest(http.MethodGet, "/search/files?query=x", nil)
	rec := httptest.NewRecorder()

	h.SearchFiles(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
