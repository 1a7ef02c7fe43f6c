package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/yemaney/filevector/internal/models"
	"gorm.io/gorm"
)

// SearchResult is one row of a similarity query. Similarity is
// 1 - cosine_distance, so identical vectors score 1.0.
type SearchResult struct {
	ID          uint      `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UserID      uint      `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	Similarity  float64   `json:"similarity"`
}

// FileMetadataRepo reads and writes the filemetadata table, including the
// pgvector similarity queries backing the search endpoints.
type FileMetadataRepo struct {
	db *gorm.DB
}

func NewFileMetadataRepo(db *gorm.DB) *FileMetadataRepo {
	return &FileMetadataRepo{db: db}
}

// Create inserts one fully-populated metadata row. All fields including the
// embedding are committed atomically; there is no partial insert path.
func (r *FileMetadataRepo) Create(ctx context.Context, meta *models.FileMetadata) error {
	if err := r.db.WithContext(ctx).Create(meta).Error; err != nil {
		return fmt.Errorf("failed to insert file metadata: %w", err)
	}
	return nil
}

// GetOwned fetches a row by id scoped to its owner. A row owned by a
// different user is indistinguishable from a missing one: both return
// gorm.ErrRecordNotFound so existence of other users' files never leaks.
func (r *FileMetadataRepo) GetOwned(ctx context.Context, id, userID uint) (*models.FileMetadata, error) {
	var meta models.FileMetadata
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&meta).Error
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// Search ranks the user's files by cosine distance to the query vector,
// closest first. excludeID, when non-zero, drops that row from the results
// (used by find-similar to omit the reference file itself).
func (r *FileMetadataRepo) Search(ctx context.Context, userID uint, query pgvector.Vector, limit int, excludeID uint) ([]SearchResult, error) {
	sql := `
		SELECT id, filename, content_type, size, user_id, created_at,
		       1 - (embedding <=> ?) AS similarity
		FROM filemetadata
		WHERE user_id = ?`
	args := []any{query, userID}

	if excludeID != 0 {
		sql += ` AND id != ?`
		args = append(args, excludeID)
	}

	sql += `
		ORDER BY embedding <=> ?
		LIMIT ?`
	args = append(args, query, limit)

	results := []SearchResult{}
	if err := r.db.WithContext(ctx).Raw(sql, args...).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return results, nil
}
