package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// FileMetadata is written by the embedding worker once a file's vector has
// been computed. A row existing means embedding succeeded; there are no
// partial rows. History is append-only: re-uploading the same filename
// overwrites the stored object but inserts a fresh row.
type FileMetadata struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	UserID      uint            `json:"userId" gorm:"index;not null"`
	Filename    string          `json:"filename" gorm:"index;not null"`
	ContentType string          `json:"contentType" gorm:"not null"`
	Size        int64           `json:"size" gorm:"not null"`        // bytes
	StoragePath string          `json:"storagePath" gorm:"not null"` // object store key: {userID}/{filename}
	Embedding   pgvector.Vector `json:"-" gorm:"type:vector(4096);not null"`
	CreatedAt   time.Time       `json:"createdAt" gorm:"autoCreateTime"`
}

func (FileMetadata) TableName() string {
	return "filemetadata"
}
