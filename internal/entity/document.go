package entity

import (
	"time"

	"github.com/google/uuid"
)

// SourceDocument represents one uploaded artifact for the duration of a
// single pipeline run. The bytes live at Path; the struct is ephemeral.
type SourceDocument struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Format      string    `json:"format"` // constants.PDF | constants.IMAGE
	Path        string    `json:"path"`
	ContentHash []byte    `json:"content_hash"`
	FileSize    int64     `json:"file_size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
