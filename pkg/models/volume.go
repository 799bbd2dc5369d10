package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	VolumeFormatCBZ = "cbz"
	VolumeFormatCBR = "cbr"
)

type Volume struct {
	bun.BaseModel `bun:"table:volumes,alias:v"`

	ID            int       `bun:",pk,nullzero" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LibraryID     int       `bun:",nullzero" json:"library_id"`
	SeriesID      int       `bun:",nullzero" json:"series_id"`
	Series        *Series   `bun:"rel:belongs-to" json:"series,omitempty"`
	Name          string    `bun:",nullzero" json:"name"`
	Number        *float64  `json:"number,omitempty"`
	Filepath      string    `bun:",nullzero" json:"filepath"`
	Format        string    `bun:",nullzero" json:"format"`
	FilesizeBytes int64     `json:"filesize_bytes"`
	PageCount     int       `json:"page_count"`
	CoverMimeType *string   `json:"cover_mime_type,omitempty"`
}
