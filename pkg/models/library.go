package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Library struct {
	bun.BaseModel `bun:"table:libraries,alias:l"`

	ID           int            `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    *time.Time     `json:"deleted_at,omitempty"`
	Name         string         `bun:",nullzero" json:"name"`
	VolumeCount  int            `bun:",scanonly" json:"volume_count"`
	LibraryPaths []*LibraryPath `bun:"rel:has-many" json:"library_paths,omitempty"`
}
