package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Series struct {
	bun.BaseModel `bun:"table:series,alias:s"`

	ID          int       `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	LibraryID   int       `bun:",nullzero" json:"library_id"`
	Library     *Library  `bun:"rel:belongs-to" json:"library,omitempty"`
	Name        string    `bun:",nullzero" json:"name"`
	Volumes     []*Volume `bun:"rel:has-many" json:"volumes,omitempty"`
	VolumeCount int       `bun:",scanonly" json:"volume_count"`
}
