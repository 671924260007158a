package models

import "time"

// Thumbnail represents one extraction: a film, a requested timecode and the
// file(s) written for it
type Thumbnail struct {
	ID          string    `json:"id" db:"id"`
	RunID       string    `json:"run_id" db:"run_id"`
	FilmID      int       `json:"film_id" db:"film_id"`
	Kind        string    `json:"kind" db:"kind"`
	Requested   string    `json:"requested" db:"requested"`
	Seek        string    `json:"seek" db:"seek"`
	SeekSeconds float64   `json:"seek_seconds" db:"seek_seconds"`
	Source      string    `json:"source" db:"source"`
	Path        string    `json:"path" db:"path"`
	Files       []string  `json:"files" db:"-"`
	DefaultPath string    `json:"default_path,omitempty" db:"default_path"`
	Frames      int       `json:"frames" db:"frames"`
	DryRun      bool      `json:"dry_run" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Kind constants
const (
	ThumbnailKindTitleCard = "titlecard"
	ThumbnailKindImage     = "image"
)
