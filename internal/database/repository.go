package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/logging"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/metrics"
	"github.com/therealutkarshpriyadarshi/thumbnailer/pkg/models"
)

const schema = `
	CREATE TABLE IF NOT EXISTS thumbnails (
		id            UUID PRIMARY KEY,
		run_id        TEXT NOT NULL,
		film_id       INTEGER NOT NULL,
		kind          TEXT NOT NULL,
		requested     TEXT NOT NULL,
		seek          TEXT NOT NULL,
		seek_seconds  DOUBLE PRECISION NOT NULL,
		source        TEXT NOT NULL,
		path          TEXT NOT NULL UNIQUE,
		default_path  TEXT NOT NULL DEFAULT '',
		frames        INTEGER NOT NULL DEFAULT 1,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_thumbnails_film_id ON thumbnails (film_id);
`

// Repository is the thumbnail catalog
type Repository struct {
	db     *DB
	logger *logging.Logger
}

// NewRepository creates a new repository
func NewRepository(db *DB, logger *logging.Logger) *Repository {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Repository{db: db, logger: logger.WithComponent("database")}
}

// EnsureSchema creates the catalog table if it does not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	_, err := r.db.Pool.Exec(ctx, schema)
	r.observe("ensure_schema", start, err)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// RecordThumbnail upserts a thumbnail. Output paths are deterministic, so a
// rerun updates the existing row for the same file.
func (r *Repository) RecordThumbnail(ctx context.Context, thumb *models.Thumbnail) error {
	if thumb.ID == "" {
		thumb.ID = uuid.New().String()
	}

	query := `
		INSERT INTO thumbnails (id, run_id, film_id, kind, requested, seek, seek_seconds, source, path, default_path, frames, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (path) DO UPDATE
		SET run_id = EXCLUDED.run_id,
		    requested = EXCLUDED.requested,
		    seek_seconds = EXCLUDED.seek_seconds,
		    source = EXCLUDED.source,
		    default_path = EXCLUDED.default_path,
		    frames = EXCLUDED.frames,
		    updated_at = NOW()
		RETURNING id
	`

	start := time.Now()
	err := r.db.Pool.QueryRow(ctx, query,
		thumb.ID, thumb.RunID, thumb.FilmID, thumb.Kind, thumb.Requested, thumb.Seek,
		thumb.SeekSeconds, thumb.Source, thumb.Path, thumb.DefaultPath, thumb.Frames, thumb.CreatedAt,
	).Scan(&thumb.ID)
	r.observe("record_thumbnail", start, err)

	if err != nil {
		return fmt.Errorf("failed to record thumbnail: %w", err)
	}

	return nil
}

// ListThumbnailsByFilm returns the catalog entries of a film, newest first
func (r *Repository) ListThumbnailsByFilm(ctx context.Context, filmID int) ([]*models.Thumbnail, error) {
	query := `
		SELECT id, run_id, film_id, kind, requested, seek, seek_seconds, source, path, default_path, frames, created_at
		FROM thumbnails
		WHERE film_id = $1
		ORDER BY created_at DESC
	`

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, query, filmID)
	if err != nil {
		r.observe("list_thumbnails", start, err)
		return nil, fmt.Errorf("failed to list thumbnails: %w", err)
	}
	defer rows.Close()

	var thumbs []*models.Thumbnail
	for rows.Next() {
		var t models.Thumbnail
		if err := rows.Scan(
			&t.ID, &t.RunID, &t.FilmID, &t.Kind, &t.Requested, &t.Seek, &t.SeekSeconds,
			&t.Source, &t.Path, &t.DefaultPath, &t.Frames, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan thumbnail: %w", err)
		}
		thumbs = append(thumbs, &t)
	}
	r.observe("list_thumbnails", start, rows.Err())

	return thumbs, rows.Err()
}

// Name identifies the repository when used as a thumbnail sink
func (r *Repository) Name() string {
	return "catalog"
}

// Record stores a written thumbnail in the catalog
func (r *Repository) Record(ctx context.Context, thumb *models.Thumbnail) error {
	return r.RecordThumbnail(ctx, thumb)
}

func (r *Repository) observe(operation string, start time.Time, err error) {
	elapsed := time.Since(start)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordDatabaseOperation(operation, status, elapsed.Seconds())
	r.logger.LogDatabaseOperation(operation, elapsed, err)
}
