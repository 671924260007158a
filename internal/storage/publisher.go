package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/logging"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/metrics"
	"github.com/therealutkarshpriyadarshi/thumbnailer/pkg/models"
)

// Uploader is the part of Storage the publisher needs
type Uploader interface {
	Bucket() string
	UploadFile(ctx context.Context, objectName, filePath string) (int64, error)
}

// Publisher uploads every written thumbnail to the bucket, keyed
// <prefix>/<film id>/<file name>
type Publisher struct {
	store  Uploader
	prefix string
	logger *logging.Logger
}

// NewPublisher creates a thumbnail publisher
func NewPublisher(store Uploader, prefix string, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Publisher{
		store:  store,
		prefix: prefix,
		logger: logger.WithComponent("storage"),
	}
}

// Name identifies the sink in logs
func (p *Publisher) Name() string {
	return "storage"
}

// Record uploads the frames and the default image of thumb. It stops at the
// first failed upload.
func (p *Publisher) Record(ctx context.Context, thumb *models.Thumbnail) error {
	files := append([]string{}, thumb.Files...)
	if thumb.DefaultPath != "" {
		files = append(files, thumb.DefaultPath)
	}

	for _, file := range files {
		key := objectName(p.prefix, thumb.FilmID, file)

		start := time.Now()
		size, err := p.store.UploadFile(ctx, key, file)
		p.logger.WithFilmID(thumb.FilmID).LogStorageOperation("upload", p.store.Bucket(), key, size, time.Since(start), err)
		if err != nil {
			metrics.RecordStorageOperation("upload", "error", 0)
			return fmt.Errorf("failed to publish %s: %w", file, err)
		}
		metrics.RecordStorageOperation("upload", "success", size)
	}

	return nil
}

func objectName(prefix string, filmID int, file string) string {
	return path.Join(prefix, strconv.Itoa(filmID), filepath.Base(file))
}
