package output

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/effects"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/timecode"
	"github.com/therealutkarshpriyadarshi/thumbnailer/pkg/models"
)

// Kind distinguishes title cards from numbered preview images
type Kind int

const (
	KindImage Kind = iota
	KindTitleCard
)

func (k Kind) String() string {
	if k == KindTitleCard {
		return models.ThumbnailKindTitleCard
	}
	return models.ThumbnailKindImage
}

// framePattern is expanded by ffmpeg into one file per frame
const framePattern = "_%02d.jpg"

var slugReplacer = strings.NewReplacer(":", "_", ".", "_")

// Slug renders tc for use in a filename
func Slug(tc timecode.Timecode) string {
	return slugReplacer.Replace(tc.String())
}

// FileName returns the output filename for one extraction. It depends only
// on its arguments, so reruns overwrite earlier output instead of piling up.
func FileName(filmID int, kind Kind, tc timecode.Timecode, frames int) string {
	suffix := ".jpg"
	if frames > 1 {
		suffix = framePattern
	}

	if kind == KindTitleCard {
		return fmt.Sprintf("%d_titlecard_%s%s", filmID, Slug(tc), suffix)
	}
	return fmt.Sprintf("%d_%s%s", filmID, Slug(tc), suffix)
}

// DefaultFileName is the well-known name of a film's default image
func DefaultFileName(filmID int) string {
	return fmt.Sprintf("%06d.jpg", filmID)
}

// Frames lists the files ffmpeg writes for path when extracting n frames
func Frames(path string, n int) []string {
	if n <= 1 || !strings.HasSuffix(path, framePattern) {
		return []string{path}
	}
	prefix := strings.TrimSuffix(path, framePattern)
	files := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		files = append(files, fmt.Sprintf("%s_%02d.jpg", prefix, i))
	}
	return files
}

// FirstFrame returns the first file written for path
func FirstFrame(path string, n int) string {
	return Frames(path, n)[0]
}

// Builder lays out output files under a root directory, one directory per film
type Builder struct {
	root   string
	frames int
	fx     effects.Effects
}

// NewBuilder creates a Builder. Directory creation goes through fx so a dry
// run only prints it.
func NewBuilder(root string, frames int, fx effects.Effects) *Builder {
	if frames < 1 {
		frames = 1
	}
	return &Builder{root: root, frames: frames, fx: fx}
}

// Frames returns the number of frames per extraction
func (b *Builder) Frames() int {
	return b.frames
}

// Dir ensures the output root and the film directory exist and returns the latter
func (b *Builder) Dir(filmID int) (string, error) {
	if err := b.fx.MkdirAll(b.root); err != nil {
		return "", err
	}
	dir := filepath.Join(b.root, strconv.Itoa(filmID))
	if err := b.fx.MkdirAll(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// Path returns the destination for an extraction, creating directories as needed
func (b *Builder) Path(filmID int, kind Kind, tc timecode.Timecode) (string, error) {
	dir, err := b.Dir(filmID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName(filmID, kind, tc, b.frames)), nil
}

// DefaultPath returns the destination of the film's default image
func (b *Builder) DefaultPath(filmID int) (string, error) {
	dir, err := b.Dir(filmID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultFileName(filmID)), nil
}
