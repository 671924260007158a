// Package locator resolves a film id to its source video on disk.
//
// Sources live under root/<shard>/<id>/ where the shard is derived from the
// id. Two layouts exist in the wild, so the shard formula is configurable:
//
//	hundreds: id / 100          (12345 -> 123/12345)
//	leading:  first N digits    (12345 -> 1/12345 with N=1)
package locator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrNotFound is returned when no source file exists for a film id.
var ErrNotFound = errors.New("source file not found")

// ShardStrategy selects the directory layout.
type ShardStrategy string

const (
	ShardHundreds ShardStrategy = "hundreds"
	ShardLeading  ShardStrategy = "leading"
)

// ParseShardStrategy validates a configured strategy name
func ParseShardStrategy(name string) (ShardStrategy, error) {
	switch s := ShardStrategy(strings.ToLower(strings.TrimSpace(name))); s {
	case ShardHundreds, ShardLeading:
		return s, nil
	default:
		return "", fmt.Errorf("unknown shard strategy %q", name)
	}
}

// Options configures a Locator
type Options struct {
	Root        string
	Strategy    ShardStrategy
	ShardDigits int      // leading strategy only; defaults to 1
	Extensions  []string // without the dot; defaults to mp4
}

// Locator finds the best source file for a film id
type Locator struct {
	root       string
	strategy   ShardStrategy
	digits     int
	extensions []string
}

// New creates a Locator
func New(opts Options) (*Locator, error) {
	if opts.Root == "" {
		return nil, errors.New("movie root must not be empty")
	}
	strategy, err := ParseShardStrategy(string(opts.Strategy))
	if err != nil {
		return nil, err
	}

	digits := opts.ShardDigits
	if digits <= 0 {
		digits = 1
	}

	var exts []string
	for _, e := range opts.Extensions {
		e = strings.TrimPrefix(strings.TrimSpace(e), ".")
		if e != "" {
			exts = append(exts, e)
		}
	}
	if len(exts) == 0 {
		exts = []string{"mp4"}
	}

	return &Locator{
		root:       opts.Root,
		strategy:   strategy,
		digits:     digits,
		extensions: exts,
	}, nil
}

// Shard returns the shard directory name for id
func (l *Locator) Shard(id int) string {
	if l.strategy == ShardLeading {
		s := strconv.Itoa(id)
		if len(s) > l.digits {
			s = s[:l.digits]
		}
		return s
	}
	return strconv.Itoa(id / 100)
}

// Dir returns the directory expected to hold the sources of id
func (l *Locator) Dir(id int) string {
	return filepath.Join(l.root, l.Shard(id), strconv.Itoa(id))
}

// Locate returns the largest matching file for id, on the assumption that it
// is the highest bitrate master. Ties go to the lexically first path.
func (l *Locator) Locate(ctx context.Context, id int) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("%w: invalid film id %d", ErrNotFound, id)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := l.Dir(id)
	var candidates []string
	for _, ext := range l.extensions {
		matches, err := filepath.Glob(filepath.Join(dir, "*."+ext))
		if err != nil {
			return "", fmt.Errorf("failed to glob %s: %w", dir, err)
		}
		candidates = append(candidates, matches...)
	}
	sort.Strings(candidates)

	best := ""
	var bestSize int64 = -1
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if info.Size() > bestSize {
			best = path
			bestSize = info.Size()
		}
	}

	if best == "" {
		return "", fmt.Errorf("%w: film %d in %s", ErrNotFound, id, dir)
	}
	return best, nil
}
