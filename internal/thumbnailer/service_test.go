package thumbnailer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/effects"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/extractor"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/output"
	"github.com/therealutkarshpriyadarshi/thumbnailer/pkg/models"
)

// fakeFFmpeg performs real filesystem effects but replaces the ffmpeg
// process with writing placeholder JPEGs for every requested frame.
type fakeFFmpeg struct {
	effects.Real
	runs      [][]string
	writeNone bool
	err       error
}

func (f *fakeFFmpeg) Run(_ context.Context, _ string, args []string) error {
	f.runs = append(f.runs, args)
	if f.writeNone {
		return f.err
	}

	var out string
	var frames int
	for i, a := range args {
		if strings.HasSuffix(a, ".jpg") {
			out = a
		}
		if a == "-vframes" && i+1 < len(args) {
			frames, _ = strconv.Atoi(args[i+1])
		}
	}
	for _, p := range output.Frames(out, frames) {
		if err := os.WriteFile(p, []byte("jpeg:"+filepath.Base(p)), 0644); err != nil {
			return err
		}
	}
	return f.err
}

type recordingSink struct {
	name   string
	err    error
	thumbs []*models.Thumbnail
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Record(_ context.Context, thumb *models.Thumbnail) error {
	s.thumbs = append(s.thumbs, thumb)
	return s.err
}

type fixture struct {
	source string
	outDir string
	fx     *fakeFFmpeg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	source := filepath.Join(root, "movies", "0", "42", "master.mp4")
	require.NoError(t, os.MkdirAll(filepath.Dir(source), 0755))
	require.NoError(t, os.WriteFile(source, []byte("movie"), 0644))
	return &fixture{
		source: source,
		outDir: filepath.Join(root, "new_thumbnails"),
		fx:     &fakeFFmpeg{},
	}
}

func (f *fixture) service(frames int, opts Options, sinks ...Sink) *Service {
	builder := output.NewBuilder(f.outDir, frames, f.fx)
	ff := extractor.NewFFmpeg("ffmpeg", f.fx, 0)
	return NewService(opts, builder, ff, f.fx, nil, sinks...)
}

func TestExtractTitleCard(t *testing.T) {
	f := newFixture(t)
	svc := f.service(1, Options{FrameRate: 24, RunID: "run-1"})

	thumb, err := svc.Extract(context.Background(), Request{
		FilmID:   42,
		Source:   f.source,
		Timecode: "0:01:00",
		Offset:   -2.0,
		Kind:     output.KindTitleCard,
	})
	require.NoError(t, err)

	want := filepath.Join(f.outDir, "42", "42_titlecard_0_00_58_0.jpg")
	assert.Equal(t, want, thumb.Path)
	assert.Equal(t, "0:00:58.0", thumb.Seek)
	assert.Equal(t, 58.0, thumb.SeekSeconds)
	assert.Equal(t, "titlecard", thumb.Kind)
	assert.Equal(t, "0:01:00", thumb.Requested)
	assert.Equal(t, "run-1", thumb.RunID)
	assert.Empty(t, thumb.DefaultPath)
	assert.False(t, thumb.DryRun)
	assert.FileExists(t, want)

	require.Len(t, f.fx.runs, 1)
	assert.Contains(t, f.fx.runs[0], "0:00:58.0")
	assert.Contains(t, f.fx.runs[0], f.source)
}

func TestExtractBlankTimecode(t *testing.T) {
	f := newFixture(t)
	svc := f.service(1, Options{})

	for _, tc := range []string{"", "  ", "n/a"} {
		_, err := svc.Extract(context.Background(), Request{FilmID: 42, Source: f.source, Timecode: tc})
		assert.ErrorIs(t, err, ErrNoTimecode)
	}

	assert.Empty(t, f.fx.runs)
	_, err := os.Stat(f.outDir)
	assert.True(t, os.IsNotExist(err), "no directories for skipped slots")
}

func TestExtractMissingSource(t *testing.T) {
	f := newFixture(t)
	svc := f.service(1, Options{})

	_, err := svc.Extract(context.Background(), Request{
		FilmID:   42,
		Source:   filepath.Join(filepath.Dir(f.source), "gone.mp4"),
		Timecode: "0:01:00",
	})
	assert.ErrorIs(t, err, ErrSourceMissing)

	_, err = svc.Extract(context.Background(), Request{FilmID: 42, Timecode: "0:01:00"})
	assert.ErrorIs(t, err, ErrSourceMissing)

	assert.Empty(t, f.fx.runs)
}

func TestExtractAsDefaultCopiesFirstFrame(t *testing.T) {
	f := newFixture(t)
	svc := f.service(3, Options{})

	thumb, err := svc.Extract(context.Background(), Request{
		FilmID:    42,
		Source:    f.source,
		Timecode:  "0:10:00",
		Kind:      output.KindImage,
		AsDefault: true,
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.outDir, "42", "42_0_10_00_0_%02d.jpg"), thumb.Path)
	assert.Len(t, thumb.Files, 3)
	assert.Equal(t, filepath.Join(f.outDir, "42", "000042.jpg"), thumb.DefaultPath)

	data, err := os.ReadFile(thumb.DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, "jpeg:42_0_10_00_0_01.jpg", string(data))
}

func TestExtractClampsAtStart(t *testing.T) {
	f := newFixture(t)
	svc := f.service(1, Options{})

	thumb, err := svc.Extract(context.Background(), Request{
		FilmID:   42,
		Source:   f.source,
		Timecode: "0:00:01",
		Offset:   -5,
	})
	require.NoError(t, err)
	assert.Equal(t, "0:00:00.0", thumb.Seek)
	assert.Equal(t, filepath.Join(f.outDir, "42", "42_0_00_00_0.jpg"), thumb.Path)
}

func TestExtractRerunOverwrites(t *testing.T) {
	f := newFixture(t)
	svc := f.service(1, Options{})
	req := Request{FilmID: 42, Source: f.source, Timecode: "0:05:00", Offset: -1}

	first, err := svc.Extract(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Extract(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Path, second.Path)
	entries, err := os.ReadDir(filepath.Join(f.outDir, "42"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestExtractFFmpegErrorIsAdvisory(t *testing.T) {
	f := newFixture(t)
	f.fx.err = errors.New("exit status 1")
	svc := f.service(1, Options{})

	thumb, err := svc.Extract(context.Background(), Request{FilmID: 42, Source: f.source, Timecode: "0:01:00"})
	require.NoError(t, err)
	assert.NotNil(t, thumb)
}

func TestExtractVerifyOutput(t *testing.T) {
	f := newFixture(t)
	f.fx.writeNone = true
	f.fx.err = errors.New("exit status 1")

	lenient := f.service(1, Options{})
	_, err := lenient.Extract(context.Background(), Request{FilmID: 42, Source: f.source, Timecode: "0:01:00"})
	assert.NoError(t, err)

	strict := f.service(1, Options{VerifyOutput: true})
	_, err = strict.Extract(context.Background(), Request{FilmID: 42, Source: f.source, Timecode: "0:01:00"})
	assert.ErrorIs(t, err, ErrOutputMissing)
}

func TestExtractRecordsToSinks(t *testing.T) {
	f := newFixture(t)
	good := &recordingSink{name: "catalog"}
	bad := &recordingSink{name: "storage", err: errors.New("bucket gone")}
	svc := f.service(1, Options{}, good, bad)

	thumb, err := svc.Extract(context.Background(), Request{FilmID: 42, Source: f.source, Timecode: "0:01:00"})
	require.NoError(t, err)

	require.Len(t, good.thumbs, 1)
	assert.Same(t, thumb, good.thumbs[0])
	assert.Len(t, bad.thumbs, 1)
}

func TestExtractDryRun(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	fx := effects.NewDryRun(&buf)
	sink := &recordingSink{name: "catalog"}
	builder := output.NewBuilder(f.outDir, 1, fx)
	svc := NewService(Options{}, builder, extractor.NewFFmpeg("ffmpeg", fx, 0), fx, nil, sink)

	thumb, err := svc.Extract(context.Background(), Request{
		FilmID:    42,
		Source:    f.source,
		Timecode:  "0:01:00",
		Offset:    -2,
		Kind:      output.KindTitleCard,
		AsDefault: true,
	})
	require.NoError(t, err)
	assert.True(t, thumb.DryRun)

	_, err = os.Stat(f.outDir)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, sink.thumbs)

	printed := buf.String()
	assert.Contains(t, printed, "mkdir "+f.outDir+"\n")
	assert.Contains(t, printed, "ffmpeg -i "+f.source)
	assert.Contains(t, printed, "-ss 0:00:58.0")
	assert.Contains(t, printed, filepath.Join(f.outDir, "42", "42_titlecard_0_00_58_0.jpg"))
	assert.Contains(t, printed, "cp ")
}
