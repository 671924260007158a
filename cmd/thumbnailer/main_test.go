package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/batch"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/config"
	"github.com/therealutkarshpriyadarshi/thumbnailer/pkg/models"
)

func TestValidateInput(t *testing.T) {
	csv := filepath.Join(t.TempDir(), "films.csv")
	require.NoError(t, os.WriteFile(csv, []byte("Film ID\n"), 0644))

	tests := []struct {
		name     string
		opts     options
		wantMode string
		wantErr  string
	}{
		{"table", options{csvFile: csv}, batch.ModeTable, ""},
		{"table wins over film id", options{csvFile: csv, filmID: 3}, batch.ModeTable, ""},
		{"missing table", options{csvFile: csv + ".missing"}, "", "does not exist"},
		{"single", options{filmID: 42, timecode: "0:01:00"}, batch.ModeSingle, ""},
		{"single without timecode", options{filmID: 42}, "", "must specify a timecode"},
		{"nothing", options{}, "", "must specify a csv file, or a film id and timecode"},
		{"negative id", options{filmID: -1, timecode: "0:01:00"}, "", "must specify a csv file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := validateInput(&tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, mode)
		})
	}
}

func TestApplyFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--offset", "2.5", "--n-frames", "3", "--image-as-default=false", "--dry-run"}))

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Extract.OutputRoot = "/from/config"

	opts := &options{offset: 2.5, nFrames: 3, imageAsDefault: false, dryRun: true, outputPath: "./new_thumbnails", verbose: true}
	applyFlags(cmd.Flags(), opts, cfg)

	assert.Equal(t, 2.5, cfg.Extract.Offset)
	assert.Equal(t, 3, cfg.Extract.Frames)
	assert.False(t, cfg.Extract.ImageAsDefault)
	assert.True(t, cfg.Extract.DryRun)
	assert.Equal(t, "/from/config", cfg.Extract.OutputRoot, "unset flags keep the configured value")
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "thumbnailer dev\n", out.String())
}

func setupMovies(t *testing.T) (root string, source string) {
	t.Helper()
	root = t.TempDir()
	source = filepath.Join(root, "movies", "0", "42", "master.mp4")
	require.NoError(t, os.MkdirAll(filepath.Dir(source), 0755))
	require.NoError(t, os.WriteFile(source, []byte("movie"), 0644))

	t.Setenv("THUMBNAILER_MOVIES_ROOT", filepath.Join(root, "movies"))
	t.Setenv("THUMBNAILER_LOGGING_OUTPUT", "stderr")
	return root, source
}

func TestRootDryRun(t *testing.T) {
	root, source := setupMovies(t)
	csv := filepath.Join(root, "films.csv")
	require.NoError(t, os.WriteFile(csv, []byte("Film ID,Title Card Timecode\n42,0:01:00\n"), 0644))
	outDir := filepath.Join(root, "out")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{csv, "--dry-run", "--offset", "2", "--output-path", outDir})

	require.NoError(t, cmd.Execute())

	printed := out.String()
	assert.Contains(t, printed, "mkdir "+outDir)
	assert.Contains(t, printed, "ffmpeg -i "+source+" -ss 0:00:58.0 -vframes 1 "+filepath.Join(outDir, "42", "42_titlecard_0_00_58_0.jpg")+" -y")

	_, err := os.Stat(outDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRootRejectsMissingInput(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, "must specify a csv file, or a film id and timecode", err.Error())
}

func TestRootRejectsTwoTables(t *testing.T) {
	csv := filepath.Join(t.TempDir(), "films.csv")
	require.NoError(t, os.WriteFile(csv, []byte("Film ID\n"), 0644))

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{csv, "--csv-file", csv, "--dry-run"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")
}

func TestRootDryRunLeavesCacheUntouched(t *testing.T) {
	root, _ := setupMovies(t)
	mr := miniredis.RunT(t)
	t.Setenv("THUMBNAILER_CACHE_ENABLED", "true")
	t.Setenv("THUMBNAILER_CACHE_HOST", mr.Host())
	t.Setenv("THUMBNAILER_CACHE_PORT", mr.Port())

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--film-id", "42", "--timecode", "0:01:00", "--dry-run", "--output-path", filepath.Join(root, "out")})
	require.NoError(t, cmd.Execute())

	assert.Empty(t, mr.Keys(), "dry run must not write the source cache")

	// A real lookup does cache the source
	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"locate", "42"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, []string{"film:source:42"}, mr.Keys())
}

func TestCatalogCommand(t *testing.T) {
	setupMovies(t)

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"catalog", "x"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id x is not valid")

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"catalog", "42"})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.enabled")
}

func TestPrintCatalog(t *testing.T) {
	var out bytes.Buffer
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, printCatalog(&out, []*models.Thumbnail{
		{Kind: "titlecard", Requested: "0:01:00", Seek: "0:00:58.0", Frames: 1, Path: "out/42/42_titlecard_0_00_58_0.jpg", CreatedAt: created},
		{Kind: "image", Requested: "0:10:00", Seek: "0:09:58.0", Frames: 3, Path: "out/42/42_0_09_58_0_%02d.jpg", CreatedAt: created},
	}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "KIND"))
	assert.Equal(t, []string{"titlecard", "0:01:00", "0:00:58.0", "1", "out/42/42_titlecard_0_00_58_0.jpg", "2024-03-01T12:00:00Z"}, strings.Fields(lines[1]))
	assert.Equal(t, "3", strings.Fields(lines[2])[3])
}

func TestLocateCommand(t *testing.T) {
	_, source := setupMovies(t)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"locate", "42"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, source, strings.TrimSpace(out.String()))

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"locate", "7"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "film id 7")
}
