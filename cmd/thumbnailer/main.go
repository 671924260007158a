package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/batch"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/config"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// options holds the command line flags
type options struct {
	cfgFile string
	verbose bool

	csvFile        string
	filmID         int
	timecode       string
	titlecard      bool
	imageAsDefault bool
	nFrames        int
	offset         float64
	outputPath     string
	dryRun         bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "thumbnailer [file.csv]",
		Short: "Extract thumbnails from source videos by film id and timecode",
		Long: `thumbnailer extracts still-frame thumbnails from film source videos.

The table needs a header row naming these columns, in any order:
  Film ID               film id
  Title card timecode   timecode for the title card thumbnail
  Image 1 timecode      timecode for image thumbnail 1
  Image 2 timecode      timecode for image thumbnail 2
  Image 3 timecode      timecode for image thumbnail 3
  Done                  rows marked x are skipped
  Published             TRUE for published films

Timecodes are h:mm:ss or hh:mm:ss.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if opts.csvFile != "" {
					return errors.New("give the table either as an argument or with --csv-file, not both")
				}
				opts.csvFile = args[0]
			}

			mode, err := validateInput(opts)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd.Flags(), opts)
			if err != nil {
				return err
			}

			return run(cmd.Context(), cfg, opts, mode, cmd.OutOrStdout())
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "YAML config file")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	f := cmd.Flags()
	f.StringVar(&opts.csvFile, "csv-file", "", "CSV file containing film ids and timecodes to extract")
	f.IntVar(&opts.filmID, "film-id", 0, "film id to extract (if no csv file is given)")
	f.StringVar(&opts.timecode, "timecode", "", "timecode to extract (if no csv file is given)")
	f.BoolVar(&opts.titlecard, "titlecard", false, "single timecode is a title card")
	f.BoolVar(&opts.imageAsDefault, "image-as-default", true, "copy image 1 to the %06d.jpg default image (csv only)")
	f.IntVar(&opts.nFrames, "n-frames", 1, "number of frames to extract at each timecode")
	f.Float64Var(&opts.offset, "offset", 0, "seconds before each timecode to begin extracting")
	f.StringVar(&opts.outputPath, "output-path", "./new_thumbnails", "root folder for thumbnail output")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print actions without creating thumbnails")

	cmd.AddCommand(newLocateCmd(opts))
	cmd.AddCommand(newCatalogCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "thumbnailer %s\n", version)
		},
	}
}

// validateInput decides the run mode before anything touches the disk
func validateInput(opts *options) (string, error) {
	switch {
	case opts.csvFile != "":
		if _, err := os.Stat(opts.csvFile); err != nil {
			return "", fmt.Errorf("input file %s does not exist", opts.csvFile)
		}
		return batch.ModeTable, nil
	case opts.filmID > 0:
		if opts.timecode == "" {
			return "", errors.New("must specify a timecode to extract")
		}
		return batch.ModeSingle, nil
	default:
		return "", batch.ErrInvalidRequest
	}
}

// loadConfig reads the config file and environment, then lets explicitly
// set flags win
func loadConfig(flags *pflag.FlagSet, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, err
	}

	applyFlags(flags, opts, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFlags(flags *pflag.FlagSet, opts *options, cfg *config.Config) {
	if flags.Changed("image-as-default") {
		cfg.Extract.ImageAsDefault = opts.imageAsDefault
	}
	if flags.Changed("n-frames") {
		cfg.Extract.Frames = opts.nFrames
	}
	if flags.Changed("offset") {
		cfg.Extract.Offset = opts.offset
	}
	if flags.Changed("output-path") {
		cfg.Extract.OutputRoot = opts.outputPath
	}
	if flags.Changed("dry-run") {
		cfg.Extract.DryRun = opts.dryRun
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
}
