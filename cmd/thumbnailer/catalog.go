package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/batch"
	"github.com/therealutkarshpriyadarshi/thumbnailer/pkg/models"
)

func newCatalogCmd(root *options) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog <film-id>",
		Short: "List the thumbnails recorded for a film id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := batch.ParseFilmID(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd.Flags(), root)
			if err != nil {
				return err
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			repo, err := a.openCatalog(cmd.Context())
			if err != nil {
				return err
			}

			thumbs, err := repo.ListThumbnailsByFilm(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(thumbs) == 0 {
				return fmt.Errorf("no thumbnails recorded for film id %d", id)
			}

			return printCatalog(cmd.OutOrStdout(), thumbs)
		},
	}
}

func printCatalog(w io.Writer, thumbs []*models.Thumbnail) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tREQUESTED\tSEEK\tFRAMES\tPATH\tCREATED")
	for _, t := range thumbs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			t.Kind, t.Requested, t.Seek, t.Frames, t.Path, t.CreatedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}
