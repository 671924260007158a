package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/batch"
	"github.com/therealutkarshpriyadarshi/thumbnailer/internal/locator"
)

func newLocateCmd(root *options) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "locate <film-id>",
		Short: "Print the source file a film id resolves to",
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

			if refresh && a.cache != nil {
				if err := a.cache.DeleteSource(cmd.Context(), id); err != nil {
					a.logger.WithError(err).Warn("failed to drop cached source")
				}
			}

			path, err := a.locator.Locate(cmd.Context(), id)
			if errors.Is(err, locator.ErrNotFound) {
				return fmt.Errorf("could not find movie file for film id %d", id)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore the cached source and scan the disk again")
	return cmd
}
