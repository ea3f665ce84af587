package main

import (
	"github.com/spf13/cobra"
)

var acquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Retrieve the archive, decode it into partitions and publish them",
	Long: `acquire downloads the registry archive (or uses ARCHIVE_PATH), writes one
Parquet partition per region into STAGING_DIR, and publishes STAGING_DIR to
REMOTE_DIR on the configured backend.`,
	Args: noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		_, err = a.pipeline.Acquire(ctx)
		return err
	},
}
