package main

import (
	"github.com/spf13/cobra"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Merge all partitions into preprocessed_data.parquet",
	Long: `normalize loads every partition from PARTITION_DIR (default STAGING_DIR),
cleans, deduplicates and geo-validates the rows, classifies each into a
market zone, and writes OUTPUT_DIR/preprocessed_data.parquet.`,
	Args: noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		_, err = a.pipeline.Normalize(ctx)
		return err
	},
}
