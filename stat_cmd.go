package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newStatCmd builds the `blobwatch stat` command: a one-shot metadata
// fetch, useful for checking connectivity and seeing the current version
// tag before starting a watch.
func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Print blob metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()

			client, err := buildStoreClient(logger)
			if err != nil {
				return err
			}

			md, err := client.Metadata(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetching metadata for %s: %w", args[0], err)
			}

			fmt.Printf("Path:     %s\n", args[0])
			fmt.Printf("Size:     %d bytes\n", md.Size)
			fmt.Printf("ETag:     %s\n", md.ETag)
			fmt.Printf("Modified: %s\n", md.ModifiedAt.Format(time.RFC3339))

			return nil
		},
	}
}
