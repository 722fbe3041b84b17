package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/efrecon/machinery/pkg/pack"
)

var packZap bool

var packCmd = &cobra.Command{
	Use:   "pack [ZIPFILE]",
	Short: "Archive the cluster's storage directory, rewriting config.json paths to relative first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}

		zipPath := e.cluster.Name + ".zip"
		if len(args) == 1 {
			zipPath = args[0]
		}

		if err := pack.RewriteConfigPaths(e.StorageDir); err != nil {
			return fmt.Errorf("rewrite config paths: %w", err)
		}
		if err := pack.Archive(e.YAMLPath, e.StorageDir, zipPath); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		if packZap {
			if err := pack.Zap(e.YAMLPath, e.StorageDir); err != nil {
				return fmt.Errorf("zap: %w", err)
			}
		}
		fmt.Println(zipPath)
		return nil
	},
}

func init() {
	packCmd.Flags().BoolVar(&packZap, "zap", false, "Remove the storage directory and side-cars after archiving")
}
