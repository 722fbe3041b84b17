package main

import (
	"github.com/spf13/cobra"

	"github.com/efrecon/machinery/pkg/api"
	"github.com/efrecon/machinery/pkg/log"
)

var serverAddr string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve a read-only HTTP view of the cluster",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		srv := api.NewServer(e)
		log.WithCluster(e.cluster.Name).Info().Str("addr", serverAddr).Msg("serving cluster view")
		return srv.Start(serverAddr)
	},
}

func init() {
	serverCmd.Flags().StringVar(&serverAddr, "addr", ":8080", "Address to listen on")
}
