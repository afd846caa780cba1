package cli

import (
	"github.com/spf13/cobra"

	"sdbridge/internal/imagegen"
	"sdbridge/internal/logging"
	"sdbridge/internal/rpc"
)

func newWorkerCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Serve JSON-lines RPC requests on stdin/stdout",
		Long: "Reads one JSON request per line from stdin and writes one JSON response per line to stdout.\n" +
			"Logs go to the log file only; stdout carries responses and nothing else.",
		Example: `  echo '{"id":1,"method":"local_sd.status"}' | sdbridge worker`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := o.cfg
			rt, err := newRuntime(cmd.Context(), cfg, logging.Options{NoConsole: true, File: cfg.LogFile, Truncate: true})
			if err != nil {
				return err
			}
			defer rt.close()
			d := rpc.NewDispatcher(rt.log.With().Str("component", "rpc").Logger(), rpc.Commands(rpc.Services{
				Images:   rt.gen,
				Server:   rt.sup,
				Defaults: imagegen.LibraryDefaults,
			})...)
			return d.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
