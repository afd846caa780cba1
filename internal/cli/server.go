package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sdbridge/internal/logging"
	"sdbridge/internal/sdserver"
	"sdbridge/pkg/types"
)

func newServerCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Control the local inference server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("server requires a subcommand: start|stop|switch|status")
		},
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the server and keep it running until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withRuntime(ctx, o, func(rt *runtime) error {
				if err := rt.sup.Start(ctx, o.v.GetString("model-path")); err != nil {
					return err
				}
				if err := printJSON(cmd, rt.sup.Status()); err != nil {
					return err
				}
				if !rt.sup.Status().Owned {
					return nil
				}
				<-ctx.Done()
				return rt.sup.Shutdown(context.Background())
			})
		},
	}
	start.Flags().String("model-path", "", "Checkpoint passed to the server at launch")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop whatever server listens on the configured port",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), o, func(rt *runtime) error {
				if err := rt.sup.Shutdown(cmd.Context()); err != nil {
					return err
				}
				return printJSON(cmd, types.OKResponse{OK: true})
			})
		},
	}

	switchCmd := &cobra.Command{
		Use:     "switch <checkpoint>",
		Short:   "Switch the running server to another checkpoint",
		Example: "  sdbridge server switch sd_xl_base_1.0.safetensors",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), o, func(rt *runtime) error {
				if err := rt.sup.Switch(cmd.Context(), args[0], o.cfg.SwitchTimeout.Duration); err != nil {
					return err
				}
				return printJSON(cmd, types.OKResponse{OK: true})
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Report whether the server answers and what this process knows about it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), o, func(rt *runtime) error {
				st := rt.sup.Status()
				if rt.sup.IsReady(cmd.Context()) {
					st.State = string(sdserver.StateReady)
				}
				return printJSON(cmd, st)
			})
		},
	}

	cmd.AddCommand(start, stopCmd, switchCmd, status)
	return cmd
}

// withRuntime runs fn with a console-logging runtime.
func withRuntime(ctx context.Context, o *options, fn func(rt *runtime) error) error {
	rt, err := newRuntime(ctx, o.cfg, logging.Options{})
	if err != nil {
		return err
	}
	defer rt.close()
	return fn(rt)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
