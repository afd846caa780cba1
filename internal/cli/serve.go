package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sdbridge/internal/httpapi"
	"sdbridge/internal/logging"
)

func newServeCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP API",
		Example: "  sdbridge serve --addr :8000 --webui-root ~/stable-diffusion-webui",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), o)
		},
	}
	f := cmd.Flags()
	f.String("addr", "", "HTTP listen address (default :8000)")
	f.Int("max-concurrent-generations", 0, "Reject /generate with 429 beyond this many in flight (0 = unlimited)")
	f.Duration("generate-timeout", 0, "Upper bound for a /generate call (0 = none)")
	f.String("cors-origins", "", "Comma-separated allowed origins (default *)")
	f.Int64("max-body-bytes", 0, "Maximum JSON body size (default 1MiB)")
	f.Int("txt2img-attempts", 0, "Submissions tried while txt2img answers 404 (default 5)")
	f.Bool("start-server", false, "Start the local inference server before accepting requests")
	f.Bool("stop-on-exit", true, "Stop the inference server on exit when this process launched it")
	return cmd
}

func runServe(parent context.Context, o *options) error {
	cfg := o.cfg
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, logging.Options{File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer rt.close()
	log := rt.log.Logger

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetGenerateTimeout(cfg.GenerateTimeout.Duration)
	httpapi.SetMaxConcurrentGenerations(cfg.MaxConcurrent)
	httpapi.SetCORSOptions(true, cfg.CORSOrigins, nil, nil)
	httpapi.SetBaseContext(ctx)

	if o.v.GetBool("start-server") {
		if err := rt.sup.Start(ctx, ""); err != nil {
			log.Error().Err(err).Msg("inference server did not start; continuing")
		}
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(service{rt: rt}), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("sd_host", cfg.SDHost).Msg("sdbridge listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	if o.v.GetBool("stop-on-exit") && rt.sup.Status().Owned {
		if err := rt.sup.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("inference server shutdown error")
		}
	}
	return nil
}
