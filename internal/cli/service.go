package cli

import (
	"context"
	"time"

	"sdbridge/internal/imagegen"
	"sdbridge/internal/registry"
	"sdbridge/internal/sdserver"
	"sdbridge/pkg/types"
)

// service adapts the runtime to httpapi.Service.
type service struct{ rt *runtime }

func (s service) Generate(ctx context.Context, req imagegen.Request, d imagegen.Defaults) ([]string, error) {
	return s.rt.gen.Generate(ctx, req, d)
}

func (s service) StartServer(ctx context.Context, checkpoint string) error {
	return s.rt.sup.Start(ctx, checkpoint)
}

func (s service) StopServer(ctx context.Context) error { return s.rt.sup.Shutdown(ctx) }

func (s service) SwitchCheckpoint(ctx context.Context, name string, timeout time.Duration) error {
	return s.rt.sup.Switch(ctx, name, timeout)
}

func (s service) ServerStatus() types.ServerStatus { return s.rt.sup.Status() }

func (s service) LocalSDUp() bool { return sdserver.PortOpen(s.rt.cfg.SDHost) }

func (s service) Checkpoints() ([]types.Checkpoint, error) {
	return registry.LoadDir(s.rt.checkpointsDir())
}

func (s service) Logs(n int) []string { return s.rt.ring.Last(n) }
