package httpapi

import "context"

// serverBaseCtx is canceled at process shutdown so in-flight work stops too.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process-level context; nil resets it.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts derives from b (keeping its values) and also cancels when a is done.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(b)
	stop := context.AfterFunc(a, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
