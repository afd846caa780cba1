package sdserver

// State is the lifecycle state of the supervised server.
type State string

const (
	StateStopped      State = "stopped"
	StateStarting     State = "starting"
	StateReady        State = "ready"
	StateShuttingDown State = "shutting_down"
)
