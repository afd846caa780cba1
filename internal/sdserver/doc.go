// Package sdserver supervises a local Automatic1111 WebUI process. It is
// structured into small files by concern:
//
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: lifecycle State values.
//   - errors.go: error types and helpers (IsStartupTimeout, IsServerNotRunning, ...).
//   - events.go: Event, EventPublisher and the in-memory publisher used by tests.
//   - process.go: Launcher/Process abstraction over os/exec.
//   - gpu.go: acceleration capability probe.
//   - ports.go: port parsing, busy checks and the force-kill fallback.
//   - poll.go: bounded fixed-interval polling shared by start and switch.
//   - supervisor.go: Start, IsReady, Shutdown and status reporting.
//   - switch.go: checkpoint hot-swap with job queue draining.
//   - sanity.go: non-mutating dependency checks.
//   - metrics.go: Prometheus collectors for lifecycle operations.
//
// Only the Supervisor launches or terminates the server. Other packages talk
// to it over HTTP through the sdapi client returned by Supervisor.Client.
package sdserver
