package sdserver

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartNoopWhenAlreadyRunning(t *testing.T) {
	srv := runningWebUI(t, &fakeWebUI{})
	l := &fakeLauncher{}
	cfg := fastConfig(t, srv.URL)
	cfg.Launcher = l
	s := newTestSupervisor(t, cfg)
	for i := 0; i < 2; i++ {
		if err := s.Start(testCtx(t), ""); err != nil { t.Fatalf("start %d: %v", i, err) }
	}
	if l.count() != 0 { t.Fatalf("expected no launch, got %d", l.count()) }
	if s.State() != StateReady { t.Fatalf("state=%s", s.State()) }
	if s.Status().Owned { t.Fatalf("externally started server must not be owned") }
}

func TestStartLaunchesOnceThenIdempotent(t *testing.T) {
	port := freePort(t)
	l := &fakeLauncher{port: port, ui: &fakeWebUI{}}
	pub := NewMemoryPublisher()
	cfg := fastConfig(t, fmt.Sprintf("http://127.0.0.1:%d", port))
	cfg.Launcher = l
	cfg.Publisher = pub
	s := newTestSupervisor(t, cfg)
	t.Cleanup(func() { s.reapOwned() })

	if err := s.Start(testCtx(t), "model.safetensors"); err != nil { t.Fatalf("start: %v", err) }
	if err := s.Start(testCtx(t), "model.safetensors"); err != nil { t.Fatalf("second start: %v", err) }
	if l.count() != 1 { t.Fatalf("launches=%d want 1", l.count()) }
	st := s.Status()
	if st.State != "ready" || !st.Owned || st.PID == 0 || st.ReadySinceUnix == 0 { t.Fatalf("status=%+v", st) }
	names := pub.Names()
	if !contains(names, "spawn_start", "spawn_ready") { t.Fatalf("events=%v", names) }
}

func TestStartBuildsArgs(t *testing.T) {
	cases := []struct {
		gpu      bool
		ckpt     string
		want     []string
		unwanted string
	}{
		{gpu: true, ckpt: "x.safetensors", want: []string{"--xformers", "--medvram"}, unwanted: "--no-half"},
		{gpu: false, want: []string{"--precision", "full", "--no-half", "--skip-torch-cuda-test"}, unwanted: "--xformers"},
	}
	for _, tc := range cases {
		port := freePort(t)
		l := &fakeLauncher{port: port, ui: &fakeWebUI{}}
		cfg := fastConfig(t, fmt.Sprintf("http://127.0.0.1:%d", port))
		cfg.Launcher = l
		cfg.GPU = StaticGPU(tc.gpu)
		cfg.Python = "python3"
		s := newTestSupervisor(t, cfg)
		if err := s.Start(testCtx(t), tc.ckpt); err != nil { t.Fatalf("start: %v", err) }
		args := l.lastSpec.Args
		if l.lastSpec.Path != "python3" || l.lastSpec.Dir != cfg.Root { t.Fatalf("spec=%+v", l.lastSpec) }
		if !contains(args, "launch.py", "--api", "--listen", "--port", fmt.Sprint(port)) { t.Fatalf("args=%v", args) }
		if !contains(args, tc.want...) { t.Fatalf("gpu=%v args=%v", tc.gpu, args) }
		if contains(args, tc.unwanted) { t.Fatalf("gpu=%v unexpected %s in %v", tc.gpu, tc.unwanted, args) }
		if (tc.ckpt != "") != contains(args, "--ckpt", tc.ckpt) { t.Fatalf("ckpt flag mismatch: %v", args) }
		s.reapOwned()
	}
}

func TestStartMissingRoot(t *testing.T) {
	port := freePort(t)
	l := &fakeLauncher{port: port, ui: &fakeWebUI{}}
	cfg := fastConfig(t, fmt.Sprintf("http://127.0.0.1:%d", port))
	cfg.Root = cfg.Root + "/does-not-exist"
	cfg.Launcher = l
	s := newTestSupervisor(t, cfg)
	err := s.Start(testCtx(t), "")
	if !IsProcessLaunch(err) { t.Fatalf("expected launch error, got %v", err) }
	if l.count() != 0 { t.Fatalf("must not launch without a webui dir") }
	if s.State() != StateStopped || s.Status().LastError == "" { t.Fatalf("status=%+v", s.Status()) }
}

func TestStartTimeoutKillsChild(t *testing.T) {
	port := freePort(t)
	l := &fakeLauncher{port: port, hang: true}
	pub := NewMemoryPublisher()
	cfg := fastConfig(t, fmt.Sprintf("http://127.0.0.1:%d", port))
	cfg.StartupTimeout = 150 * time.Millisecond
	cfg.Launcher = l
	cfg.Publisher = pub
	s := newTestSupervisor(t, cfg)
	err := s.Start(testCtx(t), "")
	if !IsStartupTimeout(err) { t.Fatalf("expected startup timeout, got %v", err) }
	if s.State() != StateStopped { t.Fatalf("state=%s", s.State()) }
	if atomic.LoadInt32(&l.procs[0].kill) == 0 { t.Fatalf("child was not killed on timeout") }
	if s.Status().Owned { t.Fatalf("timed out child still owned") }
	if !contains(pub.Names(), "spawn_timeout") { t.Fatalf("events=%v", pub.Names()) }
}

func TestStartEarlyExitReportsTail(t *testing.T) {
	port := freePort(t)
	l := &fakeLauncher{port: port, exitErr: errors.New("exit status 1")}
	var out bytes.Buffer
	pub := NewMemoryPublisher()
	cfg := fastConfig(t, fmt.Sprintf("http://127.0.0.1:%d", port))
	cfg.Launcher = l
	cfg.Output = &out
	cfg.Publisher = pub
	s := newTestSupervisor(t, cfg)
	err := s.Start(testCtx(t), "")
	if !IsProcessLaunch(err) { t.Fatalf("expected launch error, got %v", err) }
	if !strings.Contains(err.Error(), "Traceback: boom") { t.Fatalf("missing output tail: %v", err) }
	if !strings.Contains(out.String(), "Traceback") { t.Fatalf("child output not forwarded to sink") }
	if !contains(pub.Names(), "spawn_start", "spawn_exit") { t.Fatalf("events=%v", pub.Names()) }
}

func TestIsReadyFalseWhenDown(t *testing.T) {
	s := newTestSupervisor(t, fastConfig(t, fmt.Sprintf("http://127.0.0.1:%d", freePort(t))))
	if s.IsReady(testCtx(t)) { t.Fatalf("expected not ready") }
}

func TestShutdownNoopWhenNothingRunning(t *testing.T) {
	k := &recordingKiller{}
	cfg := fastConfig(t, fmt.Sprintf("http://127.0.0.1:%d", freePort(t)))
	cfg.PortKiller = k
	s := newTestSupervisor(t, cfg)
	for i := 0; i < 2; i++ {
		if err := s.Shutdown(testCtx(t)); err != nil { t.Fatalf("shutdown: %v", err) }
	}
	if k.calls() != 0 { t.Fatalf("killer called %d times", k.calls()) }
	if s.State() != StateStopped { t.Fatalf("state=%s", s.State()) }
}

func TestShutdownKillsForeignListener(t *testing.T) {
	ui := &fakeWebUI{}
	srv := runningWebUI(t, ui)
	k := &recordingKiller{}
	k.hook = srv.Close
	cfg := fastConfig(t, srv.URL)
	cfg.PortKiller = k
	s := newTestSupervisor(t, cfg)
	if err := s.Start(testCtx(t), ""); err != nil { t.Fatalf("start: %v", err) }
	if err := s.Shutdown(testCtx(t)); err != nil { t.Fatalf("shutdown: %v", err) }
	if atomic.LoadInt32(&ui.shutdownHit) != 1 { t.Fatalf("rest shutdown not attempted") }
	if k.calls() != 1 || k.ports[0] != s.Port() { t.Fatalf("killer ports=%v", k.ports) }
	if s.State() != StateStopped { t.Fatalf("state=%s", s.State()) }
	// idempotent once the port is free
	if err := s.Shutdown(testCtx(t)); err != nil || k.calls() != 1 { t.Fatalf("second shutdown err=%v calls=%d", err, k.calls()) }
}

func TestShutdownReapsOwnedChild(t *testing.T) {
	port := freePort(t)
	l := &fakeLauncher{port: port, ui: &fakeWebUI{}}
	cfg := fastConfig(t, fmt.Sprintf("http://127.0.0.1:%d", port))
	cfg.Launcher = l
	s := newTestSupervisor(t, cfg)
	if err := s.Start(testCtx(t), ""); err != nil { t.Fatalf("start: %v", err) }
	if err := s.Shutdown(testCtx(t)); err != nil { t.Fatalf("shutdown: %v", err) }
	if atomic.LoadInt32(&l.procs[0].kill) == 0 { t.Fatalf("owned child not killed") }
	if s.Status().Owned { t.Fatalf("child still owned after shutdown") }
}

func TestEndpointParsing(t *testing.T) {
	cases := []struct{ in, host string; port int; bad bool }{
		{in: "http://127.0.0.1:7860", host: "127.0.0.1", port: 7860},
		{in: "http://0.0.0.0:9000/", host: "127.0.0.1", port: 9000},
		{in: "https://sd.example", host: "sd.example", port: 443},
		{in: "http://localhost", host: "localhost", port: 80},
		{in: "http://host:notaport", bad: true},
		{in: "::", bad: true},
	}
	for _, c := range cases {
		h, p, err := endpoint(c.in)
		if c.bad { if err == nil { t.Fatalf("%q: expected error", c.in) }; continue }
		if err != nil || h != c.host || p != c.port { t.Fatalf("%q: got %s %d %v", c.in, h, p, err) }
	}
}

func TestSanityCheck(t *testing.T) {
	cfg := fastConfig(t, "http://127.0.0.1:7860")
	cfg.Python = "definitely-not-a-python-binary"
	s := newTestSupervisor(t, cfg)
	r := s.SanityCheck()
	if !r.RootFound || r.ScriptFound || r.PythonFound || r.OK() || r.Error == "" { t.Fatalf("report=%+v", r) }
}

func TestStartRecordsLaunchCheckpoint(t *testing.T) {
	port := freePort(t)
	l := &fakeLauncher{port: port, ui: &fakeWebUI{}}
	cfg := fastConfig(t, fmt.Sprintf("http://127.0.0.1:%d", port))
	cfg.Launcher = l
	s := newTestSupervisor(t, cfg)
	t.Cleanup(func() { s.reapOwned() })
	if err := s.Start(testCtx(t), "anime.safetensors"); err != nil { t.Fatalf("start: %v", err) }
	if !contains(l.lastSpec.Args, "--ckpt", "anime.safetensors") { t.Fatalf("args=%v", l.lastSpec.Args) }
	if got := s.Status().Checkpoint; got != "anime.safetensors" { t.Fatalf("checkpoint=%q", got) }
	// a later bare start keeps what the server was launched with
	if err := s.Start(testCtx(t), ""); err != nil { t.Fatalf("second start: %v", err) }
	if got := s.Status().Checkpoint; got != "anime.safetensors" { t.Fatalf("checkpoint after restart=%q", got) }
	if err := s.Shutdown(testCtx(t)); err != nil { t.Fatalf("shutdown: %v", err) }
	if got := s.Status().Checkpoint; got != "" { t.Fatalf("checkpoint after shutdown=%q", got) }
}

func TestIsLoopback(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1": true, "127.0.1.1": true, "::1": true, "localhost": true, "LocalHost": true,
		"192.168.1.20": false, "sd.example": false, "10.0.0.5": false,
	}
	for host, want := range cases {
		if got := isLoopback(host); got != want { t.Fatalf("%s: got %v want %v", host, got, want) }
	}
}
