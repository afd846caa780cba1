package sdserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeWebUI answers the subset of the WebUI API the supervisor uses.
type fakeWebUI struct {
	jobCounts   []int // successive job_count values returned by /progress; last one repeats
	progressHit int32
	checkpoint  atomic.Value
	shutdownHit int32
}

func (f *fakeWebUI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sdapi/v1/sd-models", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"title":"a","model_name":"a"}]`))
	})
	mux.HandleFunc("/sdapi/v1/options", func(w http.ResponseWriter, r *http.Request) {
		f.checkpoint.Store(r.Method)
		_, _ = w.Write([]byte("null"))
	})
	mux.HandleFunc("/sdapi/v1/progress", func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&f.progressHit, 1)) - 1
		jc := 0
		if len(f.jobCounts) > 0 {
			if n >= len(f.jobCounts) { n = len(f.jobCounts) - 1 }
			jc = f.jobCounts[n]
		}
		_, _ = fmt.Fprintf(w, `{"progress":0,"state":{"job_count":%d}}`, jc)
	})
	mux.HandleFunc("/shutdown", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.shutdownHit, 1)
	})
	return mux
}

// freePort asks the kernel for an unused port and releases it.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil { t.Fatalf("listen: %v", err) }
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// fakeLauncher "launches" a process by serving the fake WebUI on port.
type fakeLauncher struct {
	port    int
	ui      *fakeWebUI
	exitErr error // exit immediately with this error
	hang    bool  // never serve

	mu       sync.Mutex
	launches int
	lastSpec LaunchSpec
	procs    []*fakeProcess
}

func (l *fakeLauncher) Launch(spec LaunchSpec) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	l.lastSpec = spec
	p := &fakeProcess{pid: 4000 + l.launches, done: make(chan struct{})}
	l.procs = append(l.procs, p)
	if l.exitErr != nil {
		_, _ = spec.Output.Write([]byte("Traceback: boom\n"))
		p.exit(l.exitErr)
		return p, nil
	}
	if l.hang {
		return p, nil
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", l.port))
	if err != nil { return nil, err }
	p.srv = &http.Server{Handler: l.ui.handler()}
	go func() { _ = p.srv.Serve(ln) }()
	return p, nil
}

func (l *fakeLauncher) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

type fakeProcess struct {
	pid  int
	srv  *http.Server
	once sync.Once
	err  error
	done chan struct{}
	kill int32
}

func (p *fakeProcess) exit(err error) {
	p.once.Do(func() {
		p.err = err
		if p.srv != nil { _ = p.srv.Close() }
		close(p.done)
	})
}

func (p *fakeProcess) Pid() int    { return p.pid }
func (p *fakeProcess) Wait() error { <-p.done; return p.err }
func (p *fakeProcess) Kill() error {
	atomic.AddInt32(&p.kill, 1)
	p.exit(errors.New("signal: killed"))
	return nil
}

// recordingKiller records ports and runs an optional hook.
type recordingKiller struct {
	mu    sync.Mutex
	ports []int
	hook  func()
}

func (k *recordingKiller) KillPort(ctx context.Context, port int) error {
	k.mu.Lock()
	k.ports = append(k.ports, port)
	k.mu.Unlock()
	if k.hook != nil { k.hook() }
	return nil
}

func (k *recordingKiller) calls() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.ports)
}

func fastConfig(t *testing.T, baseURL string) Config {
	t.Helper()
	return Config{
		BaseURL:        baseURL,
		Root:           t.TempDir(),
		StartupTimeout: 2 * time.Second,
		SwitchTimeout:  2 * time.Second,
		PollInterval:   20 * time.Millisecond,
		ProbeTimeout:   200 * time.Millisecond,
		ShutdownGrace:  -1,
		GPU:            StaticGPU(false),
		PortKiller:     &recordingKiller{},
	}
}

func newTestSupervisor(t *testing.T, cfg Config) *Supervisor {
	t.Helper()
	s, err := New(cfg)
	if err != nil { t.Fatalf("New: %v", err) }
	return s
}

// runningWebUI serves the fake API on an httptest server.
func runningWebUI(t *testing.T, ui *fakeWebUI) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(ui.handler())
	t.Cleanup(srv.Close)
	return srv
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

func contains(xs []string, want ...string) bool {
	for i := 0; i+len(want) <= len(xs); i++ {
		ok := true
		for j := range want {
			if xs[i+j] != want[j] { ok = false; break }
		}
		if ok { return true }
	}
	return false
}
