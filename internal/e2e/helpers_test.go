package e2e

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sdbridge/internal/httpapi"
	"sdbridge/internal/imagegen"
	"sdbridge/internal/logring"
	"sdbridge/internal/registry"
	"sdbridge/internal/sdserver"
	"sdbridge/internal/txt2img"
	"sdbridge/pkg/types"
)

// fakeWebUI imitates the parts of the Automatic1111 API the service calls.
type fakeWebUI struct {
	srv *httptest.Server

	mu          sync.Mutex
	checkpoints []string
	payloads    []map[string]any
	notFound    int // txt2img answers 404 this many times first
}

func newFakeWebUI(t *testing.T) *fakeWebUI {
	t.Helper()
	f := &fakeWebUI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/sdapi/v1/sd-models", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]string{{"title": "sd_xl_base_1.0.safetensors", "model_name": "sd_xl_base_1.0"}})
	})
	mux.HandleFunc("/sdapi/v1/options", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.checkpoints = append(f.checkpoints, body["sd_model_checkpoint"])
		f.mu.Unlock()
		_, _ = w.Write([]byte("null"))
	})
	mux.HandleFunc("/sdapi/v1/progress", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"progress":0,"state":{"job_count":0}}`))
	})
	mux.HandleFunc("/sdapi/v1/txt2img", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		if f.notFound > 0 {
			f.notFound--
			f.mu.Unlock()
			http.NotFound(w, r)
			return
		}
		f.payloads = append(f.payloads, body)
		f.mu.Unlock()
		n, _ := body["batch_size"].(float64)
		imgs := make([]string, int(n))
		for i := range imgs {
			imgs[i] = pngBase64(t)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"images": imgs, "parameters": map[string]any{}, "info": "{}"})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeWebUI) switched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.checkpoints...)
}

func (f *fakeWebUI) lastPayload() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		return nil
	}
	return f.payloads[len(f.payloads)-1]
}

func pngBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil { t.Fatalf("png: %v", err) }
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// stack is the production object graph pointed at a fake WebUI.
type stack struct {
	sup      *sdserver.Supervisor
	gen      *imagegen.Generator
	ring     *logring.Ring
	cpDir    string
	baseURL  string
}

func (s *stack) Generate(ctx context.Context, req imagegen.Request, d imagegen.Defaults) ([]string, error) {
	return s.gen.Generate(ctx, req, d)
}
func (s *stack) StartServer(ctx context.Context, cp string) error { return s.sup.Start(ctx, cp) }
func (s *stack) StopServer(ctx context.Context) error              { return s.sup.Shutdown(ctx) }
func (s *stack) SwitchCheckpoint(ctx context.Context, name string, d time.Duration) error {
	return s.sup.Switch(ctx, name, d)
}
func (s *stack) ServerStatus() types.ServerStatus         { return s.sup.Status() }
func (s *stack) LocalSDUp() bool                          { return sdserver.PortOpen(s.baseURL) }
func (s *stack) Checkpoints() ([]types.Checkpoint, error) { return registry.LoadDir(s.cpDir) }
func (s *stack) Logs(n int) []string                      { return s.ring.Last(n) }

// newStack wires supervisor, txt2img client, generator and the HTTP mux.
func newStack(t *testing.T, webui *fakeWebUI, outDir, cpDir string) (*httptest.Server, *stack) {
	t.Helper()
	ring := logring.NewRing(100)
	log := zerolog.New(logring.Tee(nil, ring)).With().Timestamp().Logger()
	sup, err := sdserver.New(sdserver.Config{
		BaseURL:      webui.srv.URL,
		PollInterval: 10 * time.Millisecond,
		Logger:       &log,
	})
	if err != nil { t.Fatalf("supervisor: %v", err) }
	client := txt2img.New(txt2img.Config{
		API:        sup.Client(),
		Store:      txt2img.NewLocalStore(outDir),
		RetryDelay: 5 * time.Millisecond,
		Logger:     log,
	})
	gen := imagegen.New(imagegen.Config{
		Local: imagegen.NewLocal(imagegen.LocalConfig{
			Server:            sup,
			Submitter:         client,
			DefaultCheckpoint: imagegen.DefaultCheckpoint,
			SwitchTimeout:     time.Second,
			Logger:            log,
		}),
		Logger: log,
	})
	st := &stack{sup: sup, gen: gen, ring: ring, cpDir: cpDir, baseURL: webui.srv.URL}
	httpapi.SetLogger(log)
	srv := httptest.NewServer(httpapi.NewMux(st))
	t.Cleanup(srv.Close)
	return srv, st
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil { t.Fatalf("new req: %v", err) }
	resp, err := http.DefaultClient.Do(req)
	if err != nil { t.Fatalf("do req: %v", err) }
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil { t.Fatalf("new req: %v", err) }
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil { t.Fatalf("do req: %v", err) }
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
