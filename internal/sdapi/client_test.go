package sdapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestModelsAndProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sdapi/v1/sd-models":
			_, _ = w.Write([]byte(`[{"title":"a.safetensors [x]","model_name":"a"}]`))
		case "/sdapi/v1/progress":
			if r.URL.Query().Get("skip_current_image") != "true" { t.Errorf("missing skip_current_image") }
			_, _ = w.Write([]byte(`{"progress":0.5,"state":{"job_count":2}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := New(srv.URL + "/")
	if c.BaseURL() != srv.URL { t.Fatalf("base=%s", c.BaseURL()) }
	ms, err := c.Models(testCtx(t))
	if err != nil || len(ms) != 1 || ms[0].ModelName != "a" { t.Fatalf("models=%v err=%v", ms, err) }
	p, err := c.Progress(testCtx(t))
	if err != nil || p.State.JobCount != 2 { t.Fatalf("progress=%+v err=%v", p, err) }
}

func TestSetCheckpointSendsBody(t *testing.T) {
	var got Options
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sdapi/v1/options" { http.NotFound(w, r); return }
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte("null"))
	}))
	defer srv.Close()
	if err := New(srv.URL).SetCheckpoint(testCtx(t), "sd_xl_base_1.0.safetensors"); err != nil { t.Fatalf("err: %v", err) }
	if got.SDModelCheckpoint != "sd_xl_base_1.0.safetensors" { t.Fatalf("got %+v", got) }
}

func TestStatusErrorCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sdapi/v1/txt2img" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":"bad sampler"}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	c := New(srv.URL)
	_, err := c.Txt2Img(testCtx(t), map[string]any{"prompt": "x"})
	se, ok := err.(*StatusError)
	if !ok { t.Fatalf("expected *StatusError, got %T %v", err, err) }
	if se.Code != http.StatusUnprocessableEntity || se.Body != `{"detail":"bad sampler"}` { t.Fatalf("unexpected: %+v", se) }
	if IsNotFound(err) { t.Fatalf("422 is not a 404") }
	if err := c.Shutdown(testCtx(t)); !IsNotFound(err) { t.Fatalf("expected 404 from shutdown, got %v", err) }
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	if _, err := New(url).Models(testCtx(t)); err == nil { t.Fatalf("expected error when server is down") }
}
