package txt2img

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"sdbridge/internal/params"
	"sdbridge/internal/sdapi"
)

func pngBytes(t *testing.T, w int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, 1))); err != nil {
		t.Fatalf("png: %v", err)
	}
	return buf.Bytes()
}

// fakeTxt2Img answers 404 for the first notFound calls, then returns images.
type fakeTxt2Img struct {
	notFound int32
	status   int
	images   []string
	hits     int32
	lastBody atomic.Value
}

func (f *fakeTxt2Img) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/sdapi/v1/txt2img" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	n := atomic.AddInt32(&f.hits, 1)
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.lastBody.Store(body)
	if n <= f.notFound {
		http.Error(w, `{"detail":"Not Found"}`, http.StatusNotFound)
		return
	}
	if f.status != 0 {
		http.Error(w, "boom", f.status)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"images": f.images, "info": "{}"})
}

func newTestClient(t *testing.T, fake *fakeTxt2Img, attempts int) (*Client, string) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	dir := t.TempDir()
	c := New(Config{
		API:         sdapi.New(srv.URL),
		Store:       NewLocalStore(dir),
		MaxAttempts: attempts,
		RetryDelay:  time.Millisecond,
		Now:         func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) },
	})
	return c, dir
}

func testRequest(t *testing.T) params.Request {
	t.Helper()
	req, err := params.Resolve("fast", params.Input{Prompt: "a cat", Size: "64x64", N: 2}, params.Overrides{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return req
}

func TestSubmitRetriesNotFoundBelowLimit(t *testing.T) {
	img := base64.StdEncoding.EncodeToString(pngBytes(t, 1))
	for k := 0; k < 5; k++ {
		fake := &fakeTxt2Img{notFound: int32(k), images: []string{img}}
		c, _ := newTestClient(t, fake, 5)
		refs, err := c.Submit(context.Background(), testRequest(t))
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if len(refs) != 1 {
			t.Fatalf("k=%d: refs %v", k, refs)
		}
		if got := atomic.LoadInt32(&fake.hits); got != int32(k+1) {
			t.Fatalf("k=%d: %d submissions, want %d", k, got, k+1)
		}
	}
}

func TestSubmitEndpointUnavailable(t *testing.T) {
	fake := &fakeTxt2Img{notFound: 100}
	c, _ := newTestClient(t, fake, 3)
	_, err := c.Submit(context.Background(), testRequest(t))
	if !IsEndpointUnavailable(err) {
		t.Fatalf("want endpoint unavailable, got %v", err)
	}
	if !sdapi.IsNotFound(err) {
		t.Fatalf("cause should stay reachable: %v", err)
	}
	if got := atomic.LoadInt32(&fake.hits); got != 3 {
		t.Fatalf("%d submissions, want 3", got)
	}
}

func TestSubmitHardFailureNotRetried(t *testing.T) {
	fake := &fakeTxt2Img{status: http.StatusInternalServerError}
	c, _ := newTestClient(t, fake, 5)
	_, err := c.Submit(context.Background(), testRequest(t))
	if err == nil || IsEndpointUnavailable(err) || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&fake.hits); got != 1 {
		t.Fatalf("%d submissions, want 1", got)
	}
}

func TestSubmitCanceledContext(t *testing.T) {
	fake := &fakeTxt2Img{notFound: 100}
	c, _ := newTestClient(t, fake, 5)
	c.cfg.RetryDelay = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Submit(ctx, testRequest(t)); err == nil {
		t.Fatalf("expected error on canceled context")
	}
}

func TestSubmitPersistsInServerOrder(t *testing.T) {
	a, b := pngBytes(t, 1), pngBytes(t, 2)
	fake := &fakeTxt2Img{images: []string{
		base64.StdEncoding.EncodeToString(a),
		"data:image/png;base64," + base64.StdEncoding.EncodeToString(b),
	}}
	c, dir := newTestClient(t, fake, 5)
	refs, err := c.Submit(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("refs: %v", refs)
	}
	want := []string{"local_20240506_070809_0.png", "local_20240506_070809_1.png"}
	for i, ref := range refs {
		if !filepath.IsAbs(ref) || filepath.Base(ref) != want[i] || filepath.Dir(ref) != dir {
			t.Fatalf("ref %d = %s", i, ref)
		}
	}
	got, _ := os.ReadFile(refs[1])
	if !bytes.Equal(got, b) {
		t.Fatalf("second image content mismatch")
	}

	body, _ := fake.lastBody.Load().(map[string]any)
	if body["steps"] != float64(20) || body["batch_size"] != float64(2) || body["n_iter"] != float64(1) {
		t.Fatalf("payload: %v", body)
	}
	if _, ok := body["enable_hr"]; ok {
		t.Fatalf("hr block should be omitted: %v", body)
	}
}

func TestSubmitBadImage(t *testing.T) {
	fake := &fakeTxt2Img{images: []string{"!!!not base64"}}
	c, _ := newTestClient(t, fake, 1)
	if _, err := c.Submit(context.Background(), testRequest(t)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDecodeImage(t *testing.T) {
	raw := []byte("hello")
	for _, in := range []string{
		base64.StdEncoding.EncodeToString(raw),
		"data:image/png;base64," + base64.StdEncoding.EncodeToString(raw),
		base64.RawStdEncoding.EncodeToString(raw),
	} {
		got, err := DecodeImage(in)
		if err != nil || string(got) != "hello" {
			t.Fatalf("%q: %q %v", in, got, err)
		}
	}
}
