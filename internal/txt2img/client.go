// Package txt2img submits resolved generation requests to the WebUI and
// persists the returned images.
package txt2img

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"sdbridge/internal/params"
	"sdbridge/internal/sdapi"
)

// Defaults for Config fields left zero.
const (
	DefaultMaxAttempts    = 5
	DefaultRetryDelay     = time.Second
	DefaultRequestTimeout = 600 * time.Second
)

// Config wires a Client.
type Config struct {
	API   *sdapi.Client
	Store ArtifactStore
	// MaxAttempts bounds submissions that end in 404. Other failures are not retried.
	MaxAttempts    int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
	Logger         zerolog.Logger
	// Now stamps artifact names; defaults to time.Now.
	Now func() time.Time
}

// Client submits txt2img requests.
type Client struct {
	cfg Config
}

// New returns a Client with defaults applied. A nil Store writes to outputs/.
func New(cfg Config) *Client {
	if cfg.API == nil {
		cfg.API = sdapi.New(sdapi.DefaultHost)
	}
	if cfg.Store == nil {
		cfg.Store = NewLocalStore(DefaultOutputDir)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Client{cfg: cfg}
}

// Submit posts req and returns one artifact reference per image, in the
// order the server produced them.
func (c *Client) Submit(ctx context.Context, req params.Request) ([]string, error) {
	start := time.Now()
	defer func() { submitSeconds.Observe(time.Since(start).Seconds()) }()

	res, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.persist(ctx, res.Images)
}

func (c *Client) post(ctx context.Context, req params.Request) (sdapi.Txt2ImgResult, error) {
	var (
		res      sdapi.Txt2ImgResult
		attempts int
	)
	op := func() error {
		attempts++
		actx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
		r, err := c.cfg.API.Txt2Img(actx, req)
		switch {
		case err == nil:
			attemptsTotal.WithLabelValues("ok").Inc()
			res = r
			return nil
		case sdapi.IsNotFound(err):
			attemptsTotal.WithLabelValues("not_found").Inc()
			c.cfg.Logger.Debug().Int("attempt", attempts).Int("max", c.cfg.MaxAttempts).Msg("txt2img route not registered yet")
			return err
		default:
			attemptsTotal.WithLabelValues("error").Inc()
			return backoff.Permanent(err)
		}
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.RetryDelay), uint64(c.cfg.MaxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		if sdapi.IsNotFound(err) {
			return res, unavailableError{attempts: attempts, last: err}
		}
		return res, fmt.Errorf("txt2img: %w", err)
	}
	return res, nil
}

func (c *Client) persist(ctx context.Context, images []string) ([]string, error) {
	stamp := c.cfg.Now().Format("20060102_150405")
	refs := make([]string, 0, len(images))
	for i, enc := range images {
		data, err := DecodeImage(enc)
		if err != nil {
			return refs, fmt.Errorf("txt2img: image %d: %w", i, err)
		}
		mt := mimetype.Detect(data)
		ext := mt.Extension()
		if ext == "" {
			ext = ".png"
		}
		name := fmt.Sprintf("local_%s_%d%s", stamp, i, ext)
		ref, err := c.cfg.Store.Save(ctx, name, data, mt.String())
		if err != nil {
			return refs, fmt.Errorf("txt2img: save %s: %w", name, err)
		}
		imagesTotal.Inc()
		c.cfg.Logger.Info().Str("ref", ref).Str("mime", mt.String()).Int("bytes", len(data)).Msg("image saved")
		refs = append(refs, ref)
	}
	return refs, nil
}

// DecodeImage decodes a base64 image as returned by the WebUI, tolerating a
// leading data URL header.
func DecodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some builds strip padding.
		if raw, rerr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rerr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return data, nil
}
