package httpapi

import "time"

// maxBodyBytes caps JSON request bodies. Default 1 MiB.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes sets the body cap; non-positive restores the default.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// generateTimeout bounds a /generate call. Zero means no extra timeout.
var generateTimeout time.Duration

// SetGenerateTimeout sets the /generate timeout (negative is treated as zero).
func SetGenerateTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	generateTimeout = d
}

// generateSlots bounds in-flight /generate calls; nil is unlimited.
var generateSlots chan struct{}

// SetMaxConcurrentGenerations limits parallel /generate requests; extra
// requests get 429. n <= 0 removes the limit.
func SetMaxConcurrentGenerations(n int) {
	if n <= 0 {
		generateSlots = nil
		return
	}
	generateSlots = make(chan struct{}, n)
}

// CORS settings. Enabled with every origin allowed unless configured otherwise.
var (
	corsEnabled        = true
	corsAllowedOrigins = []string{"*"}
	corsAllowedMethods = []string{"GET", "POST", "OPTIONS"}
	corsAllowedHeaders = []string{"*"}
)

// SetCORSOptions configures CORS. Empty lists keep the allow-all defaults.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = orDefault(origins, []string{"*"})
	corsAllowedMethods = orDefault(methods, []string{"GET", "POST", "OPTIONS"})
	corsAllowedHeaders = orDefault(headers, []string{"*"})
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return append([]string(nil), v...)
}
