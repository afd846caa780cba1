package sdserver

import (
	"os/exec"
	"path/filepath"

	"sdbridge/internal/common/fsutil"
)

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	RootFound   bool   `json:"root_found"`
	RootPath    string `json:"root_path,omitempty"`
	ScriptFound bool   `json:"script_found"`
	PythonFound bool   `json:"python_found"`
	PythonPath  string `json:"python_path,omitempty"`
	GPU         bool   `json:"gpu"`
	Error       string `json:"error,omitempty"`
}

// OK reports whether a launch could be attempted.
func (r SanityReport) OK() bool { return r.RootFound && r.ScriptFound && r.PythonFound }

// SanityCheck validates that the webui checkout and interpreter are present.
// It does not mutate state and is safe to call at any time.
func (s *Supervisor) SanityCheck() SanityReport {
	r := SanityReport{RootPath: s.cfg.Root, GPU: s.cfg.GPU.HasGPU()}
	r.RootFound = s.cfg.Root != "" && fsutil.DirExists(s.cfg.Root)
	if r.RootFound {
		r.ScriptFound = fsutil.PathExists(filepath.Join(s.cfg.Root, s.cfg.LaunchScript))
	}
	if p, err := exec.LookPath(s.cfg.Python); err == nil {
		r.PythonFound = true
		r.PythonPath = p
	}
	switch {
	case !r.RootFound:
		r.Error = "webui dir not found"
	case !r.ScriptFound:
		r.Error = s.cfg.LaunchScript + " not found in webui dir"
	case !r.PythonFound:
		r.Error = s.cfg.Python + " not found on PATH"
	}
	return r
}
