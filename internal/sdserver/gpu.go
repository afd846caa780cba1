package sdserver

import "os/exec"

// GPUProbe decides whether acceleration flags are passed at launch.
type GPUProbe interface {
	HasGPU() bool
}

// NvidiaSMIProbe reports a GPU when nvidia-smi is on PATH.
type NvidiaSMIProbe struct{}

func (NvidiaSMIProbe) HasGPU() bool {
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

// StaticGPU is a fixed probe result.
type StaticGPU bool

func (g StaticGPU) HasGPU() bool { return bool(g) }

var (
	gpuArgs = []string{"--xformers", "--medvram"}
	cpuArgs = []string{"--precision", "full", "--no-half", "--skip-torch-cuda-test"}
)
