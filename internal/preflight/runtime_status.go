package preflight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"slidecast/internal/backend"
)

// RendererSource reports the avatar renderer state.
type RendererSource interface {
	SystemInfo(ctx context.Context) (backend.SystemInfo, error)
}

// RendererStatus is a point-in-time snapshot of the avatar renderer.
type RendererStatus struct {
	Reachable bool
	Info      backend.SystemInfo
	Err       error
}

// FetchRendererStatus fetches system info once with a short timeout.
func FetchRendererStatus(ctx context.Context, source RendererSource) RendererStatus {
	if source == nil {
		return RendererStatus{}
	}
	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	info, err := source.SystemInfo(fetchCtx)
	if err != nil {
		return RendererStatus{Err: err}
	}
	return RendererStatus{Reachable: true, Info: info}
}

// Busy reports whether another render holds the renderer.
func (p RendererStatus) Busy() bool {
	return p.Reachable && p.Info.IsGenerating
}

// Detail renders a display-friendly summary for status UIs.
func (p RendererStatus) Detail() string {
	if !p.Reachable {
		if p.Err != nil {
			return "Unreachable (" + summarizeError(p.Err) + ")"
		}
		return "Unknown"
	}
	info := p.Info
	if !info.AvatarEnabled {
		if msg := strings.TrimSpace(info.Message); msg != "" {
			return "Disabled (" + msg + ")"
		}
		return "Disabled"
	}
	device := "CPU"
	if info.CUDAAvailable {
		device = "CUDA"
		if info.GPUName != "" {
			device = fmt.Sprintf("CUDA %s", info.GPUName)
		}
	}
	model := "model not loaded"
	if info.ModelLoaded {
		model = "model loaded"
	}
	if info.IsGenerating {
		busy := strings.TrimSpace(info.BusyMessage)
		if busy == "" {
			busy = "render in progress"
		}
		return fmt.Sprintf("Busy: %s [%s, %s]", busy, device, model)
	}
	return fmt.Sprintf("Idle [%s, %s]", device, model)
}
