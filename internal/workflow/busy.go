package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"slidecast/internal/backend"
	"slidecast/internal/jobs"
	"slidecast/internal/logging"
	"slidecast/internal/notifications"
	"slidecast/internal/services"
)

// DefaultBusyInterval is the cadence of avatar renderer checks.
const DefaultBusyInterval = 10 * time.Second

// SystemInfoSource reports the avatar renderer state.
type SystemInfoSource interface {
	SystemInfo(ctx context.Context) (backend.SystemInfo, error)
}

// BusyMonitor polls the backend's exclusive avatar renderer on a fixed
// cadence, independent of job status polling.
type BusyMonitor struct {
	source   SystemInfoSource
	logger   *slog.Logger
	interval time.Duration
	onResult func(backend.SystemInfo, error)
}

// NewBusyMonitor creates a monitor that hands every check to onResult.
func NewBusyMonitor(source SystemInfoSource, logger *slog.Logger, interval time.Duration, onResult func(backend.SystemInfo, error)) *BusyMonitor {
	if interval <= 0 {
		interval = DefaultBusyInterval
	}
	return &BusyMonitor{
		source:   source,
		logger:   logger,
		interval: interval,
		onResult: onResult,
	}
}

// Run checks immediately and then on every tick until ctx is cancelled.
func (b *BusyMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, logging.NewComponentLogger(b.logger, "busy-monitor"))
	logger.Debug("busy monitor started", logging.Duration("interval", b.interval))

	b.check(ctx, logger)
	for {
		select {
		case <-ctx.Done():
			logger.Debug("busy monitor stopped")
			return
		case <-ticker.C:
			b.check(ctx, logger)
		}
	}
}

func (b *BusyMonitor) check(ctx context.Context, logger *slog.Logger) {
	info, err := b.source.SystemInfo(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Warn("system info check failed", logging.Error(err))
	}
	if b.onResult != nil {
		b.onResult(info, err)
	}
}

// ForceUnlock clears the backend's avatar renderer lock. It may abort
// another client's render, so confirmed must be true.
func (m *Manager) ForceUnlock(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return services.Wrap(services.ErrValidation, string(jobs.Avatar), "force unlock", "force unlock may abort another render; confirmation required", nil)
	}
	if err := m.api.ForceUnlock(ctx); err != nil {
		wrapped := services.Wrap(services.ErrTransport, string(jobs.Avatar), "force unlock", "", err)
		m.banner.ReportError(string(jobs.Avatar), wrapped)
		return wrapped
	}
	m.logger.Warn("avatar renderer lock force-cleared")

	var fx effects
	m.mu.Lock()
	m.busy = BusyView{Known: true}
	m.emit(&fx, Update{Kind: UpdateBusy, Busy: false, Message: "unlocked"})
	m.mu.Unlock()
	fx.run()

	if notice, ok := m.banner.Current(); ok && notice.Category == notifications.CategoryBusy {
		m.banner.Dismiss()
	}
	return nil
}

// RefreshBusy fetches the avatar renderer state once.
func (m *Manager) RefreshBusy(ctx context.Context) BusyView {
	m.refreshBusy(ctx)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

func (m *Manager) refreshBusy(ctx context.Context) {
	info, err := m.api.SystemInfo(ctx)
	if err != nil {
		m.logger.Warn("system info check failed", logging.Error(err))
	}
	m.applyBusy(info, err)
}

func (m *Manager) applyBusy(info backend.SystemInfo, err error) {
	if err != nil {
		return
	}
	var fx effects
	m.mu.Lock()
	was := m.busy.Generating
	m.busy = BusyView{Known: true, Generating: info.IsGenerating, Message: info.BusyMessage}
	if was != info.IsGenerating {
		m.emit(&fx, Update{Kind: UpdateBusy, Busy: info.IsGenerating, Message: info.BusyMessage})
	}
	m.mu.Unlock()
	fx.run()

	if info.IsGenerating && !was {
		msg := info.BusyMessage
		if msg == "" {
			msg = "another avatar render holds the renderer"
		}
		m.banner.Report(notifications.Notice{Category: notifications.CategoryBusy, Stage: string(jobs.Avatar), Message: msg})
	}
}

// startBusyLocked launches the monitor if it is not already running.
func (m *Manager) startBusyLocked() {
	if m.busyCancel != nil || m.closed {
		return
	}
	ctx, cancel := context.WithCancel(services.WithStage(m.ctx, string(jobs.Avatar)))
	m.busyCancel = cancel
	monitor := NewBusyMonitor(m.api, m.logger, m.busyInterval, m.applyBusy)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		monitor.Run(ctx)
	}()
}

// stopBusyLocked cancels the monitor without waiting for it.
func (m *Manager) stopBusyLocked() {
	if m.busyCancel == nil {
		return
	}
	m.busyCancel()
	m.busyCancel = nil
}
