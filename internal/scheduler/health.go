package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/nhle/task-assistant/internal/channel"
	"github.com/nhle/task-assistant/internal/compose"
	"github.com/nhle/task-assistant/internal/store"
)

const (
	pingTimeout   = 10 * time.Second
	pingUserAgent = "TaskAssistant-HealthCheck/1.0"

	// alertEvery is how many consecutive failures pass between admin alerts.
	alertEvery = 5
)

// HealthStats summarizes the pings made so far.
type HealthStats struct {
	URL                 string        `json:"url"`
	TotalPings          int           `json:"total_pings"`
	SuccessfulPings     int           `json:"successful_pings"`
	FailedPings         int           `json:"failed_pings"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastPingTime        time.Time     `json:"last_ping_time"`
	LastStatus          string        `json:"last_status"`
	LastResponseTime    time.Duration `json:"last_response_time"`
	LastError           string        `json:"last_error,omitempty"`
}

// Uptime is the share of successful pings in percent, or -1 before the
// first ping.
func (h HealthStats) Uptime() float64 {
	if h.TotalPings == 0 {
		return -1
	}
	return float64(h.SuccessfulPings) / float64(h.TotalPings) * 100
}

// HealthPinger periodically requests a URL, typically the service's own
// public /health endpoint to keep a free-tier host awake, and alerts
// administrators when it keeps failing.
type HealthPinger struct {
	url        string
	httpClient *http.Client
	store      store.Store
	out        channel.Outbound
	clock      clockwork.Clock
	logger     *zap.Logger

	mu    sync.Mutex
	stats HealthStats
}

// NewHealthPinger creates a pinger for url.
func NewHealthPinger(url string, s store.Store, out channel.Outbound, clock clockwork.Clock, logger *zap.Logger) *HealthPinger {
	return &HealthPinger{
		url:        url,
		httpClient: &http.Client{Timeout: pingTimeout},
		store:      s,
		out:        out,
		clock:      clock,
		logger:     logger.Named("health"),
		stats:      HealthStats{URL: url},
	}
}

// Ping requests the URL once and records the outcome. Any status other
// than 200 counts as a failure.
func (h *HealthPinger) Ping(ctx context.Context) error {
	start := h.clock.Now()
	err := h.get(ctx)
	elapsed := h.clock.Since(start)

	h.mu.Lock()
	h.stats.TotalPings++
	h.stats.LastPingTime = start
	h.stats.LastResponseTime = elapsed
	if err == nil {
		h.stats.SuccessfulPings++
		h.stats.ConsecutiveFailures = 0
		h.stats.LastStatus = "success"
		h.stats.LastError = ""
		h.mu.Unlock()
		h.logger.Debug("health ping ok", zap.Duration("elapsed", elapsed))
		return nil
	}
	h.stats.FailedPings++
	h.stats.ConsecutiveFailures++
	h.stats.LastStatus = "error"
	h.stats.LastError = err.Error()
	failures := h.stats.ConsecutiveFailures
	h.mu.Unlock()

	h.logger.Error("health ping failed",
		zap.String("url", h.url),
		zap.Duration("elapsed", elapsed),
		zap.Int("consecutive_failures", failures),
		zap.Error(err),
	)
	if failures%alertEvery == 0 {
		h.alert(ctx, failures, err)
	}
	return err
}

func (h *HealthPinger) get(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", pingUserAgent)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", h.url, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", h.url, resp.StatusCode)
	}
	return nil
}

func (h *HealthPinger) alert(ctx context.Context, failures int, cause error) {
	admins, err := h.store.ListAdmins(ctx)
	if err != nil {
		h.logger.Error("loading admins for alert", zap.Error(err))
		return
	}
	text := compose.HealthAlert(failures, cause.Error(), h.url)
	for _, a := range admins {
		if err := h.out.Send(ctx, a.Channel, a.Address, text); err != nil {
			h.logger.Error("sending health alert", zap.String("admin", a.ID), zap.Error(err))
		}
	}
}

// Stats returns a snapshot of the ping statistics.
func (h *HealthPinger) Stats() HealthStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// Job returns the pinger as a scheduler job.
func (h *HealthPinger) Job(interval time.Duration) Job {
	return Job{Name: JobHealth, Interval: interval, Run: h.Ping, RunAtStart: true}
}
