package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var rotationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "datescout_proxy_rotations_total",
	Help: "Total number of proxy rotation attempts, labeled by status.",
}, []string{"status"})

const maxHealthBody = 1 << 20

// pauser matches scraper.TimerPauser without importing the scraper package.
type pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// Rotator requests a new egress identity from the rotation endpoint, waits a
// settle interval, then health-checks the response. All methods are safe on
// a nil receiver: a nil Rotator is the disabled, pass-through policy.
type Rotator struct {
	cfg    *Config
	check  HealthCheck
	client *http.Client
	pauser pauser
	settle time.Duration
	logger *zap.Logger
}

// NewRotator builds a rotator for cfg. The health check named in cfg must
// already have passed Validate.
func NewRotator(cfg *Config, settle time.Duration, p pauser, logger *zap.Logger) (*Rotator, error) {
	check, err := ParseHealthCheck(cfg.StatusCheck)
	if err != nil {
		return nil, err
	}
	return &Rotator{
		cfg:    cfg,
		check:  check,
		client: &http.Client{Timeout: 30 * time.Second},
		pauser: p,
		settle: settle,
		logger: logger,
	}, nil
}

// Active reports whether rotation is configured at all.
func (r *Rotator) Active() bool {
	return r != nil
}

// ShouldRotate triggers on every 10th processed URL. Index zero is excluded;
// the session-start rotation is requested explicitly by the orchestrator.
func (r *Rotator) ShouldRotate(idx int) bool {
	if r == nil {
		return false
	}
	return idx != 0 && idx%10 == 0
}

// Rotate requests a new egress address, settles, and health-checks the raw
// response. An unhealthy identity is surfaced in the logs but tolerated:
// degraded proxying must not abort the run.
func (r *Rotator) Rotate(ctx context.Context) error {
	if r == nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.RotateURL, nil)
	if err != nil {
		rotationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("build rotation request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		rotationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("call rotation endpoint: %w", err)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHealthBody))
	resp.Body.Close()
	if err != nil {
		rotationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("read rotation response: %w", err)
	}

	r.pauser.Pause(ctx, r.settle)

	ok, detail := r.check(resp.StatusCode, body)
	if !ok {
		rotationsTotal.WithLabelValues("unhealthy").Inc()
		r.logger.Warn("proxy rotation unhealthy",
			zap.String("detail", detail),
			zap.ByteString("body", body))
		return nil
	}
	rotationsTotal.WithLabelValues("ok").Inc()
	r.logger.Info("proxy rotated", zap.String("detail", detail))
	return nil
}
