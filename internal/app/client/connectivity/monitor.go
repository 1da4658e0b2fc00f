// Package connectivity отвечает на вопрос, есть ли смысл начинать синхронизацию.
package connectivity

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/exp/slog"
)

const (
	HealthPath          = "/api/v1/health"
	defaultProbeTimeout = 3 * time.Second
)

// Status Online - сеть есть, Reachable - сервер синхронизации отвечает
type Status struct {
	Online    bool
	Reachable bool
}

// CanSync синхронизация запускается только при обоих флагах
func (s Status) CanSync() bool {
	return s.Online && s.Reachable
}

type Monitor interface {
	Status(ctx context.Context) Status
}

// Static фиксированный статус, для тестов и режима --offline
type Static Status

func (s Static) Status(context.Context) Status {
	return Status(s)
}

// HTTPProbe проверяет сервер запросом к health-эндпоинту
type HTTPProbe struct {
	client  *http.Client
	baseURL string
	log     *slog.Logger
}

func NewHTTPProbe(baseURL string, timeout time.Duration, log *slog.Logger) *HTTPProbe {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &HTTPProbe{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		log:     log.With(slog.String("component", "connectivity")),
	}
}

// Status ошибка соединения означает offline, любой ответ кроме 200 -
// online, но сервер недоступен
func (p *HTTPProbe) Status(ctx context.Context) Status {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+HealthPath, nil)
	if err != nil {
		p.log.Error("build probe request", slog.Any("error", err))
		return Status{}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			p.log.Debug("probe timed out", slog.Any("error", err))
		} else {
			p.log.Debug("probe failed", slog.Any("error", err))
		}
		return Status{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.log.Debug("server not ready", slog.Int("status", resp.StatusCode))
		return Status{Online: true}
	}
	return Status{Online: true, Reachable: true}
}
