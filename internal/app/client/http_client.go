package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"edusync/internal/app/client/config"
	"edusync/internal/domain/snapshot"
	"edusync/internal/domain/sync"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

const (
	snapshotPath = "/api/v1/snapshot"
	syncPath     = "/api/v1/sync/"
	userAgent    = "edusync-client/1.0"
)

// httpClient транспорт к серверу синхронизации
type httpClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	token     string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *httpClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &httpClient{
		client:    client,
		log:       log.With(slog.String("component", "http_client")),
		baseURL:   cfg.BaseURL(),
		token:     cfg.Token,
		userAgent: userAgent,
	}
}

// SetToken устанавливает токен аутентификации
func (h *httpClient) SetToken(token string) {
	h.token = token
}

// FetchSnapshot полный снимок каталога ученика
func (h *httpClient) FetchSnapshot(ctx context.Context) (*snapshot.Snapshot, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, snapshotPath, nil)
	if err != nil {
		return nil, err
	}

	var snap snapshot.Snapshot
	if err := h.parseResponse(resp, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (h *httpClient) PushScores(ctx context.Context, req sync.PushScoresRequest) (*sync.PushResponse, error) {
	return h.push(ctx, sync.GroupScores, req)
}

func (h *httpClient) PushAnswers(ctx context.Context, req sync.PushAnswersRequest) (*sync.PushResponse, error) {
	return h.push(ctx, sync.GroupAnswers, req)
}

func (h *httpClient) PushProgress(ctx context.Context, req sync.PushProgressRequest) (*sync.PushResponse, error) {
	return h.push(ctx, sync.GroupProgress, req)
}

func (h *httpClient) PushAchievements(ctx context.Context, req sync.PushAchievementsRequest) (*sync.PushResponse, error) {
	return h.push(ctx, sync.GroupAchievements, req)
}

func (h *httpClient) PushNotifications(ctx context.Context, req sync.PushNotificationsRequest) (*sync.PushResponse, error) {
	return h.push(ctx, sync.GroupNotifications, req)
}

func (h *httpClient) push(ctx context.Context, group sync.Group, body any) (*sync.PushResponse, error) {
	resp, err := h.doRequest(ctx, http.MethodPost, syncPath+string(group), body)
	if err != nil {
		return nil, err
	}

	var result sync.PushResponse
	if err := h.parseResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	requestID := uuid.New().String()
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	h.log.Debug("Отправка запроса",
		slog.String("method", method),
		slog.String("url", req.URL.String()),
		slog.String("request_id", requestID),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	return resp, nil
}

func (h *httpClient) parseResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	h.log.Debug("Получен ответ",
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)),
	)

	if resp.StatusCode >= 400 {
		return serverError(resp.StatusCode, body)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}
	return nil
}

// StatusError ответ сервера с кодом 4xx/5xx
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ошибка сервера: статус %d", e.Code)
	}
	return fmt.Sprintf("ошибка сервера (%d): %s", e.Code, e.Message)
}

// Is 401 сопоставляется с ErrUnauthorized
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == http.StatusUnauthorized
}

// serverError сервер отвечает либо {"error": ...}, либо problem+json
// с полями title/detail
func serverError(code int, body []byte) error {
	var errResp struct {
		Error  string `json:"error"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	msg := ""
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.Error != "":
			msg = errResp.Error
		case errResp.Detail != "":
			msg = errResp.Detail
		default:
			msg = errResp.Title
		}
	}
	return &StatusError{Code: code, Message: msg}
}

// IsStatus проверяет код ответа сервера в цепочке ошибок
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
