package logger

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

type pingOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func setupAPI(t *testing.T) humatest.TestAPI {
	_, api := humatest.New(t)
	mw := New(slog.Default())

	huma.Register(api, huma.Operation{
		OperationID: "ping",
		Method:      http.MethodGet,
		Path:        "/ping",
		Middlewares: huma.Middlewares{mw.Middleware()},
	}, func(ctx context.Context, _ *struct{}) (*pingOutput, error) {
		out := &pingOutput{}
		out.Body.Status = "OK"
		return out, nil
	})
	return api
}

func TestLogger_KeepsClientRequestID(t *testing.T) {
	api := setupAPI(t)
	id := uuid.NewString()

	resp := api.Get("/ping", RequestIDHeader+": "+id)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, id, resp.Header().Get(RequestIDHeader))
}

func TestLogger_GeneratesRequestID(t *testing.T) {
	api := setupAPI(t)

	resp := api.Get("/ping", RequestIDHeader+": not-a-uuid")

	got := resp.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(got)
	assert.NoError(t, err)
}
