package sync

import (
	"context"
	"errors"
	"net/http"

	"edusync/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service    sync.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service sync.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.snapshotOp(), h.snapshot)
	huma.Register(api, h.pushOp(sync.GroupScores), h.pushScores)
	huma.Register(api, h.pushOp(sync.GroupAnswers), h.pushAnswers)
	huma.Register(api, h.pushOp(sync.GroupProgress), h.pushProgress)
	huma.Register(api, h.pushOp(sync.GroupAchievements), h.pushAchievements)
	huma.Register(api, h.pushOp(sync.GroupNotifications), h.pushNotifications)
}

func (h *Handler) snapshot(ctx context.Context, _ *snapshotInput) (*snapshotOutput, error) {
	snap, err := h.service.Snapshot(ctx)
	if err != nil {
		return nil, h.toHTTPError("snapshot", err)
	}

	return &snapshotOutput{Body: snap}, nil
}

func (h *Handler) pushScores(ctx context.Context, input *pushScoresInput) (*pushOutput, error) {
	return h.push(sync.GroupScores)(h.service.PushScores(ctx, input.Body))
}

func (h *Handler) pushAnswers(ctx context.Context, input *pushAnswersInput) (*pushOutput, error) {
	return h.push(sync.GroupAnswers)(h.service.PushAnswers(ctx, input.Body))
}

func (h *Handler) pushProgress(ctx context.Context, input *pushProgressInput) (*pushOutput, error) {
	return h.push(sync.GroupProgress)(h.service.PushProgress(ctx, input.Body))
}

func (h *Handler) pushAchievements(ctx context.Context, input *pushAchievementsInput) (*pushOutput, error) {
	return h.push(sync.GroupAchievements)(h.service.PushAchievements(ctx, input.Body))
}

func (h *Handler) pushNotifications(ctx context.Context, input *pushNotificationsInput) (*pushOutput, error) {
	return h.push(sync.GroupNotifications)(h.service.PushNotifications(ctx, input.Body))
}

func (h *Handler) push(group sync.Group) func(*sync.PushResponse, error) (*pushOutput, error) {
	return func(resp *sync.PushResponse, err error) (*pushOutput, error) {
		if err != nil {
			return nil, h.toHTTPError(string(group), err)
		}
		return &pushOutput{Body: *resp}, nil
	}
}

// toHTTPError переводит доменные ошибки в статусы HTTP
func (h *Handler) toHTTPError(op string, err error) error {
	switch {
	case errors.Is(err, sync.ErrUnauthenticated):
		return huma.Error401Unauthorized("Unauthorized")
	case errors.Is(err, sync.ErrPupilMismatch):
		return huma.Error403Forbidden(err.Error())
	case errors.Is(err, sync.ErrBatchTooLarge):
		return huma.NewError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, sync.ErrInvalidRecord):
		return huma.Error422UnprocessableEntity(err.Error())
	}

	h.log.Error("sync request failed", slog.String("op", op), slog.Any("error", err))
	return huma.Error500InternalServerError("internal error")
}
