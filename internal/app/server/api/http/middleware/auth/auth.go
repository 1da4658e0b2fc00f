package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"edusync/internal/domain/session"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Auth struct {
	session session.Servicer
	log     *slog.Logger
}

func New(session session.Servicer, log *slog.Logger) *Auth {
	return &Auth{
		session: session,
		log:     log.With(slog.String("component", "auth_middleware")),
	}
}

type contextKey string

const PupilIDKey contextKey = "pupilID"

// Middleware возвращает middleware для Huma с сигнатурой func(ctx Context, next func(Context))
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		header := ctx.Header("Authorization")

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			a.log.Warn("missing bearer token", slog.String("path", ctx.URL().Path))
			a.unauthorized(ctx)
			return
		}

		pupilID, err := a.session.Validate(ctx.Context(), token)
		if err != nil {
			a.log.Warn("token validation failed", slog.Any("error", err))
			a.unauthorized(ctx)
			return
		}

		next(huma.WithContext(ctx, WithPupilID(ctx.Context(), pupilID)))
	}
}

func (a *Auth) unauthorized(ctx huma.Context) {
	ctx.SetStatus(http.StatusUnauthorized)
	ctx.SetHeader("Content-Type", "application/json")

	if err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
		"error": "Unauthorized",
	}); err != nil {
		a.log.Error("encode unauthorized response", slog.Any("error", err))
	}
}

// WithPupilID кладет id ученика в контекст
func WithPupilID(ctx context.Context, pupilID int64) context.Context {
	return context.WithValue(ctx, PupilIDKey, pupilID)
}

func GetPupilID(ctx context.Context) (int64, bool) {
	pupilID, ok := ctx.Value(PupilIDKey).(int64)
	return pupilID, ok
}
