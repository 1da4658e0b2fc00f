package sync

import (
	"net/http"

	"edusync/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) snapshotOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-snapshot",
		Method:      http.MethodGet,
		Path:        "/api/v1/snapshot",
		Summary:     "Полный снимок каталога ученика",
		Description: "Возвращает все разделы, предметы, уроки, материалы, игры и данные ученика для downsync",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) pushOp(group sync.Group) huma.Operation {
	return huma.Operation{
		OperationID:   "sync-push-" + string(group),
		Method:        http.MethodPost,
		Path:          "/api/v1/sync/" + string(group),
		Summary:       "Upsync группы " + string(group),
		Description:   "Сохраняет записи группы и возвращает серверные id в порядке записей запроса",
		Tags:          []string{"sync"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusOK,
		Middlewares:   h.middleware,
	}
}
