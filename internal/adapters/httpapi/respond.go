package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"recipebox/internal/domain"
	"recipebox/internal/infra/storage"
	"recipebox/internal/usecase/ratings"
)

type errorBody struct {
	Message string              `json:"message"`
	Error   string              `json:"error,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func message(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

// fail переводит ошибку сервиса в HTTP ответ. Текст внутренних ошибок отдаётся только в debug.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Message: "переданные данные некорректны", Errors: verr.Fields})
	case errors.Is(err, errBadRequest):
		message(w, http.StatusBadRequest, errBadRequest.Error())
	case errors.Is(err, storage.ErrUnsupportedImage):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Message: "переданные данные некорректны",
			Errors:  map[string][]string{"image": {storage.ErrUnsupportedImage.Error()}},
		})
	case errors.Is(err, domain.ErrInvalidCredentials):
		message(w, http.StatusUnauthorized, domain.ErrInvalidCredentials.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		body := errorBody{Message: domain.ErrUnauthorized.Error()}
		if h.debug {
			body.Error = err.Error()
		}
		writeJSON(w, http.StatusUnauthorized, body)
	case errors.Is(err, ratings.ErrOwnRecipe):
		message(w, http.StatusForbidden, ratings.ErrOwnRecipe.Error())
	case errors.Is(err, domain.ErrForbidden):
		message(w, http.StatusForbidden, domain.ErrForbidden.Error())
	case errors.Is(err, domain.ErrNotFound):
		message(w, http.StatusNotFound, "ресурс не найден")
	default:
		h.log.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http: request failed")
		body := errorBody{Message: "внутренняя ошибка сервера"}
		if h.debug {
			body.Error = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
	}
}
