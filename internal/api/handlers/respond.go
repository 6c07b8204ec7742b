package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Togather-Foundation/nko-directory/internal/api/middleware"
	"github.com/Togather-Foundation/nko-directory/internal/api/problem"
	"github.com/Togather-Foundation/nko-directory/internal/domain/apperr"
)

// Client-facing messages. The web client shows the "message" member of
// error bodies verbatim.
const (
	msgAuthFieldsRequired    = "Email и пароль обязательны"
	msgEmailTaken            = "Пользователь с таким email уже существует"
	msgInvalidCredentials    = "Неверный email или пароль"
	msgNotAuthorized         = "Не авторизован"
	msgAuthRequired          = "Требуется авторизация"
	msgListingFieldsRequired = "Заполните обязательные поля: название, категория, описание, город"
	msgListingSubmitted      = "НКО отправлена на модерацию"
	msgServerError           = "Ошибка сервера"
	msgPayloadTooLarge       = "Слишком большой запрос"
)

// errorMessages picks route-specific wording for the error kinds whose text
// differs between endpoints.
type errorMessages struct {
	validation      string
	unauthenticated string
}

// writeJSON encodes payload before writing the header, so a value that cannot
// be encoded becomes a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, msgServerError,
			fmt.Errorf("encode response: %w", err), "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

var errBodyTooLarge = errors.New("request body too large")

// decodeJSON reads the body as a T. A missing or malformed body yields the
// zero T so that required-field validation reports what is missing; only an
// oversized body is an error.
func decodeJSON[T any](r *http.Request) (T, error) {
	var zero T
	if r.Body == nil {
		return zero, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return zero, errBodyTooLarge
		}
		return zero, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return zero, nil
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		middleware.LoggerFromContext(r.Context()).Debug().Err(err).Msg("ignoring malformed JSON body")
		return zero, nil
	}
	return out, nil
}

// writeError maps the domain error taxonomy onto HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, env string, err error, msgs errorMessages) {
	var verr apperr.ValidationError
	switch {
	case errors.Is(err, errBodyTooLarge):
		problem.Write(w, r, http.StatusRequestEntityTooLarge, problem.TypeTooLarge, "Payload too large", err, env,
			problem.WithMessage(msgPayloadTooLarge))
	case errors.As(err, &verr):
		message := msgs.validation
		if verr.Message != "" || message == "" {
			message = verr.Error()
		}
		opts := []problem.Option{problem.WithMessage(message), problem.WithDetail(verr.Error())}
		if len(verr.Fields) > 0 {
			opts = append(opts, problem.WithErrors(map[string]any{"missing": verr.Fields}))
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, env, opts...)
	case errors.Is(err, apperr.ErrConflict):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeConflict, "Conflict", err, env,
			problem.WithMessage(msgEmailTaken), problem.WithDetail(msgEmailTaken))
	case errors.Is(err, apperr.ErrInvalidCredentials):
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env,
			problem.WithMessage(msgInvalidCredentials), problem.WithDetail(msgInvalidCredentials))
	case errors.Is(err, apperr.ErrUnauthenticated):
		message := msgs.unauthenticated
		if message == "" {
			message = msgNotAuthorized
		}
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env,
			problem.WithMessage(message), problem.WithDetail(message))
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env,
			problem.WithMessage(msgServerError))
	}
}
