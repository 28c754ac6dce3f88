package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"marketplace/internal/middleware"
	"marketplace/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// statusByCode maps domain error codes to HTTP statuses.
var statusByCode = map[string]int{
	model.ErrCodeInvalidJSON:         http.StatusBadRequest,
	model.ErrCodeValidation:          http.StatusBadRequest,
	model.ErrCodeNotFound:            http.StatusNotFound,
	model.ErrCodeInsufficientStock:   http.StatusConflict,
	model.ErrCodeCartMismatch:        http.StatusConflict,
	model.ErrCodeCouponRejected:      http.StatusUnprocessableEntity,
	model.ErrCodeInvalidTransition:   http.StatusConflict,
	model.ErrCodeReturnWindowClosed:  http.StatusUnprocessableEntity,
	model.ErrCodeInsufficientBalance: http.StatusUnprocessableEntity,
	model.ErrCodeSignatureInvalid:    http.StatusBadRequest,
	model.ErrCodePaymentState:        http.StatusConflict,
	model.ErrCodeDuplicate:           http.StatusConflict,
	model.ErrCodeUnauthorised:        http.StatusUnauthorized,
	model.ErrCodeForbidden:           http.StatusForbidden,
	model.ErrCodeGatewayUnavailable:  http.StatusServiceUnavailable,
	model.ErrCodeInternalError:       http.StatusInternalServerError,
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes the error envelope with the given status code.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Str("error", message).Int("status", status).Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: middleware.RequestIDFrom(r.Context()),
	})
}

// writeServiceError classifies err. Domain errors keep their message; anything
// else is reported generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		status, ok := statusByCode[domainErr.Code]
		if !ok {
			status = http.StatusBadRequest
		}
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).Msg("service unavailable")
			writeError(w, r, status, domainErr.Code, domainErr.Message, logger)
			return
		}
		writeError(w, r, status, domainErr.Code, err.Error(), logger)
		return
	}

	logger.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected service error")
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
}

// decodeJSON decodes a single JSON object into dest and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return model.NewDomainError(model.ErrCodeInvalidJSON, "invalid request body: "+err.Error())
	}
	if err := validate.Struct(dest); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) *model.DomainError {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return model.NewDomainError(model.ErrCodeValidation, "validation failed")
	}

	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fe.Namespace()[strings.Index(fe.Namespace(), ".")+1:]+" "+validationMessage(fe))
	}
	sort.Strings(msgs)
	return model.NewDomainError(model.ErrCodeValidation, "validation failed: "+strings.Join(msgs, "; "))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	}
	return "is invalid"
}

// actor returns the authenticated caller or writes 401.
func actor(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (model.Actor, bool) {
	a, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, model.ErrUnauthorised.Message, logger)
	}
	return a, ok
}
