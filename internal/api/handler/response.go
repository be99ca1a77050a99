package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"loan-engine/internal/api/handler/dto"
	mw "loan-engine/internal/api/middleware"
	"loan-engine/internal/pkg/apperrors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// statusFor maps domain sentinels onto HTTP status codes and stable error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, apperrors.ErrInvalidPrincipal):
		return http.StatusBadRequest, "INVALID_PRINCIPAL"
	case errors.Is(err, apperrors.ErrInvalidRate):
		return http.StatusBadRequest, "INVALID_RATE"
	case errors.Is(err, apperrors.ErrInvalidTerm):
		return http.StatusBadRequest, "INVALID_TERM"
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case errors.Is(err, apperrors.ErrLoanNotActive):
		return http.StatusConflict, "LOAN_NOT_ACTIVE"
	case errors.Is(err, apperrors.ErrInstallmentAlreadyPaid):
		return http.StatusConflict, "INSTALLMENT_ALREADY_PAID"
	case errors.Is(err, apperrors.ErrInstallmentOutOfOrder):
		return http.StatusConflict, "INSTALLMENT_OUT_OF_ORDER"
	case errors.Is(err, apperrors.ErrInvalidLoanState):
		return http.StatusConflict, "INVALID_LOAN_STATE"
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func respondError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	message, field := err.Error(), ""

	var validationError *apperrors.ValidationError
	if errors.As(err, &validationError) {
		message, field = validationError.Message, validationError.Field
	}
	if status == http.StatusInternalServerError {
		slog.Default().Error("Unhandled internal error", "error", err)
		message = "An unexpected error occurred."
	}

	respondJSON(w, status, dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Code:    code,
			Message: message,
			Field:   field,
		},
	})
}

func getLoanIDFromURL(r *http.Request) (int64, error) {
	idStr := chi.URLParam(r, "loanID")
	if idStr == "" {
		return 0, fmt.Errorf("%w: loanID not found in URL path", apperrors.ErrInvalidArgument)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid loanID format in URL path: %s", apperrors.ErrInvalidArgument, idStr)
	}
	return id, nil
}

func principalFrom(r *http.Request) (mw.Principal, error) {
	p, ok := mw.PrincipalFrom(r.Context())
	if !ok {
		return mw.Principal{}, fmt.Errorf("%w: no authenticated principal", apperrors.ErrUnauthorized)
	}
	return p, nil
}
