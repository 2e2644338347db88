package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
)

// PathSlug returns the trimmed, lowercased {key} URL param.
func PathSlug(r *http.Request, key string) (string, error) {
	raw := strings.ToLower(strings.TrimSpace(chi.URLParam(r, key)))
	if raw == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "path parameter required").WithDetails(map[string]any{"field": key})
	}
	return raw, nil
}

// PathInt64 parses a positive integer URL param.
func PathInt64(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a positive integer").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
