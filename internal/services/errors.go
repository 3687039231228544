package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Failure classes surfaced by render jobs.
var (
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrExternalService   = errors.New("external service error")
	ErrEncoding          = errors.New("encoding error")
	ErrFileSystem        = errors.New("filesystem error")
)

// Supporting markers used by configuration, lookups and network calls.
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalService
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// WrapNetwork wraps a failed network call as an external service error. Context
// deadline exhaustion additionally carries ErrTimeout.
func WrapNetwork(stage, operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(ErrExternalService, stage, operation, "request timed out", errors.Join(ErrTimeout, err))
	}
	return Wrap(ErrExternalService, stage, operation, "request failed", err)
}

// Kind names the failure class of err for reporting. Unclassified errors
// report "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrResourceExhausted):
		return "resource_exhausted"
	case errors.Is(err, ErrEncoding):
		return "encoding"
	case errors.Is(err, ErrExternalService):
		return "external_service"
	case errors.Is(err, ErrFileSystem):
		return "filesystem"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
