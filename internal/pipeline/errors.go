package pipeline

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error markers used to classify item and run failures.
var (
	// ErrTransientProvider marks network, rate-limit and server-side provider
	// failures; re-running the stage later may succeed.
	ErrTransientProvider = errors.New("transient provider error")
	// ErrPermanentItem marks input the provider will keep rejecting.
	ErrPermanentItem = errors.New("permanent item error")
	// ErrStorage marks read, write or listing failures on an artifact store.
	ErrStorage = errors.New("storage error")
)

// Wrap tags err with marker and an operation description. The result matches
// both marker and err with errors.Is.
func Wrap(marker error, operation string, err error) error {
	if marker == nil {
		marker = ErrTransientProvider
	}

	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "pipeline"
	}

	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, operation, err)
	}

	return fmt.Errorf("%w: %s", marker, operation)
}

// IsRetryable reports whether a failure is worth another run.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrPermanentItem) {
		return false
	}

	return errors.Is(err, ErrTransientProvider) || errors.Is(err, ErrStorage)
}

// Classify returns the marker err carries, or nil when it carries none.
func Classify(err error) error {
	switch {
	case errors.Is(err, ErrPermanentItem):
		return ErrPermanentItem
	case errors.Is(err, ErrTransientProvider):
		return ErrTransientProvider
	case errors.Is(err, ErrStorage):
		return ErrStorage
	default:
		return nil
	}
}

// StatusMarker maps the status code of a failed provider request to a marker.
// Timeouts, rate limits and server errors are transient; any other status is
// a rejection of the item itself.
func StatusMarker(statusCode int) error {
	switch {
	case statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusTooManyRequests,
		statusCode >= http.StatusInternalServerError:
		return ErrTransientProvider
	default:
		return ErrPermanentItem
	}
}
