package fetch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnreachable = errors.New("source unreachable")
	ErrUnsupported = errors.New("unsupported source")
	ErrTimeout     = errors.New("fetch timeout")
	ErrTooLarge    = errors.New("payload too large")
)

// Wrap builds an error message with operation context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrUnreachable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a fetch error is worth another attempt. Transport
// and timeout failures may clear up; unsupported or oversized sources never
// will.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnreachable) || errors.Is(err, ErrTimeout)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "fetch failure"
	}
	return strings.Join(parts, ": ")
}
