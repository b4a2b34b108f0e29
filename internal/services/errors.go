package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Category groups failures by how a job runner should react to them.
type Category string

const (
	// CategoryEnvironment covers missing or incompatible hardware and binaries.
	CategoryEnvironment Category = "environment"
	// CategoryFormat covers malformed subtitle or media input for a single item.
	CategoryFormat Category = "format"
	// CategoryModel covers model load failures and unsupported language pairs.
	CategoryModel Category = "model"
	// CategoryInternal is everything else.
	CategoryInternal Category = "internal"
)

// ErrorClassifier allows errors to declare their category. Kinds map to the
// Category constants above.
type ErrorClassifier interface {
	ErrorKind() string
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to its Category. Typed errors implementing
// ErrorClassifier win; sentinel markers are consulted next.
func Classify(err error) Category {
	if err == nil {
		return ""
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		switch Category(classifier.ErrorKind()) {
		case CategoryEnvironment, CategoryFormat, CategoryModel:
			return Category(classifier.ErrorKind())
		}
	}
	switch {
	case errors.Is(err, ErrExternalTool), errors.Is(err, ErrConfiguration):
		return CategoryEnvironment
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return CategoryFormat
	default:
		return CategoryInternal
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
