package services_test

import (
	"errors"
	"strings"
	"testing"

	"textifier/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "extract", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extract", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

type kindError struct{ kind string }

func (e kindError) Error() string     { return "kind " + e.kind }
func (e kindError) ErrorKind() string { return e.kind }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want services.Category
	}{
		{"nil", nil, ""},
		{"typed format", kindError{kind: "format"}, services.CategoryFormat},
		{"typed model wrapped", errors.Join(errors.New("ctx"), kindError{kind: "model"}), services.CategoryModel},
		{"unknown kind falls through", kindError{kind: "odd"}, services.CategoryInternal},
		{"external tool marker", services.Wrap(services.ErrExternalTool, "a", "b", "c", nil), services.CategoryEnvironment},
		{"validation marker", services.Wrap(services.ErrValidation, "a", "b", "c", nil), services.CategoryFormat},
		{"plain", errors.New("boom"), services.CategoryInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.Classify(tt.err); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
