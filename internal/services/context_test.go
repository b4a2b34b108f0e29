package services_test

import (
	"context"
	"testing"

	"textifier/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-42")
	ctx = services.WithStage(ctx, "transcribe")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "job-42" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "transcribe" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}

func TestCancelFlag(t *testing.T) {
	var nilFlag *services.CancelFlag
	if nilFlag.Canceled() {
		t.Fatal("nil flag must report not canceled")
	}
	nilFlag.Cancel()

	flag := services.NewCancelFlag()
	if flag.Canceled() {
		t.Fatal("fresh flag must not be canceled")
	}
	flag.Cancel()
	flag.Cancel()
	if !flag.Canceled() {
		t.Fatal("expected flag to be canceled")
	}
}
