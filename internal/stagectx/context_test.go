package stagectx

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := WithRunID(WithStage(context.Background(), "vendor"), "run-1")
	if stage, ok := StageFromContext(ctx); !ok || stage != "vendor" {
		t.Fatalf("unexpected stage %q (ok=%v)", stage, ok)
	}
	if id, ok := RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id %q (ok=%v)", id, ok)
	}
}

func TestEmptyValuesAreIgnored(t *testing.T) {
	base := context.Background()
	if WithStage(base, "") != base {
		t.Fatal("expected empty stage to leave context untouched")
	}
	if _, ok := RunIDFromContext(WithRunID(base, "")); ok {
		t.Fatal("expected no run id")
	}
}
