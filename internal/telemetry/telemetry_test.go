package telemetry

import (
	"context"
	"testing"
)

func TestSetupNone(t *testing.T) {
	for _, mode := range []string{"", "none"} {
		shutdown, err := Setup(context.Background(), Config{Mode: mode})
		if err != nil {
			t.Fatalf("mode %q: %v", mode, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("mode %q shutdown: %v", mode, err)
		}
	}
}

func TestSetupStdout(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Mode: "stdout"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetupUnknownMode(t *testing.T) {
	if _, err := Setup(context.Background(), Config{Mode: "zipkin"}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
