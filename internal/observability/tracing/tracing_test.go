package tracing

import (
	"context"
	"testing"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	shutdown, err := Init(context.Background(), nil, "leadintake", "test")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if Tracer() == nil {
		t.Fatal("expected a tracer from the global provider")
	}
}

func TestInsecure(t *testing.T) {
	cases := []struct {
		endpoint, env string
		want          bool
	}{
		{"collector:4318", "", true},
		{"http://collector:4318", "", true},
		{"https://collector:4318", "", false},
		{"https://collector:4318", "true", true},
		{"collector:4318", "false", false},
	}
	for _, c := range cases {
		t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", c.env)
		if got := insecure(c.endpoint); got != c.want {
			t.Errorf("insecure(%q) with env %q = %v, want %v", c.endpoint, c.env, got, c.want)
		}
	}
}
