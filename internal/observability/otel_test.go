package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kasunw/whatsapp-relay/internal/config"
)

func preserveOTelGlobals(t *testing.T) {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
	})
}

func TestSetupOTel_DisabledIsNoOp(t *testing.T) {
	preserveOTelGlobals(t)

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{
		Enabled:     false,
		Endpoint:    "ignored:4317",
		ServiceName: "whatsapp-relay",
		SampleRatio: 1.0,
	}, "v0.0.0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown must not be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown: %v", err)
	}
}

func TestSetupOTel_EnabledInstallsProvider(t *testing.T) {
	preserveOTelGlobals(t)

	shutdown, err := SetupOTel(context.Background(), config.OTELConfig{
		Enabled:     true,
		Insecure:    true,
		Endpoint:    "localhost:4317",
		ServiceName: "whatsapp-relay",
		SampleRatio: 1.0,
	}, "v1.0.0")
	if err != nil {
		t.Fatalf("SetupOTel: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatal("expected sdktrace.TracerProvider to be installed")
	}
	if otel.GetTextMapPropagator() == nil {
		t.Fatal("propagator not installed")
	}
}

func TestSetupOTel_ExporterFailurePropagates(t *testing.T) {
	preserveOTelGlobals(t)

	origExporter := newOTLPExporterFn
	t.Cleanup(func() { newOTLPExporterFn = origExporter })

	boom := errors.New("exporter refused")
	newOTLPExporterFn = func(context.Context, otlptrace.Client) (*otlptrace.Exporter, error) {
		return nil, boom
	}

	_, err := SetupOTel(context.Background(), config.OTELConfig{
		Enabled:     true,
		Insecure:    true,
		Endpoint:    "localhost:4317",
		ServiceName: "whatsapp-relay",
		SampleRatio: 1.0,
	}, "v1.0.0")
	if !errors.Is(err, boom) {
		t.Fatalf("expected exporter error, got %v", err)
	}
}

func TestSetupOTel_ResourceFailurePropagates(t *testing.T) {
	preserveOTelGlobals(t)

	origResource := newServiceResourceFn
	t.Cleanup(func() { newServiceResourceFn = origResource })

	boom := errors.New("resource build failed")
	newServiceResourceFn = func(context.Context, string, string) (*resource.Resource, error) {
		return nil, boom
	}

	_, err := SetupOTel(context.Background(), config.OTELConfig{
		Enabled:     true,
		Insecure:    true,
		Endpoint:    "localhost:4317",
		ServiceName: "whatsapp-relay",
		SampleRatio: 1.0,
	}, "v1.0.0")
	if !errors.Is(err, boom) {
		t.Fatalf("expected resource error, got %v", err)
	}
}
