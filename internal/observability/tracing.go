package observability

import (
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Nama exporter yang didukung TRACE_EXPORTER.
const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
)

// NewTracerProvider membangun TracerProvider untuk service. Exporter "none"
// tetap membuat span tetapi tidak mengirimkannya ke mana pun; "stdout" menulis
// span dalam format JSON ke w.
func NewTracerProvider(exporter, service string, w io.Writer) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", service))),
	}
	switch exporter {
	case TraceExporterNone, "":
	case TraceExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("observability: stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		return nil, fmt.Errorf("observability: unknown trace exporter %q", exporter)
	}
	return sdktrace.NewTracerProvider(opts...), nil
}
