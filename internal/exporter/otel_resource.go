package exporter

import (
	"context"
	"fmt"

	"github.com/neox5/vitalsync/internal/version"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
)

// createOTELResource builds the resource from configured attributes,
// adding service.version and SDK details when absent.
func createOTELResource(resourceAttrs map[string]string) (*resource.Resource, error) {
	attrs := make([]attribute.KeyValue, 0, len(resourceAttrs)+1)
	if _, ok := resourceAttrs["service.version"]; !ok {
		attrs = append(attrs, attribute.String("service.version", version.String()))
	}
	for k, v := range resourceAttrs {
		attrs = append(attrs, attribute.String(k, v))
	}

	res, err := resource.New(
		context.Background(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	return res, nil
}
