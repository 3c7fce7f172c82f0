package tracing

import (
	"errors"

	"github.com/smallbiznis/crm/internal/apperror"
	"go.opentelemetry.io/otel/attribute"
)

// SafeAttributes drops empty string attributes.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if !attr.Valid() {
			continue
		}
		if attr.Value.Type() == attribute.STRING && attr.Value.AsString() == "" {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError reduces err to its kind and code so request input such as
// emails never lands in span events. Unclassified errors keep their text.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := apperror.As(err); ok {
		return errors.New(string(appErr.Kind) + ": " + appErr.Code)
	}
	return err
}
