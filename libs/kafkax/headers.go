package kafkax

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	HeaderEventID     = "event_id"
	HeaderEventType   = "event_type"
	HeaderContentType = "content-type"

	contentTypeJSON = "application/json"
)

// Headers is a kafka header list usable as an OpenTelemetry carrier.
type Headers []kafka.Header

// MessageHeaders returns the headers every published event carries: its id,
// its type, the JSON content type and the W3C trace context found in ctx.
func MessageHeaders(ctx context.Context, eventID, eventType string) []kafka.Header {
	h := Headers{
		{Key: HeaderEventID, Value: []byte(eventID)},
		{Key: HeaderEventType, Value: []byte(eventType)},
		{Key: HeaderContentType, Value: []byte(contentTypeJSON)},
	}
	otel.GetTextMapPropagator().Inject(ctx, &h)
	return h
}

// Lookup returns the value of the first header named key.
func (h Headers) Lookup(key string) string {
	for _, kv := range h {
		if kv.Key == key {
			return string(kv.Value)
		}
	}
	return ""
}

func (h *Headers) Get(key string) string { return h.Lookup(key) }

func (h *Headers) Keys() []string {
	keys := make([]string, len(*h))
	for i, kv := range *h {
		keys[i] = kv.Key
	}
	return keys
}

// Set replaces an existing header in place.
func (h *Headers) Set(key, value string) {
	for i := range *h {
		if (*h)[i].Key == key {
			(*h)[i].Value = []byte(value)
			return
		}
	}
	*h = append(*h, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*Headers)(nil)

// SplitBrokers parses a comma separated broker list, dropping blanks.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
