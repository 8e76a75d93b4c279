package events

import "context"

type headersKey struct{}

func WithHeaders(ctx context.Context, headers Headers) context.Context {
	return context.WithValue(ctx, headersKey{}, headers)
}

// HeadersFromContext returns the headers stored by WithHeaders, generating
// fresh trace and correlation ids for whatever is missing.
func HeadersFromContext(ctx context.Context) Headers {
	headers, _ := ctx.Value(headersKey{}).(Headers)
	if headers.TraceID == "" {
		headers.TraceID = NewID()
	}
	if headers.CorrelationID == "" {
		headers.CorrelationID = NewID()
	}
	return headers
}
