package ctxutil

import "context"

// TraceData carries correlation identifiers propagated through the request
// lifecycle and into structured log lines.
type TraceData struct {
	TraceID     string
	RequestID   string
	CorrelationID string
}

// RequestData carries the authenticated session for the current request.
// No middleware in this module sets it; the auth middleware attaches the
// validated role with auth.WithRole instead.
type RequestData struct {
	Subject string
	Role    string
	TokenString string
}

type traceKey struct{}
type requestKey struct{}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	v, _ := ctx.Value(traceKey{}).(*TraceData)
	return v
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	v, _ := ctx.Value(requestKey{}).(*RequestData)
	return v
}
