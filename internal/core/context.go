package core

import "context"

type contextKey string

const ctxKeyRequestMeta contextKey = "request_meta"

// RequestMeta identifies the client behind a state-changing call. It is
// attached to the service's log lines for datasets and reports.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// ContextWithRequestMeta attaches client metadata to ctx.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, ctxKeyRequestMeta, meta)
}

// RequestMetaFromContext returns the client metadata, or the zero value when
// ctx carries none (CLI and test callers).
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(ctxKeyRequestMeta).(RequestMeta); ok {
		return v
	}
	return RequestMeta{}
}

// auditAttrs returns the non-empty metadata fields as slog key/value pairs.
func auditAttrs(ctx context.Context) []any {
	meta := RequestMetaFromContext(ctx)
	var attrs []any
	if meta.IPAddress != "" {
		attrs = append(attrs, "client_ip", meta.IPAddress)
	}
	if meta.UserAgent != "" {
		attrs = append(attrs, "user_agent", meta.UserAgent)
	}
	return attrs
}
