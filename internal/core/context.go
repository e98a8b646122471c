package core

import "context"

type contextKey string

const (
	ctxKeyClientIP  contextKey = "import_client_ip"
	ctxKeyUserAgent contextKey = "import_user_agent"
	ctxKeySource    contextKey = "import_source"
)

// ContextWithClient records who submitted an import so it can be attached
// to logs and import events.
func ContextWithClient(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyClientIP, ip)
	return context.WithValue(ctx, ctxKeyUserAgent, userAgent)
}

// ContextWithSource records where the rows came from ("json", "file",
// "cli").
func ContextWithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, ctxKeySource, source)
}

// ClientIPFromContext returns the submitting client's IP, or "".
func ClientIPFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyClientIP).(string); ok {
		return v
	}
	return ""
}

// UserAgentFromContext returns the submitting client's User-Agent, or "".
func UserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}

// SourceFromContext returns the import source, or "".
func SourceFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySource).(string); ok {
		return v
	}
	return ""
}
