package ctxutil

import "context"

type traceDataKey struct{}

// TraceData correlates one HTTP request across logs, response headers and spans.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// LogFields returns the correlation ids and caller carried by ctx as logger
// key/value pairs. Missing values are omitted.
func LogFields(ctx context.Context) []interface{} {
	if ctx == nil {
		return nil
	}
	var kv []interface{}
	if td := GetTraceData(ctx); td != nil {
		if td.TraceID != "" {
			kv = append(kv, "trace_id", td.TraceID)
		}
		if td.RequestID != "" {
			kv = append(kv, "request_id", td.RequestID)
		}
	}
	if rd := GetRequestData(ctx); rd != nil && rd.UserID != 0 {
		kv = append(kv, "user_id", rd.UserID)
	}
	return kv
}
