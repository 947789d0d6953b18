package service

import "context"

type ctxKey int

const (
	actorKey ctxKey = iota
	requestIDKey
)

// ConAuditoria attaches the acting user and request id to ctx so lifecycle
// events can carry them.
func ConAuditoria(ctx context.Context, actor, requestID string) context.Context {
	ctx = context.WithValue(ctx, actorKey, actor)
	return context.WithValue(ctx, requestIDKey, requestID)
}

func actorFromContext(ctx context.Context) string {
	v, _ := ctx.Value(actorKey).(string)
	return v
}

func requestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}
