// Package appcontext carries request-scoped identity through context.Context.
// The acting owner record set here takes precedence over the process-wide
// session on the owner type's provider.
package appcontext

import "context"

type ContextKey string

var (
	RequestIDKey = ContextKey("X-Request-Id")
	MethodKey    = ContextKey("X-Method")
	RouteKey     = ContextKey("X-Route")
	ActorTypeKey = ContextKey("X-Actor-Type")
	ActorIDKey   = ContextKey("X-Actor-Id")
)

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	value, ok := ctx.Value(RequestIDKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, MethodKey, method)
}

func GetMethod(ctx context.Context) string {
	value, ok := ctx.Value(MethodKey).(string)
	if !ok {
		return ""
	}
	return value
}

func SetRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, RouteKey, route)
}

func GetRoute(ctx context.Context) string {
	value, ok := ctx.Value(RouteKey).(string)
	if !ok {
		return ""
	}
	return value
}

// SetActor records the acting owner for this request: the owner record type
// name and its primary key value.
func SetActor(ctx context.Context, actorType, actorID string) context.Context {
	ctx = context.WithValue(ctx, ActorTypeKey, actorType)
	return context.WithValue(ctx, ActorIDKey, actorID)
}

func GetActorType(ctx context.Context) string {
	value, ok := ctx.Value(ActorTypeKey).(string)
	if !ok {
		return ""
	}
	return value
}

func GetActorID(ctx context.Context) string {
	value, ok := ctx.Value(ActorIDKey).(string)
	if !ok {
		return ""
	}
	return value
}
