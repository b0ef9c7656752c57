package middleware

import (
	"github.com/Ramsey-B/taproot/pkg/appcontext"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// HeaderActorType is the header key for the acting owner's record type
	HeaderActorType = "X-Actor-Type"
	// HeaderActorID is the header key for the acting owner's primary key value
	HeaderActorID = "X-Actor-Id"
)

func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			actorType := req.Header.Get(HeaderActorType)
			actorID := req.Header.Get(HeaderActorID)

			ctx := req.Context()
			ctx = appcontext.SetRequestID(ctx, requestID)
			ctx = appcontext.SetMethod(ctx, req.Method)
			ctx = appcontext.SetRoute(ctx, req.URL.Path)
			ctx = appcontext.SetActor(ctx, actorType, actorID)

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
