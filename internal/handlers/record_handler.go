package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	recordrepo "github.com/Ramsey-B/taproot/internal/repositories/record"
	"github.com/Ramsey-B/taproot/pkg/ownership"
	"github.com/Ramsey-B/taproot/pkg/record"
	"github.com/Ramsey-B/taproot/pkg/schema"
	"github.com/Ramsey-B/taproot/pkg/tracing"
)

var validate = validator.New()

// RecordHandler exposes owned/non-owned finders, owner resolution, and
// gate-guarded writes over the registered record types.
type RecordHandler struct {
	repo   recordrepo.RecordRepository
	engine *ownership.Engine
	types  *schema.Registry
	logger ectologger.Logger
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(repo recordrepo.RecordRepository, engine *ownership.Engine, types *schema.Registry, logger ectologger.Logger) *RecordHandler {
	return &RecordHandler{
		repo:   repo,
		engine: engine,
		types:  types,
		logger: logger,
	}
}

// RegisterRoutes registers record routes
func (h *RecordHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/records/:type", h.ListOwned)
	g.GET("/records/:type/orphans", h.ListNonOwned)
	g.GET("/records/:type/:id/owner", h.GetOwner)
	g.POST("/records/:type/:id/verify", h.Verify)
	g.POST("/records/:type", h.Create)
	g.DELETE("/records/:type/:id", h.Delete)
}

// RecordListResponse is the API response for record listings
type RecordListResponse struct {
	Items []map[string]any `json:"items"`
	Count int              `json:"count"`
}

// OwnerResponse carries the tri-state owner identity: false when ownership
// does not apply, null when the chain resolves to nothing, else the owner's
// primary key values.
type OwnerResponse struct {
	RecordType string             `json:"record_type"`
	OwnerID    ownership.Identity `json:"owner_id"`
}

// VerifyResponse is the API response for an explicit consistency check
type VerifyResponse struct {
	RecordType string `json:"record_type"`
	Consistent bool   `json:"consistent"`
}

// CreateRecordRequest is the request body for creating a record
type CreateRecordRequest struct {
	Fields map[string]any `json:"fields" validate:"required"`
}

// SaveResponse is the API response for a gate-guarded write
type SaveResponse struct {
	Saved  bool           `json:"saved"`
	Fields map[string]any `json:"fields,omitempty"`
}

// ListOwned returns records owned by the explicit owner_id or current actor
func (h *RecordHandler) ListOwned(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "record_handler.ListOwned")
	defer span.End()

	opts := ownership.FilterOptions{}
	if ownerID := c.QueryParam("owner_id"); ownerID != "" {
		opts.OwnerID = []any{ownerID}
	}

	items, err := h.repo.FindOwned(ctx, c.Param("type"), opts)
	if err != nil {
		return h.mapError(err)
	}

	return c.JSON(http.StatusOK, toListResponse(items))
}

// ListNonOwned returns records whose owner chain resolves to nothing
func (h *RecordHandler) ListNonOwned(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "record_handler.ListNonOwned")
	defer span.End()

	items, err := h.repo.FindNonOwned(ctx, c.Param("type"))
	if err != nil {
		return h.mapError(err)
	}

	return c.JSON(http.StatusOK, toListResponse(items))
}

// GetOwner resolves a stored record's owner identity
func (h *RecordHandler) GetOwner(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "record_handler.GetOwner")
	defer span.End()

	rec, err := h.fetch(ctx, c)
	if err != nil {
		return err
	}

	ownerID, err := h.engine.OwnerID(ctx, rec)
	if err != nil {
		return h.mapError(err)
	}

	return c.JSON(http.StatusOK, OwnerResponse{
		RecordType: rec.TypeName(),
		OwnerID:    ownerID,
	})
}

// Verify runs an explicit consistency check on a stored record
func (h *RecordHandler) Verify(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "record_handler.Verify")
	defer span.End()

	rec, err := h.fetch(ctx, c)
	if err != nil {
		return err
	}

	consistent, err := h.engine.IsConsistent(ctx, rec)
	if err != nil {
		return h.mapError(err)
	}

	return c.JSON(http.StatusOK, VerifyResponse{
		RecordType: rec.TypeName(),
		Consistent: consistent,
	})
}

// Create writes a new record through the persistence gate
func (h *RecordHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "record_handler.Create")
	defer span.End()

	typeName := c.Param("type")
	t, ok := h.types.Get(typeName)
	if !ok {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "unknown record type %q", typeName)
	}

	var req CreateRecordRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rec := record.New(t)
	for k, v := range req.Fields {
		rec.Set(k, v)
	}

	saved, err := h.repo.Save(ctx, rec)
	if err != nil {
		return h.mapError(err)
	}
	if !saved {
		return c.JSON(http.StatusConflict, SaveResponse{Saved: false})
	}

	return c.JSON(http.StatusCreated, SaveResponse{
		Saved:  true,
		Fields: rec.Fields(),
	})
}

// Delete removes a record by primary key
func (h *RecordHandler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "record_handler.Delete")
	defer span.End()

	if err := h.repo.Delete(ctx, c.Param("type"), c.Param("id")); err != nil {
		return h.mapError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *RecordHandler) fetch(ctx context.Context, c echo.Context) (*record.Record, error) {
	typeName := c.Param("type")
	rec, err := h.repo.Get(ctx, typeName, c.Param("id"))
	if err != nil {
		return nil, h.mapError(err)
	}
	if rec == nil {
		return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "record %q of type %q not found", c.Param("id"), typeName)
	}
	return rec, nil
}

// mapError translates engine error kinds into HTTP errors. Configuration and
// argument mistakes are the caller's to fix; integrity violations surface as
// unprocessable data.
func (h *RecordHandler) mapError(err error) error {
	if err == nil {
		return nil
	}
	if httperror.IsHTTPError(err) {
		return err
	}

	var cfgErr *ownership.ConfigurationError
	if errors.As(err, &cfgErr) {
		return httperror.NewHTTPError(http.StatusInternalServerError, cfgErr.Error())
	}
	var argErr *ownership.InvalidArgumentError
	if errors.As(err, &argErr) {
		return httperror.NewHTTPError(http.StatusBadRequest, argErr.Error())
	}
	var dataErr *ownership.DataIntegrityError
	if errors.As(err, &dataErr) {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, dataErr.Error())
	}
	return err
}

func toListResponse(items []*record.Record) RecordListResponse {
	out := RecordListResponse{
		Items: make([]map[string]any, 0, len(items)),
		Count: len(items),
	}
	for _, rec := range items {
		out.Items = append(out.Items, rec.Fields())
	}
	return out
}
