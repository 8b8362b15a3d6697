package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/margalk/catms/internal/exportlog"
	"github.com/margalk/catms/internal/platform/auth"
	"github.com/margalk/catms/pkg/pagination"
)

var (
	// ErrSourceUnauthorized is returned by row sources when the upstream
	// rejects the caller's credentials.
	ErrSourceUnauthorized = errors.New("upstream rejected credentials")
	// ErrSourceUnavailable is returned by row sources for any other failure.
	ErrSourceUnavailable = errors.New("upstream request failed")
)

// RowFetcher supplies the current rows of a data type.
type RowFetcher interface {
	FetchRows(ctx context.Context, dt DataType) ([]Record, error)
}

// AllowList names the roles allowed to export a data type.
type AllowList interface {
	Allowed(dt DataType) []string
}

// Handler serves the export API.
type Handler struct {
	exporter *Exporter
	fetcher  RowFetcher
	policy   AllowList
	history  exportlog.Recorder
	logger   zerolog.Logger
}

// NewHandler wires the export API. fetcher may be nil, in which case only
// client-supplied rows can be exported.
func NewHandler(exporter *Exporter, fetcher RowFetcher, policy AllowList, history exportlog.Recorder, logger zerolog.Logger) *Handler {
	if history == nil {
		history = exportlog.NewLogRecorder(logger)
	}
	return &Handler{
		exporter: exporter,
		fetcher:  fetcher,
		policy:   policy,
		history:  history,
		logger:   logger,
	}
}

// RegisterRoutes registers the export routes under api.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/exports")
	g.GET("", h.ListTypes)
	g.GET("/history", h.History, auth.RequireRole("admin"))
	g.GET("/:type", h.ExportFetched)
	g.POST("/:type", h.ExportRows)
	g.GET("/:type/summary", h.Summary)
}

// TypeInfo describes one exportable data type for the caller.
type TypeInfo struct {
	Dataset
	MayExport bool `json:"may_export"`
}

// ListTypes lists the registry with the caller's export permission per type.
func (h *Handler) ListTypes(c echo.Context) error {
	ctx := c.Request().Context()
	sets := h.exporter.Registry().Datasets()
	out := make([]TypeInfo, 0, len(sets))
	for _, ds := range sets {
		out = append(out, TypeInfo{Dataset: ds, MayExport: auth.MayExportContext(ctx, h.policy.Allowed(ds.Type))})
	}
	return c.JSON(http.StatusOK, out)
}

// ExportRowsRequest is the body of POST /exports/:type.
type ExportRowsRequest struct {
	Format   string   `json:"format"`
	Filename string   `json:"filename"`
	Title    string   `json:"title"`
	Rows     []Record `json:"rows"`
}

// ExportRows exports rows supplied in the request body.
func (h *Handler) ExportRows(c echo.Context) error {
	dt, err := h.authorize(c)
	if err != nil {
		return err
	}
	var body ExportRowsRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	format, err := ParseFormat(body.Format)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.export(c, Request{DataType: dt, Rows: body.Rows, Filename: body.Filename, Title: body.Title}, format)
}

// ExportFetched reads rows from the configured source and exports them.
func (h *Handler) ExportFetched(c echo.Context) error {
	dt, err := h.authorize(c)
	if err != nil {
		return err
	}
	format, err := ParseFormat(c.QueryParam("format"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rows, err := h.fetch(c, dt)
	if err != nil {
		h.record(c, exportlog.NewEntry(string(dt), string(format), auth.UserIDFromContext(c.Request().Context()), err))
		return err
	}
	return h.export(c, Request{
		DataType: dt,
		Rows:     rows,
		Filename: c.QueryParam("filename"),
		Title:    c.QueryParam("title"),
	}, format)
}

// Summary returns counts and monetary totals for the source's current rows.
func (h *Handler) Summary(c echo.Context) error {
	dt, err := h.authorize(c)
	if err != nil {
		return err
	}
	rows, err := h.fetch(c, dt)
	if err != nil {
		return err
	}
	s, err := Summarize(dt, rows)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, s)
}

// History pages through recorded exports, newest first.
func (h *Handler) History(c echo.Context) error {
	lister, ok := h.history.(exportlog.Lister)
	if !ok {
		return echo.NewHTTPError(http.StatusNotImplemented, "export history is not persisted")
	}
	p := pagination.FromContext(c)
	items, total, err := lister.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("list export history: %v", err))
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset).WithLinks(c.Request().URL.Path))
}

// authorize resolves the :type parameter and applies the export gate.
func (h *Handler) authorize(c echo.Context) (DataType, error) {
	dt := DataType(c.Param("type"))
	if _, err := h.exporter.Registry().Lookup(dt); err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !auth.MayExportContext(c.Request().Context(), h.policy.Allowed(dt)) {
		return "", echo.NewHTTPError(http.StatusForbidden, fmt.Sprintf("not allowed to export %s", dt))
	}
	return dt, nil
}

func (h *Handler) fetch(c echo.Context, dt DataType) ([]Record, error) {
	if h.fetcher == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "no row source configured")
	}
	rows, err := h.fetcher.FetchRows(c.Request().Context(), dt)
	switch {
	case err == nil:
		return rows, nil
	case errors.Is(err, ErrSourceUnauthorized):
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "upstream rejected credentials").SetInternal(err)
	default:
		h.logger.Error().Err(err).Str("data_type", string(dt)).Msg("fetch rows failed")
		return nil, echo.NewHTTPError(http.StatusBadGateway, "could not load rows").SetInternal(err)
	}
}

func (h *Handler) export(c echo.Context, req Request, format Format) error {
	ctx := c.Request().Context()
	f, err := h.exporter.Export(req, format)

	entry := exportlog.NewEntry(string(req.DataType), string(format), auth.UserIDFromContext(ctx), err)
	if f != nil {
		entry.FileName = f.Name
		entry.RowCount = f.RowCount
	}
	h.record(c, entry)

	if err != nil {
		if errors.Is(err, ErrUnknownDataType) || errors.Is(err, ErrUnsupportedFormat) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if errors.Is(err, ErrMissingGlyphs) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		h.logger.Error().Err(err).Str("data_type", string(req.DataType)).Msg("export failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "export failed").SetInternal(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", f.Name))
	c.Response().Header().Set("X-Export-Rows", fmt.Sprint(f.RowCount))
	return c.Blob(http.StatusOK, f.ContentType, f.Data)
}

func (h *Handler) record(c echo.Context, e exportlog.Entry) {
	ctx := c.Request().Context()
	e.Role = strings.Join(auth.RolesFromContext(ctx), ",")
	e.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
	if err := h.history.Record(ctx, e); err != nil {
		h.logger.Warn().Err(err).Str("export_id", e.ID.String()).Msg("record export history")
	}
}
