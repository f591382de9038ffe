package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"Conflux/internal/domain/models"
	apimetrics "Conflux/internal/service/metrics"
	"Conflux/internal/usecase"
	"Conflux/pkg/cache"
	xhttp "Conflux/pkg/http"
	xlogger "Conflux/pkg/logger"
	"Conflux/pkg/util"

	"github.com/labstack/echo/v4"
)

// ConfluenceEchoHandler exposes the ingest and query API over echo.
type ConfluenceEchoHandler struct {
	logger    *xlogger.Logger
	ing       *usecase.Ingestor
	query     *usecase.Query
	respCache cache.Service
	respTTL   time.Duration
}

func NewConfluenceEchoHandler(logger *xlogger.Logger, ing *usecase.Ingestor, query *usecase.Query) *ConfluenceEchoHandler {
	apimetrics.Register()
	return &ConfluenceEchoHandler{logger: logger, ing: ing, query: query}
}

// SetResponseCache enables short-TTL caching of query responses.
func (h *ConfluenceEchoHandler) SetResponseCache(c cache.Service, ttl time.Duration) {
	h.respCache = c
	h.respTTL = ttl
}

func (h *ConfluenceEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/symbols", h.ListSymbols)
	g.GET("/symbols/:symbol", h.GetSymbol)
	g.POST("/ingest", h.Ingest)
}

func (h *ConfluenceEchoHandler) ListSymbols(c echo.Context) error {
	start := time.Now()
	ctx := c.Request().Context()

	if h.respCache != nil {
		var rows []models.SymbolSummary
		if h.cacheGet(ctx, "resp:symbols", &rows) {
			return xhttp.ListResponse(c, rows, int64(len(rows)))
		}
	}

	rows := h.query.ListSymbols(ctx, time.Now())
	h.cachePut(ctx, "resp:symbols", rows)
	apimetrics.APILatency.WithLabelValues("list_symbols").Observe(time.Since(start).Seconds())
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ConfluenceEchoHandler) GetSymbol(c echo.Context) error {
	start := time.Now()
	ctx := c.Request().Context()
	symbol := c.Param("symbol")
	key := "resp:symbol:" + symbol

	if h.respCache != nil {
		var detail models.SymbolDetail
		if h.cacheGet(ctx, key, &detail) {
			return xhttp.SuccessResponse(c, &detail)
		}
	}

	detail, err := h.query.GetSymbol(ctx, symbol, time.Now())
	if err != nil {
		if errors.Is(err, models.ErrSymbolNotFound) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("symbol %q is not tracked", symbol))
		}
		apimetrics.APIErrors.WithLabelValues("get_symbol").Inc()
		h.logger.Error("get symbol usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	h.cachePut(ctx, key, detail)
	apimetrics.APILatency.WithLabelValues("get_symbol").Observe(time.Since(start).Seconds())
	return xhttp.SuccessResponse(c, detail)
}

func (h *ConfluenceEchoHandler) Ingest(c echo.Context) error {
	start := time.Now()
	ctx := c.Request().Context()
	req := &models.IngestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	observedAt := util.ParseTimeDefault(req.ObservedAt, time.Now())
	outcome, err := h.ing.Ingest(ctx, req.Record(observedAt))
	if err != nil {
		if reason, rejected := models.Rejected(err); rejected {
			return xhttp.BadRequestResponse(c, xhttp.NewAppError("ERR_RECORD_REJECTED", "", string(reason), 400))
		}
		apimetrics.APIErrors.WithLabelValues("ingest").Inc()
		h.logger.Error("ingest usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	// Accepted records change query results; drop cached responses.
	if h.respCache != nil && outcome != models.OutcomeIgnored {
		if err := h.respCache.DeleteByPattern(ctx, "resp:*"); err != nil {
			h.logger.Warn("response cache invalidation error", xlogger.Error(err))
		}
	}

	apimetrics.APILatency.WithLabelValues("ingest").Observe(time.Since(start).Seconds())
	return xhttp.SuccessResponse(c, models.IngestResponse{Outcome: outcome})
}

// cacheGet loads a cached JSON response into dest. Returns false on miss or
// decode failure.
func (h *ConfluenceEchoHandler) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if h.respCache == nil {
		return false
	}
	var raw string
	if err := h.respCache.Get(ctx, key, &raw); err != nil {
		return false
	}
	return json.Unmarshal([]byte(raw), dest) == nil
}

func (h *ConfluenceEchoHandler) cachePut(ctx context.Context, key string, v interface{}) {
	if h.respCache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := h.respCache.Set(ctx, key, string(b), h.respTTL); err != nil {
		h.logger.Debug("response cache set error", xlogger.Error(err))
	}
}
