package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"TradeInfo/internal/domain/models"
	domrepo "TradeInfo/internal/domain/repository"
	"TradeInfo/internal/usecase"
	xhttp "TradeInfo/pkg/http"
	xlogger "TradeInfo/pkg/logger"
)

func init() {
	if err := xhttp.RegisterStringValidation("ticker", domrepo.IsValidTicker); err != nil {
		panic(err)
	}
}

// Refresher triggers a background quote refresh and refreshes market indices on demand.
type Refresher interface {
	Trigger()
	RefreshMarket(ctx context.Context) error
}

// WatchlistEchoHandler exposes the watchlist store over HTTP. Mutations always
// answer with the resulting snapshot.
type WatchlistEchoHandler struct {
	logger  *xlogger.Logger
	store   *usecase.WatchlistStore
	refresh Refresher
	ws      *SnapshotStream
}

func NewWatchlistEchoHandler(logger *xlogger.Logger, store *usecase.WatchlistStore, refresh Refresher, ws *SnapshotStream) *WatchlistEchoHandler {
	return &WatchlistEchoHandler{logger: logger, store: store, refresh: refresh, ws: ws}
}

func (h *WatchlistEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/state", h.State)

	g.PUT("/selection", h.SelectTicker)
	g.PUT("/selection/price", h.SetCurrentPrice)

	g.GET("/categories/active", h.ActiveCategory)
	g.PUT("/categories/active", h.SetActiveCategory)
	g.POST("/categories", h.AddCategory)
	g.PATCH("/categories/:id", h.RenameCategory)
	g.DELETE("/categories/:id", h.DeleteCategory)
	g.POST("/categories/:id/reorder", h.Reorder)

	g.POST("/watchlist", h.AddTicker)
	g.POST("/watchlist/bulk", h.BulkAdd)
	g.DELETE("/watchlist", h.Clear)
	g.DELETE("/watchlist/:code", h.RemoveTicker)
	g.PATCH("/watchlist/:code", h.UpdateItem)

	g.PUT("/market", h.SetMarket)
	g.POST("/refresh", h.Refresh)

	if h.ws != nil {
		e.GET("/ws", h.ws.Serve)
	}
}

func (h *WatchlistEchoHandler) State(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

func (h *WatchlistEchoHandler) ActiveCategory(c echo.Context) error {
	cat, ok := h.store.ActiveCategory()
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("activeCategoryId", "no active category"))
	}
	return xhttp.SuccessResponse(c, cat)
}

func (h *WatchlistEchoHandler) SelectTicker(c echo.Context) error {
	req := &models.SelectTickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.store.SetSelectedTicker(req.Code)
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

func (h *WatchlistEchoHandler) SetCurrentPrice(c echo.Context) error {
	req := &models.CurrentPriceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.store.SetCurrentPrice(req.Price)
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

func (h *WatchlistEchoHandler) SetActiveCategory(c echo.Context) error {
	req := &models.ActiveCategoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.requireCategory(req.ID); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	h.store.SetActiveCategory(req.ID)
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

func (h *WatchlistEchoHandler) AddCategory(c echo.Context) error {
	req := &models.CategoryNameRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	id := h.store.AddCategory(req.Name)
	h.logger.Info("category added", xlogger.String("id", id), xlogger.String("name", req.Name))
	return xhttp.CreatedResponse(c, map[string]interface{}{
		"id":    id,
		"state": h.store.Snapshot(),
	})
}

func (h *WatchlistEchoHandler) RenameCategory(c echo.Context) error {
	id := xhttp.PathParam(c, "id")
	req := &models.CategoryNameRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.requireCategory(id); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	h.store.RenameCategory(id, req.Name)
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

func (h *WatchlistEchoHandler) DeleteCategory(c echo.Context) error {
	id := xhttp.PathParam(c, "id")
	if err := h.requireCategory(id); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	h.store.DeleteCategory(id)
	h.logger.Info("category deleted", xlogger.String("id", id))
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

func (h *WatchlistEchoHandler) Reorder(c echo.Context) error {
	id := xhttp.PathParam(c, "id")
	req := &models.ReorderRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.requireCategory(id); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	h.store.ReorderWatchlist(id, req.From, req.To)
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

func (h *WatchlistEchoHandler) AddTicker(c echo.Context) error {
	req := &models.AddTickerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.store.AddToWatchlist(req.Code)
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

// BulkAdd accepts free text, a code list or both. Text tokens that are not
// valid tickers are dropped; the response lists the codes actually admitted.
func (h *WatchlistEchoHandler) BulkAdd(c echo.Context) error {
	req := &models.BulkAddRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	codes := append(append([]string(nil), req.Codes...), domrepo.ParseTickerList(req.Text)...)
	if len(codes) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("text", "no valid ticker codes"))
	}

	before, _ := h.store.ActiveCategory()
	h.store.AddTickers(codes)
	after, _ := h.store.ActiveCategory()

	added := make([]string, 0, len(after.Items))
	for _, it := range after.Items {
		if !before.HasCode(it.Code) {
			added = append(added, it.Code)
		}
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"added": added,
		"state": h.store.Snapshot(),
	})
}

func (h *WatchlistEchoHandler) RemoveTicker(c echo.Context) error {
	h.store.RemoveFromWatchlist(xhttp.PathParam(c, "code"))
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

func (h *WatchlistEchoHandler) UpdateItem(c echo.Context) error {
	patch := &models.ItemPatch{}
	if verr := xhttp.ReadAndValidateRequest(c, patch); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.store.UpdateWatchlistItem(xhttp.PathParam(c, "code"), *patch)
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

func (h *WatchlistEchoHandler) Clear(c echo.Context) error {
	h.store.ClearWatchlist()
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

func (h *WatchlistEchoHandler) SetMarket(c echo.Context) error {
	mi := &models.MarketIndices{}
	if verr := xhttp.ReadAndValidateRequest(c, mi); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	h.store.UpdateMarketIndices(mi)
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

// Refresh schedules a quote refresh of the active category and refreshes the
// market indices before answering.
func (h *WatchlistEchoHandler) Refresh(c echo.Context) error {
	if h.refresh == nil {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, "refresh disabled")
	}
	h.refresh.Trigger()
	if err := h.refresh.RefreshMarket(c.Request().Context()); err != nil {
		h.logger.Warn("market refresh failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayErrorf("market refresh failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

func (h *WatchlistEchoHandler) requireCategory(id string) error {
	if h.store.Snapshot().CategoryIndex(id) < 0 {
		return xhttp.NotFoundErrorf("id", "category %s not found", id)
	}
	return nil
}

var _ xhttp.Handler = (*WatchlistEchoHandler)(nil)
