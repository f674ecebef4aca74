package pxgated

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moonpixels/pxgated/common"
	"github.com/moonpixels/pxgated/indexer"
	"github.com/moonpixels/pxgated/schema"
)

func (s *PxGated) runAPI(port string) {
	r := s.engine
	r.Use(common.CORSMiddleware())
	v1 := r.Group("/")
	{
		v1.GET("/info", s.getInfo)
		v1.GET("/canvas", s.getCanvas)
		v1.GET("/cell/:x/:y", s.getCell)

		v1.GET("/viewport", s.getViewport)
		v1.POST("/viewport/zoom-in", s.zoomIn)
		v1.POST("/viewport/zoom-out", s.zoomOut)
		v1.POST("/viewport/pan", s.pan)
		v1.POST("/viewport/goto", s.goTo)

		v1.GET("/draw", s.getDrawn)
		v1.POST("/draw", s.addDrawn)
		v1.DELETE("/draw/:x/:y", s.removeDrawn)
		v1.DELETE("/draw", s.clearDrawn)

		v1.GET("/mode", s.getMode)
		v1.POST("/mode/:mode", s.setMode)

		v1.GET("/fee", s.getFee)
		v1.GET("/notifications", s.listNotifications)
		v1.DELETE("/notifications/:id", s.dismissNotification)

		v1.GET("/ops", s.getOps)
		v1.GET("/ops/pending", s.getPendingOps)

		v1.GET("/delegation/:x/:y", s.getDelegation)

		v1.GET("/tokens", s.listTokens)
		v1.GET("/users/:address/tokens", s.listUserTokens)
		v1.DELETE("/indexer/cache", s.clearIndexerCache)

		v1.GET("/health", s.getHealth)
		v1.GET("/metrics", gin.WrapH(promhttp.Handler()))

		// mutating ops behind a rate limit
		tx := r.Group("/")
		tx.Use(common.LimiterMiddleware(60, "M", nil))
		{
			tx.POST("/pixel/mint", s.postMint)
			tx.POST("/pixel/update", s.postUpdate)
			tx.POST("/pixel/batch-mint", s.postBatchMint)
			tx.POST("/pixel/batch-update", s.postBatchUpdate)
			tx.POST("/pixel/draw/mint", s.postMintDrawn)
			tx.POST("/pixel/draw/update", s.postUpdateDrawn)
			tx.POST("/compose", s.postCompose)
			tx.POST("/decompose", s.postDecompose)
			tx.POST("/delegate", s.postDelegate)
			tx.POST("/delegate/batch", s.postBatchDelegate)
			tx.POST("/revoke", s.postRevoke)
			tx.POST("/revoke/batch", s.postBatchRevoke)
		}
	}

	if err := r.Run(port); err != nil {
		panic(err)
	}
}

var clientErrs = []error{
	ErrInvalidCoordinate, ErrOutOfRange, ErrInvalidColor, ErrInvalidAddress,
	ErrEmptySelection, ErrNotMinted, ErrAlreadyMinted, ErrCellPending,
	ErrNotOwner, ErrOpExist, ErrNoSigner, ErrNotComposable, ErrNotFound, ErrNotExist,
}

// apiError maps validation sentinels to 400 and everything else to 500.
func apiError(c *gin.Context, err error) {
	for _, sentinel := range clientErrs {
		if errors.Is(err, sentinel) {
			errorResponse(c, err.Error())
			return
		}
	}
	internalErrorResponse(c, err.Error())
}

func errorResponse(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, schema.RespErr{
		Err: err,
	})
}

func internalErrorResponse(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, schema.RespErr{
		Err: err,
	})
}

func pathCoords(c *gin.Context) (int, int, error) {
	x, err := strconv.Atoi(c.Param("x"))
	if err != nil {
		return 0, 0, ErrInvalidCoordinate
	}
	y, err := strconv.Atoi(c.Param("y"))
	if err != nil {
		return 0, 0, ErrInvalidCoordinate
	}
	return x, y, nil
}

func (s *PxGated) getInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"canvasWidth":  schema.CanvasWidth,
		"canvasHeight": schema.CanvasHeight,
		"totalMinted":  s.canvas.TotalMinted(),
		"loadedChunks": s.loader.LoadedCount(),
		"pendingOps":   s.tracker.PendingCount(),
		"mode":         s.Mode(),
		"sender":       s.caller.SenderAddress(),
	})
}

func (s *PxGated) getCanvas(c *gin.Context) {
	vp := s.CurrentViewport()
	c.JSON(http.StatusOK, gin.H{
		"viewport": schema.ViewportResp{X: vp.X, Y: vp.Y, Size: vp.Size},
		"cells":    s.canvas.CellsInView(vp),
	})
}

func (s *PxGated) getCell(c *gin.Context) {
	x, y, err := pathCoords(c)
	if err != nil {
		apiError(c, err)
		return
	}
	if _, err := ToID(x, y); err != nil {
		apiError(c, err)
		return
	}
	owner, _ := s.canvas.OwnerOf(x, y)
	c.JSON(http.StatusOK, gin.H{
		"x":       x,
		"y":       y,
		"color":   s.canvas.ColorOf(x, y),
		"owner":   owner,
		"minted":  s.canvas.IsMinted(x, y),
		"pending": s.canvas.IsPending(x, y),
	})
}

func (s *PxGated) getViewport(c *gin.Context) {
	vp := s.CurrentViewport()
	c.JSON(http.StatusOK, schema.ViewportResp{X: vp.X, Y: vp.Y, Size: vp.Size})
}

type zoomReq struct {
	AnchorX *float64 `json:"anchorX"`
	AnchorY *float64 `json:"anchorY"`
}

func (z zoomReq) anchors() (float64, float64) {
	// absent anchor means zoom on center
	ax, ay := -1.0, -1.0
	if z.AnchorX != nil {
		ax = *z.AnchorX
	}
	if z.AnchorY != nil {
		ay = *z.AnchorY
	}
	return ax, ay
}

func (s *PxGated) zoomIn(c *gin.Context) {
	req := zoomReq{}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		errorResponse(c, err.Error())
		return
	}
	ax, ay := req.anchors()
	vp := s.ZoomIn(c.Request.Context(), ax, ay)
	c.JSON(http.StatusOK, schema.ViewportResp{X: vp.X, Y: vp.Y, Size: vp.Size})
}

func (s *PxGated) zoomOut(c *gin.Context) {
	req := zoomReq{}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		errorResponse(c, err.Error())
		return
	}
	ax, ay := req.anchors()
	vp := s.ZoomOut(c.Request.Context(), ax, ay)
	c.JSON(http.StatusOK, schema.ViewportResp{X: vp.X, Y: vp.Y, Size: vp.Size})
}

func (s *PxGated) pan(c *gin.Context) {
	req := struct {
		DeltaX int `json:"deltaX"`
		DeltaY int `json:"deltaY"`
	}{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	vp := s.Pan(c.Request.Context(), req.DeltaX, req.DeltaY)
	c.JSON(http.StatusOK, schema.ViewportResp{X: vp.X, Y: vp.Y, Size: vp.Size})
}

func (s *PxGated) goTo(c *gin.Context) {
	req := schema.CellReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	vp, err := s.GoTo(c.Request.Context(), req.X, req.Y)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.ViewportResp{X: vp.X, Y: vp.Y, Size: vp.Size})
}

func (s *PxGated) getDrawn(c *gin.Context) {
	c.JSON(http.StatusOK, s.canvas.Drawn())
}

func (s *PxGated) addDrawn(c *gin.Context) {
	req := schema.CellReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	if _, err := ToID(req.X, req.Y); err != nil {
		apiError(c, err)
		return
	}
	if !ValidColor(req.Color) {
		apiError(c, ErrInvalidColor)
		return
	}
	if err := s.canvas.AddDrawn(req.X, req.Y, req.Color); err != nil {
		apiError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *PxGated) removeDrawn(c *gin.Context) {
	x, y, err := pathCoords(c)
	if err != nil {
		apiError(c, err)
		return
	}
	s.canvas.RemoveDrawn(x, y)
	c.Status(http.StatusOK)
}

func (s *PxGated) clearDrawn(c *gin.Context) {
	s.canvas.ClearDrawn()
	c.Status(http.StatusOK)
}

func (s *PxGated) getMode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mode": s.Mode()})
}

func (s *PxGated) setMode(c *gin.Context) {
	mode := c.Param("mode")
	switch mode {
	case ModePaint, ModeDelegate, ModeRevoke:
		s.SetMode(mode)
		c.JSON(http.StatusOK, gin.H{"mode": mode})
	default:
		errorResponse(c, "unknown mode "+mode)
	}
}

func (s *PxGated) getFee(c *gin.Context) {
	fee, exempt := s.BaseFee()
	c.JSON(http.StatusOK, gin.H{
		"feeWei": fee.String(),
		"exempt": exempt,
	})
}

func (s *PxGated) listNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, s.notify.List())
}

func (s *PxGated) dismissNotification(c *gin.Context) {
	if !s.notify.Remove(c.Param("id")) {
		apiError(c, ErrNotFound)
		return
	}
	c.Status(http.StatusOK)
}

func (s *PxGated) getOps(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	sender := c.Query("sender")

	var (
		recs []schema.OpRecord
		err  error
	)
	if sender != "" {
		recs, err = s.wdb.GetOpsBySender(sender, limit)
	} else {
		recs, err = s.wdb.GetOps(limit)
	}
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, recs)
}

func (s *PxGated) getPendingOps(c *gin.Context) {
	c.JSON(http.StatusOK, s.tracker.PendingOps())
}

func (s *PxGated) getDelegation(c *gin.Context) {
	x, y, err := pathCoords(c)
	if err != nil {
		apiError(c, err)
		return
	}
	count, addrs, err := s.DelegationInfo(c.Request.Context(), x, y)
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.DelegationResp{X: x, Y: y, Count: count, Addresses: addrs})
}

func (s *PxGated) listTokens(c *gin.Context) {
	if s.idx == nil {
		errorResponse(c, "indexer not configured")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	tokens, err := s.idx.CollectionTokens(c.DefaultQuery("filter", indexer.FilterPixels), limit)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (s *PxGated) listUserTokens(c *gin.Context) {
	if s.idx == nil {
		errorResponse(c, "indexer not configured")
		return
	}
	addr := c.Param("address")
	if !ValidAddress(addr) {
		apiError(c, ErrInvalidAddress)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	tokens, err := s.idx.UserTokens(addr, c.DefaultQuery("filter", indexer.FilterPixels), limit)
	if err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (s *PxGated) clearIndexerCache(c *gin.Context) {
	if s.idx == nil {
		errorResponse(c, "indexer not configured")
		return
	}
	if err := s.idx.ClearCache(c.Query("key")); err != nil {
		internalErrorResponse(c, err.Error())
		return
	}
	c.Status(http.StatusOK)
}

func (s *PxGated) getHealth(c *gin.Context) {
	if s.cfg.HealthUrl != "" {
		if err := CheckOnce(s.cfg.HealthUrl); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "backend": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func txResponse(c *gin.Context, txHash string, err error) {
	if err != nil {
		apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.RespTx{TxHash: txHash})
}

func (s *PxGated) postMint(c *gin.Context) {
	req := schema.CellReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	txHash, err := s.MintPixel(c.Request.Context(), req.X, req.Y, req.Color)
	txResponse(c, txHash, err)
}

func (s *PxGated) postUpdate(c *gin.Context) {
	req := schema.CellReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	txHash, err := s.UpdatePixel(c.Request.Context(), req.X, req.Y, req.Color)
	txResponse(c, txHash, err)
}

func reqCells(req schema.BatchReq) []schema.Cell {
	cells := make([]schema.Cell, len(req.Cells))
	for i, r := range req.Cells {
		cells[i] = schema.Cell{X: r.X, Y: r.Y, Color: r.Color}
	}
	return cells
}

func (s *PxGated) postBatchMint(c *gin.Context) {
	req := schema.BatchReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	txHash, err := s.BatchMintPixels(c.Request.Context(), reqCells(req))
	txResponse(c, txHash, err)
}

func (s *PxGated) postBatchUpdate(c *gin.Context) {
	req := schema.BatchReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	txHash, err := s.BatchUpdatePixels(c.Request.Context(), reqCells(req))
	txResponse(c, txHash, err)
}

func (s *PxGated) postMintDrawn(c *gin.Context) {
	txHash, err := s.MintDrawn(c.Request.Context())
	txResponse(c, txHash, err)
}

func (s *PxGated) postUpdateDrawn(c *gin.Context) {
	txHash, err := s.UpdateDrawn(c.Request.Context())
	txResponse(c, txHash, err)
}

func (s *PxGated) postCompose(c *gin.Context) {
	req := schema.ComposeReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	txHash, err := s.ComposeArea(c.Request.Context(), req.X0, req.Y0, req.X1, req.Y1)
	txResponse(c, txHash, err)
}

func (s *PxGated) postDecompose(c *gin.Context) {
	req := struct {
		CompositeId uint64 `json:"compositeId"`
	}{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	txHash, err := s.DecomposeComposite(c.Request.Context(), req.CompositeId)
	txResponse(c, txHash, err)
}

func (s *PxGated) postDelegate(c *gin.Context) {
	req := schema.DelegateReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	txHash, err := s.DelegatePixel(c.Request.Context(), req.X, req.Y, req.Operator)
	txResponse(c, txHash, err)
}

func delegateCells(req schema.DelegateReq) []schema.Cell {
	cells := make([]schema.Cell, len(req.Cells))
	for i, r := range req.Cells {
		cells[i] = schema.Cell{X: r.X, Y: r.Y}
	}
	return cells
}

func (s *PxGated) postBatchDelegate(c *gin.Context) {
	req := schema.DelegateReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	txHash, err := s.BatchDelegate(c.Request.Context(), delegateCells(req), req.Operators)
	txResponse(c, txHash, err)
}

func (s *PxGated) postRevoke(c *gin.Context) {
	req := schema.DelegateReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	txHash, err := s.RevokeDelegation(c.Request.Context(), req.X, req.Y, req.Operator)
	txResponse(c, txHash, err)
}

func (s *PxGated) postBatchRevoke(c *gin.Context) {
	req := schema.DelegateReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err.Error())
		return
	}
	txHash, err := s.BatchRevoke(c.Request.Context(), delegateCells(req), req.Operators)
	txResponse(c, txHash, err)
}
