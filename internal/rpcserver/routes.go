// Package rpcserver is the JSON-RPC/HTTP surface of SPEC_FULL.md §6.5,
// grounded on the teacher's internal/api/routes.go: one APIHandler
// struct closing over the node's dependencies, a public/protected route
// split, and CORS handled by hand rather than a middleware package —
// all reused verbatim in shape, retargeted from forensics endpoints to
// the pixel-protocol surface the spec names.
package rpcserver

import (
	"encoding/hex"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gin-gonic/gin"

	"github.com/rawblock/yuvd/internal/bitcoinrpc"
	"github.com/rawblock/yuvd/internal/bus"
	"github.com/rawblock/yuvd/internal/checker"
	"github.com/rawblock/yuvd/internal/store"
	"github.com/rawblock/yuvd/internal/validator"
	"github.com/rawblock/yuvd/pkg/yuv"
	"github.com/rawblock/yuvd/pkg/yuv/wire"
)

// maxItemsPerRequest caps the number of txids/outpoints any one request
// may carry, the same runaway-resource-exhaustion guard as the
// teacher's maxScanBlocks.
const maxItemsPerRequest = 5000

// Handler closes over everything the routes need.
type Handler struct {
	store store.Store
	bus   *bus.Bus
	rpc   bitcoinrpc.RPC
	net   *chaincfg.Params
}

// SetupRouter builds the gin.Engine, grounded on the teacher's
// SetupRouter: hand-rolled CORS, a public group and a bearer-token+
// rate-limited protected group.
func SetupRouter(st store.Store, b *bus.Bus, rpc bitcoinrpc.RPC, net *chaincfg.Params) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("YUVD_ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	h := &Handler{store: st, bus: b, rpc: rpc, net: net}

	pub := r.Group("/v1")
	{
		pub.GET("/tx/:txid", h.handleGetTx)
		pub.GET("/txs", h.handleListTxs)
		pub.GET("/frozen/:txid/:vout", h.handleFrozen)
		pub.GET("/chroma/:chroma", h.handleChromaInfo)
	}

	protected := r.Group("/v1")
	protected.Use(AuthMiddleware())
	protected.Use(NewRateLimiter(30, 10).Middleware())
	{
		protected.POST("/providelistyuvproofs", h.handleProvideListProofs)
		protected.POST("/txs", h.handleSubmitTxs)
		protected.POST("/sendrawyuvtransaction", h.handleSendRaw)
		protected.POST("/emulate", h.handleEmulate)
	}

	return r
}

func (h *Handler) handleGetTx(c *gin.Context) {
	hash, err := chainhash.NewHashFromStr(c.Param("txid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid txid"})
		return
	}
	tx, ok, err := h.store.YuvTx(c.Request.Context(), [32]byte(*hash))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tx not attached"})
		return
	}
	c.JSON(http.StatusOK, txResponse(tx))
}

func (h *Handler) handleListTxs(c *gin.Context) {
	page, _ := strconv.ParseUint(c.DefaultQuery("page", "0"), 10, 64)
	txids, err := h.store.Page(c.Request.Context(), page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(txids))
	for _, txid := range txids {
		tx, ok, err := h.store.YuvTx(c.Request.Context(), txid)
		if err != nil || !ok {
			continue
		}
		out = append(out, txResponse(tx))
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "txs": out})
}

func (h *Handler) handleFrozen(c *gin.Context) {
	hash, err := chainhash.NewHashFromStr(c.Param("txid"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid txid"})
		return
	}
	vout, err := strconv.ParseUint(c.Param("vout"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vout"})
		return
	}
	outpoint := yuv.Outpoint{Txid: *hash, Vout: uint32(vout)}

	// Recompute before reading: a reorg may have invalidated a freeze
	// toggle's issuing tx since it was last touched by a Transfer.
	if err := checker.RecheckFreezeParity(c.Request.Context(), h.store, outpoint); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entry, ok, err := h.store.Frozen(c.Request.Context(), outpoint)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	frozen := ok && entry.Frozen()
	c.JSON(http.StatusOK, gin.H{"frozen": frozen})
}

func (h *Handler) handleChromaInfo(c *gin.Context) {
	chroma, err := yuv.ChromaFromBytes(mustHex(c.Param("chroma")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chroma"})
		return
	}
	info, ok, err := h.store.ChromaInfo(c.Request.Context(), chroma)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown chroma"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chroma":      chroma.String(),
		"totalSupply": info.TotalSupply.Uint64(),
		"maxSupply":   info.MaxSupply().Uint64(),
		"isFreezable": info.IsFreezable(),
	})
}

// handleProvideListProofs looks up a batch of outpoints and, for each
// one whose attached tx has an output proof at that vout, returns the
// txid, the vout and the proof's chroma; the rest of the proof is not
// returned, and unknown or proof-less outpoints are skipped.
func (h *Handler) handleProvideListProofs(c *gin.Context) {
	var req struct {
		Outpoints []struct {
			Txid string `json:"txid" binding:"required"`
			Vout uint32 `json:"vout"`
		} `json:"outpoints" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Outpoints) > maxItemsPerRequest {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many outpoints", "max": maxItemsPerRequest})
		return
	}

	out := make([]gin.H, 0, len(req.Outpoints))
	for _, o := range req.Outpoints {
		hash, err := chainhash.NewHashFromStr(o.Txid)
		if err != nil {
			continue
		}
		tx, ok, err := h.store.YuvTx(c.Request.Context(), [32]byte(*hash))
		if err != nil || !ok {
			continue
		}
		proof, ok := outputProof(tx, o.Vout)
		if !ok {
			continue
		}
		out = append(out, gin.H{"txid": o.Txid, "vout": o.Vout, "chroma": proof.Pixel.Chroma.String()})
	}
	c.JSON(http.StatusOK, gin.H{"proofs": out})
}

// handleSubmitTxs accepts consensus-encoded yuv transactions and feeds
// them to the checker pool exactly as a gossip peer's YuvTxs message
// would.
func (h *Handler) handleSubmitTxs(c *gin.Context) {
	var req struct {
		Raw [][]byte `json:"raw" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Raw) > maxItemsPerRequest {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many txs", "max": maxItemsPerRequest})
		return
	}

	txs := make([]*yuv.Tx, 0, len(req.Raw))
	for _, raw := range req.Raw {
		tx, err := wire.DecodeTxBytes(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed tx: " + err.Error()})
			return
		}
		txs = append(txs, tx)
	}

	bus.Send(h.bus, bus.NewTxs{Txs: txs})
	c.JSON(http.StatusAccepted, gin.H{"accepted": len(txs)})
}

// handleSendRaw decodes yuv_tx, submits its Bitcoin transaction to the
// network via bitcoind and, once bitcoind accepts it, queues the yuv tx
// for checking straight away. raw_tx must be present but is not used.
func (h *Handler) handleSendRaw(c *gin.Context) {
	var req struct {
		RawTx         []byte  `json:"raw_tx" binding:"required"`
		YuvTx         []byte  `json:"yuv_tx" binding:"required"`
		MaxBurnAmount float64 `json:"max_burn_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := wire.DecodeTxBytes(req.YuvTx)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed yuv tx: " + err.Error()})
		return
	}

	txid, err := h.rpc.SendRawTransaction(tx.Bitcoin, req.MaxBurnAmount)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	bus.Send(h.bus, bus.NewTxs{Txs: []*yuv.Tx{tx}})
	c.JSON(http.StatusAccepted, gin.H{"txid": txid.String()})
}

// handleEmulate runs the pure isolated validator only, without
// persisting or broadcasting anything — a dry-run check a wallet can
// use before it commits to building the real transaction.
func (h *Handler) handleEmulate(c *gin.Context) {
	var req struct {
		Raw []byte `json:"raw" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tx, err := wire.DecodeTxBytes(req.Raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed tx: " + err.Error()})
		return
	}

	if err := validator.Check(tx, h.net); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "tx": txResponse(tx)})
}

func txResponse(tx *yuv.Tx) gin.H {
	return gin.H{
		"txid": tx.Bitcoin.TxHash().String(),
		"type": tx.Type,
	}
}

func outputProof(tx *yuv.Tx, vout uint32) (yuv.PixelProof, bool) {
	var proofs map[uint32]yuv.PixelProof
	switch tx.Type {
	case yuv.TxTypeIssue:
		proofs = tx.Issue.OutputProofs
	case yuv.TxTypeTransfer:
		proofs = tx.Transfer.OutputProofs
	default:
		return yuv.PixelProof{}, false
	}
	proof, ok := proofs[vout]
	return proof, ok
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}
