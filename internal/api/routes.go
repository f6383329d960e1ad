package api

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rawblock/annomerge/internal/mergeservice"
	"github.com/rawblock/annomerge/internal/orchestrator"
	"github.com/rawblock/annomerge/internal/shadowcompare"
	"github.com/rawblock/annomerge/internal/store"
	"github.com/rawblock/annomerge/pkg/annotation"
)

// APIHandler bundles the dependencies the HTTP surface needs: the
// in-memory run manager driving submitted merges, an optional
// PostgreSQL store for persisted history, and the websocket hub that
// pushes each finished run's status to subscribers.
type APIHandler struct {
	runs  *mergeservice.Manager
	store *store.PostgresStore
	wsHub *Hub
}

// SetupRouter wires the merge engine's HTTP and websocket surface.
// dbStore may be nil, in which case runs are kept in memory only and
// the persisted-errors endpoint answers 503 "database not connected".
func SetupRouter(runs *mergeservice.Manager, dbStore *store.PostgresStore, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var.
	// Production: ALLOWED_ORIGINS=https://example.com,https://www.example.com
	// Development: ALLOWED_ORIGINS=http://localhost:3000 (or leave empty for *)
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
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
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{runs: runs, store: dbStore, wsHub: wsHub}

	// ── Public endpoints (no auth) ─────────────────────────────
	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/merge/:id/stream", wsHub.Subscribe)
	}

	// ── Protected endpoints (require bearer token if MERGE_API_AUTH_TOKEN set) ──
	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware())
	// Every protected route, reads included, shares one per-IP limit;
	// the public routes above are not rate-limited.
	auth.Use(NewRateLimiter(30, 5).Middleware())
	{
		auth.POST("/merge", handler.handleSubmitMerge)
		auth.GET("/merge", handler.handleListRuns)
		auth.GET("/merge/:id", handler.handleGetRun)
		auth.GET("/merge/:id/errors", handler.handleGetRunErrors)
		auth.POST("/shadow/compare", handler.handleShadowCompare)
	}

	return r
}

// handleHealth returns engine status for service discovery.
func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "operational",
		"dbConnected": h.store != nil,
	})
}

// submitMergeRequest is the wire shape for POST /api/v1/merge: each
// source is a self-contained snapshot (category schema + items) rather
// than a path, so the API never has to resolve dataset storage itself.
type submitMergeRequest struct {
	RunID   string                    `json:"RunID"`
	Config  *orchestrator.Config      `json:"Config"`
	Sources []annotation.MemorySource `json:"Sources" binding:"required"`
}

// handleSubmitMerge creates a run and executes it synchronously, then
// broadcasts the run's id and final status once to every websocket
// subscriber; individual stage events are not streamed.
// POST /api/v1/merge
func (h *APIHandler) handleSubmitMerge(c *gin.Context) {
	var req submitMergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if len(req.Sources) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least two sources are required to merge"})
		return
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	cfg := orchestrator.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
	}

	if h.runs.Get(req.RunID) != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "a run with this id already exists"})
		return
	}
	h.runs.Create(req.RunID, cfg)

	sources := make([]annotation.Source, len(req.Sources))
	for i := range req.Sources {
		s := req.Sources[i]
		sources[i] = &s
	}

	h.runs.Run(req.RunID, sources)
	run := h.runs.Get(req.RunID)

	if h.store != nil {
		h.persistRun(c, run)
	}
	if h.wsHub != nil {
		if payload, err := json.Marshal(gin.H{"runId": run.ID, "status": run.Status}); err == nil {
			h.wsHub.Broadcast(payload)
		}
	}

	c.JSON(http.StatusOK, run)
}

// persistRun writes a finished run's status and merged items to the
// database, ignoring write errors rather than failing the request —
// the in-memory result already reached the caller.
func (h *APIHandler) persistRun(c *gin.Context, run *mergeservice.Run) {
	ctx := c.Request.Context()
	cfgJSON, _ := json.Marshal(run.Config)
	_ = h.store.SaveRun(ctx, store.RunRecord{
		ID:         run.ID,
		Status:     string(run.Status),
		ConfigJSON: string(cfgJSON),
		CreatedAt:  run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})

	items := make([]store.MergedItemRecord, len(run.Merged))
	for i, it := range run.Merged {
		items[i] = store.MergedItemRecord{ItemID: it.ID, Subset: it.Subset, Annotations: it.Annotations}
	}
	if len(items) > 0 {
		_ = h.store.SaveMergedItems(ctx, run.ID, items)
	}
}

// handleListRuns returns every run the in-memory manager knows about.
// GET /api/v1/merge
func (h *APIHandler) handleListRuns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": h.runs.List()})
}

// handleGetRun returns one run's status, timeline and merged output.
// GET /api/v1/merge/:id
func (h *APIHandler) handleGetRun(c *gin.Context) {
	run := h.runs.Get(c.Param("id"))
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// handleGetRunErrors returns the persisted, paginated quality/merge
// errors for a run. Requires a configured database.
// GET /api/v1/merge/:id/errors
func (h *APIHandler) handleGetRunErrors(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not connected"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	errs, total, err := h.store.GetRunErrors(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch errors", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": errs, "totalCount": total, "page": page, "limit": limit})
}

// shadowCompareRequest asks for the same per-source annotations of one
// type to be clustered under two parameter sets (e.g. before/after a
// matcher tuning change), so the caller can see whether the change
// materially reshuffles clusters before rolling it out.
type shadowCompareRequest struct {
	Type       annotation.AnnType        `json:"Type" binding:"required"`
	PerSource  [][]annotation.Annotation `json:"PerSource" binding:"required"`
	Baseline   shadowcompare.Params      `json:"Baseline"`
	Candidate  shadowcompare.Params      `json:"Candidate"`
}

// handleShadowCompare clusters PerSource under both parameter sets and
// reports their agreement (ARI/VI), flagging divergence beyond
// shadowcompare.DivergenceThreshold.
// POST /api/v1/shadow/compare
func (h *APIHandler) handleShadowCompare(c *gin.Context) {
	var req shadowCompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	report := shadowcompare.Compare(req.PerSource, req.Type, req.Baseline, req.Candidate, time.Now())
	c.JSON(http.StatusOK, report)
}
