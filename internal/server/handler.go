// Package server exposes the latest report and the regeneration trigger over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"SilverReport/internal/generator"
	"SilverReport/internal/logging"
	"SilverReport/internal/model"
	"SilverReport/internal/store"
)

// Trigger starts a background generation run.
type Trigger interface {
	Start(ctx context.Context) (string, error)
}

// Options configures a Handler.
type Options struct {
	CORSOrigins []string
	Cache       *redis.Client
	CacheTTL    time.Duration
	// BaseContext bounds background runs started by the trigger endpoint.
	// Defaults to context.Background().
	BaseContext context.Context
}

// Handler serves the live report API.
type Handler struct {
	router   *gin.Engine
	store    *store.Store
	trigger  Trigger
	baseCtx  context.Context
	cache    *redis.Client
	cacheTTL time.Duration
	origins  map[string]bool
	log      *logrus.Entry
}

// NewHandler builds the router. The Redis cache is optional and is
// flushed whenever the store publishes a new report.
func NewHandler(st *store.Store, trigger Trigger, opts Options) *Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	h := &Handler{
		router:   router,
		store:    st,
		trigger:  trigger,
		baseCtx:  opts.BaseContext,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		origins:  make(map[string]bool, len(opts.CORSOrigins)),
		log:      logging.For("server"),
	}
	if h.baseCtx == nil {
		h.baseCtx = context.Background()
	}
	for _, o := range opts.CORSOrigins {
		h.origins[o] = true
	}
	router.Use(h.requestLogger(), h.corsMiddleware())
	h.registerRoutes()

	if h.cache != nil {
		st.OnUpdate(func(*model.Report) { h.InvalidateCache(h.baseCtx) })
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/", h.root)
	h.router.POST("/trigger-report", h.triggerReport)

	cached := h.router.Group("/")
	if h.cache != nil {
		cached.Use(h.cacheMiddleware())
	}
	{
		cached.GET("/report/latest", h.latestReport)
		cached.GET("/data/market", h.marketData)
		cached.GET("/report/history", h.history)
	}
	// Status changes while a run is in progress, so it is never cached.
	h.router.GET("/report/status", h.status)
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Silver Report AI Service Running"})
}

func (h *Handler) latestReport(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Latest())
}

func (h *Handler) marketData(c *gin.Context) {
	data := h.store.Latest().MarketData
	if data == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Status())
}

type historyItem struct {
	RunID       string    `json:"run_id"`
	Timestamp   time.Time `json:"timestamp"`
	SilverClose float64   `json:"silver_close"`
	BiasScore   float64   `json:"bias_score"`
	BiasLabel   string    `json:"bias_label"`
}

func (h *Handler) history(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(c, http.StatusBadRequest, errors.New("limit must be between 1 and 100"))
			return
		}
		limit = n
	}
	rows, err := h.store.History(limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]historyItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, historyItem{
			RunID:       r.RunID,
			Timestamp:   r.Timestamp,
			SilverClose: r.SilverClose,
			BiasScore:   r.BiasScore,
			BiasLabel:   r.BiasLabel,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) triggerReport(c *gin.Context) {
	runID, err := h.trigger.Start(h.baseCtx)
	if errors.Is(err, generator.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{"message": "Report generation already running.", "run_id": h.store.Status().RunID})
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Report generation triggered in background.", "run_id": runID})
}

func writeError(c *gin.Context, status int, err error) {
	if err == nil {
		status = http.StatusInternalServerError
		err = errors.New("unknown error")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// corsMiddleware allows the configured origins. "*" allows any origin.
func (h *Handler) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (h.origins[origin] || h.origins["*"]) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
			c.Writer.Header().Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Round(time.Microsecond),
		}).Debug("request")
	}
}
