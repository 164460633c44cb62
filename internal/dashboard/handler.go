package dashboard

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"SilverReport/internal/chart"
	"SilverReport/internal/logging"
	"SilverReport/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/page.html"))

// Handler serves the dashboard.
type Handler struct {
	router *gin.Engine
	page   *Page
	log    *logrus.Entry
}

// NewHandler builds the dashboard router around page.
func NewHandler(page *Page) *Handler {
	router := gin.New()
	router.Use(gin.Recovery())

	h := &Handler{router: router, page: page, log: logging.For("dashboard")}
	router.GET("/", h.index)
	router.GET("/charts/:asset", h.chart)
	router.POST("/refresh", h.refresh)
	router.POST("/viewport", h.viewport)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// index fetches the report on every page load; a failed fetch still
// renders, with the previous report or no data.
func (h *Handler) index(c *gin.Context) {
	_ = h.page.Load(c.Request.Context())

	v := h.page.View()
	v.Notice = h.page.TakeNotice()

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, v); err != nil {
		h.log.WithError(err).Error("render page")
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *Handler) chart(c *gin.Context) {
	asset := model.Asset(c.Param("asset"))
	if !asset.Valid() {
		writeError(c, http.StatusNotFound, errors.New("unknown asset"))
		return
	}
	width := 0
	if v := c.Query("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 4096 {
			writeError(c, http.StatusBadRequest, errors.New("width must be between 1 and 4096"))
			return
		}
		width = n
	}
	format := chart.ParseFormat(c.Query("format"))

	var buf bytes.Buffer
	err := h.page.RenderChart(&buf, asset, width, format)
	switch {
	case errors.Is(err, chart.ErrNoData):
		writeError(c, http.StatusNotFound, err)
		return
	case errors.Is(err, ErrClosed), errors.Is(err, chart.ErrUnmounted):
		writeError(c, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		h.log.WithError(err).WithField("asset", asset).Error("render chart")
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// refresh regenerates and redirects back to the page, which shows the
// outcome as a notice.
func (h *Handler) refresh(c *gin.Context) {
	if _, err := h.page.Regenerate(c.Request.Context()); err != nil {
		h.log.WithError(err).Warn("regenerate report")
		h.page.setNotice("Report regeneration failed. Showing the last available report.")
	}
	c.Redirect(http.StatusSeeOther, "/")
}

type viewportRequest struct {
	Width int `json:"width" form:"width" binding:"required,min=1"`
}

func (h *Handler) viewport(c *gin.Context) {
	var payload viewportRequest
	if err := c.ShouldBind(&payload); err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.page.Viewport(payload.Width); err != nil {
		writeError(c, http.StatusServiceUnavailable, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
