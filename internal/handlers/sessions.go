package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"mindtv/internal/classify"
	"mindtv/internal/export"
	"mindtv/internal/service"

	"github.com/gin-gonic/gin"
)

const maxSessionLimit = 1000

// sessionError maps session lookups to HTTP codes.
func (h *Handler) sessionError(c *gin.Context, logKey string, err error) {
	id := c.Param("id")
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, service.ErrSessionNotFinished),
		errors.Is(err, service.ErrNoSamples):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoModel):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, classify.ErrClassifier):
		h.logAndJSONError(c, http.StatusUnprocessableEntity, err.Error(), logKey, err, "session_id", id)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load session", logKey, err, "session_id", id)
	}
}

// @Summary      List sessions
// @Tags         sessions
// @Produce      json
// @Param        limit  query     int  false  "Maximum sessions, newest first"  default(100)
// @Success      200    {object}  map[string]interface{}  "count, sessions"
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Router       /api/v1/sessions [get]
// @Security     BearerAuth
func (h *Handler) listSessions(c *gin.Context) {
	limit := 0
	if s := c.Query("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 || v > maxSessionLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = v
	}
	sessions, err := h.services.Sessions.List(c.Request.Context(), limit)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to list sessions", "sessions_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(sessions), "sessions": sessions})
}

// @Summary      Get a session
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  models.Session
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/sessions/{id} [get]
// @Security     BearerAuth
func (h *Handler) getSession(c *gin.Context) {
	sess, err := h.services.Sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.sessionError(c, "session_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// @Summary      Samples of a session
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  map[string]interface{}  "count, samples"
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/sessions/{id}/samples [get]
// @Security     BearerAuth
func (h *Handler) getSamples(c *gin.Context) {
	samples, err := h.services.Sessions.Samples(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.sessionError(c, "session_samples_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(samples), "samples": samples})
}

// @Summary      Export a session as CSV
// @Tags         sessions
// @Produce      text/csv
// @Param        id      path   string  true   "Session id"
// @Param        layout  query  string  false  "Header layout"  Enums(device,legacy)
// @Success      200
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/sessions/{id}/export [get]
// @Security     BearerAuth
func (h *Handler) exportSession(c *gin.Context) {
	layout, err := export.ParseLayout(c.Query("layout"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	ctx := c.Request.Context()

	// resolve the session first so a missing id still yields a JSON 404
	if _, err := h.services.Sessions.Get(ctx, id); err != nil {
		h.sessionError(c, "session_export_failed", err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+id+`.csv"`)
	c.Status(http.StatusOK)
	if err := h.services.Sessions.Export(ctx, id, layout, c.Writer); err != nil {
		h.log.Errorw("session_export_failed", "session_id", id, "err", err)
	}
}

// @Summary      Classify a session
// @Description  Runs the loaded model over every stored sample and stores the majority label.
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  classify.Result
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/sessions/{id}/classify [post]
// @Security     BearerAuth
func (h *Handler) classifySession(c *gin.Context) {
	res, err := h.services.Classification.Classify(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.sessionError(c, "session_classify_failed", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
