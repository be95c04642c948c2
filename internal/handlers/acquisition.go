package handlers

import (
	"errors"
	"net/http"
	"time"

	"mindtv/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK        = "ok"
	statusStarted   = "started"
	statusCancelled = "cancel_requested"

	errStartAcquisition  = "failed to start acquisition"
	errCancelAcquisition = "failed to cancel acquisition"
	errInvalidBodyPref   = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// StartRequest is the body of POST /api/v1/acquisition/start. Every field is
// optional; omitted values fall back to the configured device and duration.
type StartRequest struct {
	// Serial port name, or MOCK for the synthetic device
	Port string `json:"port,omitempty" example:"/dev/ttyUSB0"`
	// Link speed in baud
	BaudRate int `json:"baud_rate,omitempty" example:"115200"`
	// Collection length in seconds
	DurationSec int `json:"duration_sec,omitempty" example:"120"`
	// Content type being watched
	Content string `json:"content,omitempty" example:"Filme de Ação"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": statusOK}
	if h.services.Classification != nil {
		resp["model_loaded"] = h.services.Ready()
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Start an acquisition
// @Description  Opens the device and collects samples for the requested duration. Only one run may be active.
// @Tags         acquisition
// @Accept       json
// @Produce      json
// @Param        body  body      StartRequest  false  "Run parameters"
// @Success      202   {object}  map[string]interface{}  "status, session"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/acquisition/start [post]
// @Security     BearerAuth
func (h *Handler) startAcquisition(c *gin.Context) {
	var req StartRequest
	if c.Request.ContentLength != 0 {
		if ok := h.bindJSONOrBadRequest(c, &req); !ok {
			return
		}
	}
	if req.DurationSec < 0 || req.BaudRate < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration_sec and baud_rate must not be negative"})
		return
	}

	sess, err := h.services.Acquisition.Start(c.Request.Context(), service.StartParams{
		Port:     req.Port,
		BaudRate: req.BaudRate,
		Duration: time.Duration(req.DurationSec) * time.Second,
		Content:  req.Content,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrTransportUnavailable):
		h.logAndJSONError(c, http.StatusServiceUnavailable, err.Error(), "acquisition_start_failed", err, "port", req.Port)
		return
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errStartAcquisition, "acquisition_start_failed", err)
		return
	}

	h.log.Infow("acquisition_started", "session_id", sess.ID, "operator_id", operatorID(c), "port", sess.Port)
	c.JSON(http.StatusAccepted, gin.H{"status": statusStarted, "session": sess})
}

// @Summary      Cancel the active acquisition
// @Description  Cooperative; samples collected so far are kept. A no-op when idle.
// @Tags         acquisition
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, state"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/acquisition/cancel [post]
// @Security     BearerAuth
func (h *Handler) cancelAcquisition(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Acquisition.Cancel(ctx); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errCancelAcquisition, "acquisition_cancel_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusCancelled, "state": h.services.Acquisition.Status(ctx)})
}

// @Summary      Acquisition status
// @Tags         acquisition
// @Produce      json
// @Success      200  {object}  service.Status
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/acquisition/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Acquisition.Status(c.Request.Context()))
}
