package v1

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/service"
)

type WebhookHandler struct {
	service service.WebhookService
	log     *logger.Logger
}

func NewWebhookHandler(service service.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, log: log}
}

// @Summary Receive a gateway webhook
// @Description Validate and process a payment gateway callback
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param token path string true "Webhook token"
// @Success 200 {object} dto.WebhookAckResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 401 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /payments/webhook/{token} [post]
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	token := c.Param("token")

	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Unable to read request body").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.HandleWebhook(c.Request.Context(), token, c.Request.Header, rawBody)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List failed webhook events
// @Description Operator queue of webhook events that exhausted their retries
// @Tags Webhooks
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} dto.ListWebhookEventsResponse
// @Router /webhooks/failed [get]
func (h *WebhookHandler) ListFailed(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	resp, err := h.service.ListFailed(c.Request.Context(), limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Retry a failed webhook event
// @Description Rerun processing for one permanently failed webhook event
// @Tags Webhooks
// @Produce json
// @Param id path string true "Webhook event ID"
// @Success 200 {object} dto.WebhookEventResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /webhooks/failed/{id}/retry [post]
func (h *WebhookHandler) RetryFailed(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Webhook event ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.RetryFailed(c.Request.Context(), id)
	if err != nil {
		h.log.Errorw("manual webhook retry failed", "error", err, "event_id", id)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
