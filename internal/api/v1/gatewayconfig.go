package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicore/clinicore/internal/api/dto"
	ierr "github.com/clinicore/clinicore/internal/errors"
	"github.com/clinicore/clinicore/internal/logger"
	"github.com/clinicore/clinicore/internal/service"
)

type GatewayConfigHandler struct {
	service service.GatewayConfigService
	log     *logger.Logger
}

func NewGatewayConfigHandler(service service.GatewayConfigService, log *logger.Logger) *GatewayConfigHandler {
	return &GatewayConfigHandler{service: service, log: log}
}

// @Summary Register gateway credentials
// @Tags GatewayConfigs
// @Accept json
// @Produce json
// @Param config body dto.CreateGatewayConfigRequest true "Gateway credentials"
// @Success 201 {object} dto.GatewayConfigResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /gateway-configs [post]
func (h *GatewayConfigHandler) CreateConfig(c *gin.Context) {
	var req dto.CreateGatewayConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateConfig(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to create gateway config", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get a gateway config
// @Tags GatewayConfigs
// @Produce json
// @Param id path string true "Config ID"
// @Success 200 {object} dto.GatewayConfigResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /gateway-configs/{id} [get]
func (h *GatewayConfigHandler) GetConfig(c *gin.Context) {
	resp, err := h.service.GetConfig(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Update a gateway config
// @Description Rotate credentials or the webhook token, or change the default flag
// @Tags GatewayConfigs
// @Accept json
// @Produce json
// @Param id path string true "Config ID"
// @Param config body dto.UpdateGatewayConfigRequest true "Fields to update"
// @Success 200 {object} dto.GatewayConfigResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /gateway-configs/{id} [put]
func (h *GatewayConfigHandler) UpdateConfig(c *gin.Context) {
	var req dto.UpdateGatewayConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateConfig(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.log.Errorw("failed to update gateway config", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List gateway configs
// @Tags GatewayConfigs
// @Produce json
// @Success 200 {object} dto.ListGatewayConfigsResponse
// @Router /gateway-configs [get]
func (h *GatewayConfigHandler) ListConfigs(c *gin.Context) {
	resp, err := h.service.ListConfigs(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
