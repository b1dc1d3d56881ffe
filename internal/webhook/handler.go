package webhook

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"lotshoppr_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const (
	maxPayloadBytes = 2 << 20

	errInvalidPayload = "invalid payload"
	errPayloadTooBig  = "payload too large"
)

// Handler handles webhook HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleTally processes a Tally form response.
// POST /api/v1/webhook/tally
func (h *Handler) HandleTally(c *gin.Context) {
	raw, ok := readPayload(c)
	if !ok {
		return
	}

	var payload TallyPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	result, err := h.service.ProcessTally(c.Request.Context(), payload, raw)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if result.IsDuplicate {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, result)
}

// HandleInboundEmail processes an inbound dealer email.
// POST /api/v1/webhook/email-inbound
func (h *Handler) HandleInboundEmail(c *gin.Context) {
	raw, ok := readPayload(c)
	if !ok {
		return
	}

	var payload InboundEmailPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidPayload, err.Error())
		return
	}

	result, err := h.service.ProcessInboundEmail(c.Request.Context(), payload, raw)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func readPayload(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpkit.Error(c, http.StatusRequestEntityTooLarge, errPayloadTooBig, nil)
			return nil, false
		}
		httpkit.Error(c, http.StatusBadRequest, errInvalidPayload, nil)
		return nil, false
	}
	return raw, true
}
