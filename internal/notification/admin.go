package notification

import (
	"context"
	"errors"
	"net/http"

	"lotshoppr_backend/internal/email"
	apphttp "lotshoppr_backend/internal/http"
	"lotshoppr_backend/platform/httpkit"
	"lotshoppr_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// TestSender sends an operator-triggered test email. Implemented by *Mailer.
type TestSender interface {
	SendTest(ctx context.Context, to []string) ([]string, error)
}

type TestEmailRequest struct {
	To []string `json:"to,omitempty" validate:"omitempty,max=10,dive,email"`
}

type TestEmailResponse struct {
	Sent []string `json:"sent"`
}

// AdminModule exposes operator email tooling under the admin group.
type AdminModule struct {
	sender TestSender
	val    *validator.Validator
}

func NewAdminModule(sender TestSender, val *validator.Validator) *AdminModule {
	return &AdminModule{sender: sender, val: val}
}

func (m *AdminModule) Name() string {
	return "notification"
}

func (m *AdminModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.POST("/email/test", m.handleTestEmail)
}

// handleTestEmail sends a test message through the configured sender.
// POST /api/v1/admin/email/test
func (m *AdminModule) handleTestEmail(c *gin.Context) {
	var req TestEmailRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
			return
		}
	}
	if err := m.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.FieldErrors(err))
		return
	}

	sent, err := m.sender.SendTest(c.Request.Context(), req.To)
	if errors.Is(err, email.ErrNoRecipients) {
		httpkit.Error(c, http.StatusBadRequest, "no recipients: pass \"to\" or configure ADMIN_RECIPIENTS", nil)
		return
	}
	if err != nil {
		httpkit.Error(c, http.StatusBadGateway, "email delivery failed", err.Error())
		return
	}
	httpkit.OK(c, TestEmailResponse{Sent: sent})
}

var _ apphttp.Module = (*AdminModule)(nil)
