package handler

import (
	"github.com/labstack/echo/v4"

	"installerhub/internal/domain/entity"
	"installerhub/internal/usecase"
	"installerhub/pkg/errors"
	"installerhub/pkg/response"
)

// ActivityHandler receives activity reported by the installer portal
// (payments, serial numbers, registrations) and turns it into admin
// notifications.
type ActivityHandler struct {
	bridge *usecase.NotificationBridge
}

func NewActivityHandler(bridge *usecase.NotificationBridge) *ActivityHandler {
	return &ActivityHandler{bridge: bridge}
}

type paymentRequestRequest struct {
	PaymentID     string  `json:"payment_id" validate:"required"`
	InstallerID   string  `json:"installer_id"`
	InstallerName string  `json:"installer_name"`
	Amount        float64 `json:"amount" validate:"gt=0"`
	Currency      string  `json:"currency" validate:"required,len=3"`
	Reference     string  `json:"reference"`
}

type paymentCommentRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
	Comment   string `json:"comment" validate:"required"`
}

type serialSubmissionRequest struct {
	SubmissionID  string   `json:"submission_id" validate:"required"`
	InstallerID   string   `json:"installer_id"`
	InstallerName string   `json:"installer_name"`
	Serials       []string `json:"serials" validate:"required,min=1,dive,notblank"`
}

type newInstallerRequest struct {
	InstallerID string `json:"installer_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Company     string `json:"company"`
	Email       string `json:"email" validate:"omitempty,email"`
}

// installerIdentity prefers the authenticated installer over whatever the
// body claims. Admins reporting on behalf of an installer must name one.
func installerIdentity(viewer entity.Participant, id, name string) (string, string, error) {
	if viewer.Type == entity.SenderInstaller {
		return viewer.ID, viewer.Name, nil
	}
	if id == "" || name == "" {
		return "", "", errors.BadRequest("installer_id and installer_name are required", nil)
	}
	return id, name, nil
}

func (h *ActivityHandler) PaymentRequest(c echo.Context) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req paymentRequestRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	installerID, installerName, err := installerIdentity(viewer, req.InstallerID, req.InstallerName)
	if err != nil {
		return response.Error(c, err)
	}

	n, err := h.bridge.OnPaymentRequest(c.Request().Context(), usecase.PaymentRequestInput{
		PaymentID:     req.PaymentID,
		InstallerID:   installerID,
		InstallerName: installerName,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Reference:     req.Reference,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, n)
}

// PaymentComment notifies admins about installer comments. Admin comments
// are accepted but produce no notification.
func (h *ActivityHandler) PaymentComment(c echo.Context) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req paymentCommentRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	n, err := h.bridge.OnPaymentComment(c.Request().Context(), usecase.PaymentCommentInput{
		PaymentID:  req.PaymentID,
		AuthorID:   viewer.ID,
		AuthorName: viewer.Name,
		AuthorType: viewer.Type,
		Comment:    req.Comment,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]interface{}{
		"notified":     n != nil,
		"notification": n,
	})
}

func (h *ActivityHandler) SerialSubmission(c echo.Context) error {
	viewer, err := viewerFrom(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req serialSubmissionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	installerID, installerName, err := installerIdentity(viewer, req.InstallerID, req.InstallerName)
	if err != nil {
		return response.Error(c, err)
	}

	n, err := h.bridge.OnSerialSubmission(c.Request().Context(), usecase.SerialSubmissionInput{
		SubmissionID:  req.SubmissionID,
		InstallerID:   installerID,
		InstallerName: installerName,
		Serials:       req.Serials,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, n)
}

func (h *ActivityHandler) NewInstaller(c echo.Context) error {
	var req newInstallerRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	n, err := h.bridge.OnNewInstaller(c.Request().Context(), usecase.NewInstallerInput{
		InstallerID: req.InstallerID,
		Name:        req.Name,
		Company:     req.Company,
		Email:       req.Email,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, n)
}
