package handler

import (
	"net/http"

	"kkp/api/middleware"
	"kkp/internal/dto"
	"kkp/internal/service"

	"github.com/labstack/echo/v4"
)

func (h *AuthHandler) UserInfo(c echo.Context) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return h.writeServiceError(c, service.ErrInvalidSession)
	}
	return c.JSON(http.StatusOK, dto.UserInfoFromEntity(user))
}

func (h *AuthHandler) ProvisionMFA(c echo.Context) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return h.writeServiceError(c, service.ErrInvalidSession)
	}
	provisioning, err := h.Service.ProvisionMFA(c.Request().Context(), user)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.MFAProvisionResponse{Key: provisioning.Key, URL: provisioning.URL})
}

func (h *AuthHandler) EnableMFA(c echo.Context) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return h.writeServiceError(c, service.ErrInvalidSession)
	}
	var req dto.MFAEnableRequest
	if err := h.bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	updated, err := h.Service.EnableMFA(c.Request().Context(), user, service.EnableMFAInput{
		Key:      req.Key,
		Code:     req.Code,
		Password: req.Password,
	})
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserInfoFromEntity(updated))
}

func (h *AuthHandler) DisableMFA(c echo.Context) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return h.writeServiceError(c, service.ErrInvalidSession)
	}
	var req dto.MFADisableRequest
	if err := h.bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	updated, err := h.Service.DisableMFA(c.Request().Context(), user, service.DisableMFAInput{
		Code:     req.Code,
		Password: req.Password,
	})
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserInfoFromEntity(updated))
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		return h.writeServiceError(c, service.ErrInvalidSession)
	}
	var req dto.ChangePasswordRequest
	if err := h.bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	updated, err := h.Service.ChangePassword(c.Request().Context(), user, service.ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserInfoFromEntity(updated))
}

func (h *AuthHandler) RegisterDevice(c echo.Context) error {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		return h.writeServiceError(c, service.ErrInvalidSession)
	}
	var req dto.RegisterDeviceRequest
	if err := h.bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	if err := h.Service.RegisterDevice(c.Request().Context(), session, req.FcmToken); err != nil {
		return h.writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) UnregisterDevice(c echo.Context) error {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		return h.writeServiceError(c, service.ErrInvalidSession)
	}
	if err := h.Service.UnregisterDevice(c.Request().Context(), session); err != nil {
		return h.writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) UpdateLocation(c echo.Context) error {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		return h.writeServiceError(c, service.ErrInvalidSession)
	}
	var req dto.LocationRequest
	if err := h.bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	if err := h.Service.UpdateLocation(c.Request().Context(), session, *req.Longitude, *req.Latitude); err != nil {
		return h.writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
