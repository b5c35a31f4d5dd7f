package handler

import (
	"net/http"
	"strings"

	"kkp/api/middleware"
	"kkp/internal/dto"
	"kkp/internal/entity"
	"kkp/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	Service  *service.AuthService
	Validate *validator.Validate
	Logger   logrus.FieldLogger
}

func NewAuthHandler(svc *service.AuthService, validate *validator.Validate, logger logrus.FieldLogger) *AuthHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if validate != nil {
		validate.RegisterTagNameFunc(jsonFieldName)
	}
	return &AuthHandler{
		Service:  svc,
		Validate: validate,
		Logger:   logger,
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := h.bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	input := service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: stringPtr(c.RealIP()),
	}
	if req.Role != nil {
		role := entity.UserRole(*req.Role)
		input.Role = &role
	}
	result, err := h.Service.Register(c.Request().Context(), input)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.TokenResponseFromResult(*result))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := h.bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	result, err := h.Service.Login(c.Request().Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: stringPtr(c.RealIP()),
	})
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return writeLoginResult(c, result)
}

func (h *AuthHandler) LoginWithMFA(c echo.Context) error {
	var req dto.LoginMFARequest
	if err := h.bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	result, err := h.Service.VerifyMFALogin(c.Request().Context(), service.MFALoginInput{
		MFAToken:  req.MFAToken,
		Code:      req.MFACode,
		IPAddress: stringPtr(c.RealIP()),
	})
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.TokenResponseFromResult(*result))
}

func (h *AuthHandler) LoginWithGoogle(c echo.Context) error {
	var req dto.GoogleLoginRequest
	if err := h.bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	result, err := h.Service.LoginWithIdentityToken(c.Request().Context(), service.IdentityLoginInput{
		IDToken:   req.IDToken,
		IPAddress: stringPtr(c.RealIP()),
	})
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return writeLoginResult(c, result)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		return h.writeServiceError(c, service.ErrInvalidSession)
	}
	if err := h.Service.Logout(c.Request().Context(), session, stringPtr(c.RealIP())); err != nil {
		return h.writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// writeLoginResult answers a pending MFA login with 400 and the MFA token;
// clients key off mfa_token in the body.
func writeLoginResult(c echo.Context, result *service.LoginResult) error {
	if result.MFARequired {
		return c.JSON(http.StatusBadRequest, dto.MFATokenResponseFromResult(result.TokenResult))
	}
	return c.JSON(http.StatusOK, dto.TokenResponseFromResult(result.TokenResult))
}

func stringPtr(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
