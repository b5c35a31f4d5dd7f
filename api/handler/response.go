package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"kkp/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type serviceError struct {
	status  int
	message string
}

var serviceErrors = []struct {
	err error
	serviceError
}{
	{service.ErrInvalidInput, serviceError{http.StatusBadRequest, "Invalid input."}},
	{service.ErrEmailAlreadyRegistered, serviceError{http.StatusBadRequest, "User with this email already registered!"}},
	{service.ErrInvalidCredentials, serviceError{http.StatusBadRequest, "User with this credentials is not found!"}},
	{service.ErrInvalidSession, serviceError{http.StatusUnauthorized, "Invalid session."}},
	{service.ErrInvalidMFAToken, serviceError{http.StatusBadRequest, "Invalid mfa token!"}},
	{service.ErrInvalidMFACode, serviceError{http.StatusBadRequest, "Invalid code."}},
	{service.ErrMFAAlreadyEnabled, serviceError{http.StatusBadRequest, "Mfa already enabled."}},
	{service.ErrMFANotEnabled, serviceError{http.StatusBadRequest, "Mfa is not enabled."}},
	{service.ErrWrongPassword, serviceError{http.StatusBadRequest, "Wrong password!"}},
	{service.ErrUserNotFound, serviceError{http.StatusNotFound, "Unknown user."}},
	{service.ErrInvalidIdentity, serviceError{http.StatusUnauthorized, "Invalid identity token."}},
	{service.ErrIdentityNotConfigured, serviceError{http.StatusNotImplemented, "Google login is not configured."}},
}

var errInvalidBody = errors.New("invalid request body")

// bind decodes the JSON body into target and validates it.
func (h *AuthHandler) bind(c echo.Context, target any) error {
	if err := decodeJSON(c, target); err != nil {
		return errInvalidBody
	}
	return h.validate(target)
}

func writeBindError(c echo.Context, err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return writeMessage(c, http.StatusUnprocessableEntity, validationMessage(validationErrs))
	}
	return writeMessage(c, http.StatusBadRequest, "Invalid request body.")
}

// validationMessage lists the offending fields by their JSON names. The
// names come from jsonFieldName, registered in NewAuthHandler.
func validationMessage(errs validator.ValidationErrors) string {
	fields := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		fields = append(fields, fieldErr.Field())
	}
	return "Invalid fields: " + strings.Join(fields, ", ") + "."
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return name
}

func (h *AuthHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeMessage(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"message": message})
}

func (h *AuthHandler) writeServiceError(c echo.Context, err error) error {
	for _, known := range serviceErrors {
		if errors.Is(err, known.err) {
			return writeMessage(c, known.status, known.message)
		}
	}
	h.Logger.WithError(err).WithField("path", c.Path()).Error("request failed")
	return writeMessage(c, http.StatusInternalServerError, "Internal server error.")
}
