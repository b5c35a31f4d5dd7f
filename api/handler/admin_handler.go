package handler

import (
	"net/http"
	"strconv"

	"kkp/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *AuthHandler) AdminListUsers(c echo.Context) error {
	page, pageSize := parsePage(c)
	result, err := h.Service.ListUsers(c.Request().Context(), page, pageSize)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserListResponseFromPage(result))
}

func (h *AuthHandler) AdminGetUser(c echo.Context) error {
	userID, ok := parseUserID(c)
	if !ok {
		return writeMessage(c, http.StatusBadRequest, "Invalid user id.")
	}
	user, err := h.Service.GetUser(c.Request().Context(), userID)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserInfoFromEntity(user))
}

func (h *AuthHandler) AdminDisableMFA(c echo.Context) error {
	userID, ok := parseUserID(c)
	if !ok {
		return writeMessage(c, http.StatusBadRequest, "Invalid user id.")
	}
	user, err := h.Service.AdminDisableMFA(c.Request().Context(), userID)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.UserInfoFromEntity(user))
}

func (h *AuthHandler) AdminRevokeUserSessions(c echo.Context) error {
	userID, ok := parseUserID(c)
	if !ok {
		return writeMessage(c, http.StatusBadRequest, "Invalid user id.")
	}
	if err := h.Service.RevokeUserSessions(c.Request().Context(), userID); err != nil {
		return h.writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// parsePage reads page and page_size; bad values fall back to the service
// defaults.
func parsePage(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	return page, pageSize
}

func parseUserID(c echo.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}
