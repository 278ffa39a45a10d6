package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rednet/account-service/internal/api/metrics"
	"github.com/rednet/account-service/internal/core/domain"
	"github.com/rednet/account-service/internal/core/ports"
)

// AccountHandler handles HTTP requests for the account directory.
type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// Create handles POST /accounts.
//
// @Summary      Create an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      createAccountRequest  true  "Account details"
// @Success      200   {object}  accountResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /accounts [post]
func (h *AccountHandler) Create(c echo.Context) (err error) {
	defer observe("create", time.Now(), &err)

	var req createAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	account, err := h.service.CreateAccount(c.Request().Context(), toCreation(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// Update handles PUT /accounts.
//
// @Summary      Replace an existing account
// @Tags         accounts
// @Accept       json
// @Param        body  body  updateAccountRequest  true  "Full account state"
// @Success      200
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /accounts [put]
func (h *AccountHandler) Update(c echo.Context) (err error) {
	defer observe("update", time.Now(), &err)

	var req updateAccountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.service.UpdateAccount(c.Request().Context(), toUpdate(req)); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// GetByID handles GET /accounts/by-id.
//
// @Summary      Get an account by ID
// @Tags         accounts
// @Produce      json
// @Param        id   query     int  true  "Account ID"
// @Success      200  {object}  accountResponse
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /accounts/by-id [get]
func (h *AccountHandler) GetByID(c echo.Context) (err error) {
	defer observe("get_by_id", time.Now(), &err)

	id, err := accountID(c)
	if err != nil {
		return err
	}
	account, err := h.service.GetAccountByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// DeleteByID handles DELETE /accounts/by-id.
//
// @Summary      Delete an account by ID
// @Tags         accounts
// @Param        id   query  int  true  "Account ID"
// @Success      200
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /accounts/by-id [delete]
func (h *AccountHandler) DeleteByID(c echo.Context) (err error) {
	defer observe("delete", time.Now(), &err)

	id, err := accountID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteAccountByID(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

// GetByUsername handles GET /accounts/by-username.
//
// @Summary      Get an account by username
// @Tags         accounts
// @Produce      json
// @Param        username  query     string  true  "Username"
// @Success      200       {object}  accountResponse
// @Failure      400       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Router       /accounts/by-username [get]
func (h *AccountHandler) GetByUsername(c echo.Context) (err error) {
	defer observe("get_by_username", time.Now(), &err)

	username, err := requiredQuery(c, domain.FieldUsername)
	if err != nil {
		return err
	}
	account, err := h.service.GetAccountByUsername(c.Request().Context(), username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// ExistsByUsername handles HEAD /accounts/by-username.
//
// @Summary      Check whether a username is taken
// @Tags         accounts
// @Param        username  query  string  true  "Username"
// @Success      200
// @Failure      400
// @Failure      404
// @Router       /accounts/by-username [head]
func (h *AccountHandler) ExistsByUsername(c echo.Context) (err error) {
	defer observe("exists_by_username", time.Now(), &err)

	username, err := requiredQuery(c, domain.FieldUsername)
	if err != nil {
		return err
	}
	found, err := h.service.ExistsAccountByUsername(c.Request().Context(), username)
	if err != nil {
		return err
	}
	if !found {
		return domain.NewAccountNotFoundError(domain.FieldUsername, username)
	}
	return c.NoContent(http.StatusOK)
}

// GetByEmail handles GET /accounts/by-email.
//
// @Summary      Get an account by email
// @Tags         accounts
// @Produce      json
// @Param        email  query     string  true  "Email"
// @Success      200    {object}  accountResponse
// @Failure      400    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Router       /accounts/by-email [get]
func (h *AccountHandler) GetByEmail(c echo.Context) (err error) {
	defer observe("get_by_email", time.Now(), &err)

	email, err := requiredQuery(c, domain.FieldEmail)
	if err != nil {
		return err
	}
	account, err := h.service.GetAccountByEmail(c.Request().Context(), email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// ExistsByEmail handles HEAD /accounts/by-email.
//
// @Summary      Check whether an email is taken
// @Tags         accounts
// @Param        email  query  string  true  "Email"
// @Success      200
// @Failure      400
// @Failure      404
// @Router       /accounts/by-email [head]
func (h *AccountHandler) ExistsByEmail(c echo.Context) (err error) {
	defer observe("exists_by_email", time.Now(), &err)

	email, err := requiredQuery(c, domain.FieldEmail)
	if err != nil {
		return err
	}
	found, err := h.service.ExistsAccountByEmail(c.Request().Context(), email)
	if err != nil {
		return err
	}
	if !found {
		return domain.NewAccountNotFoundError(domain.FieldEmail, email)
	}
	return c.NoContent(http.StatusOK)
}

// GetByUsernameOrEmail handles GET /accounts/by-username-or-email.
//
// @Summary      Get the account holding a username or an email
// @Tags         accounts
// @Produce      json
// @Param        username  query     string  true  "Username"
// @Param        email     query     string  true  "Email"
// @Success      200       {object}  accountResponse
// @Failure      400       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Router       /accounts/by-username-or-email [get]
func (h *AccountHandler) GetByUsernameOrEmail(c echo.Context) (err error) {
	defer observe("get_by_username_or_email", time.Now(), &err)

	username, email, err := uniqueFieldsQuery(c)
	if err != nil {
		return err
	}
	account, err := h.service.GetAccountByUsernameOrEmail(c.Request().Context(), username, email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// UniqueFieldsOccupancy handles GET /accounts/unique-fields-occupancy.
//
// @Summary      Report which of a username and an email are taken
// @Tags         accounts
// @Produce      json
// @Param        username  query     string  true  "Username"
// @Param        email     query     string  true  "Email"
// @Success      200       {object}  occupancyResponse
// @Failure      400       {object}  errorResponse
// @Router       /accounts/unique-fields-occupancy [get]
func (h *AccountHandler) UniqueFieldsOccupancy(c echo.Context) (err error) {
	defer observe("occupancy", time.Now(), &err)

	username, email, err := uniqueFieldsQuery(c)
	if err != nil {
		return err
	}
	occupancy, err := h.service.GetUniqueFieldsOccupancy(c.Request().Context(), username, email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toOccupancyResponse(occupancy))
}

// --- Helpers ---

func accountID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.QueryParam(domain.FieldID), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id should be an integer value")
	}
	return id, nil
}

func requiredQuery(c echo.Context, name string) (string, error) {
	v := c.QueryParam(name)
	if strings.TrimSpace(v) == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, name+" min length is 1")
	}
	return v, nil
}

func uniqueFieldsQuery(c echo.Context) (string, string, error) {
	username, err := requiredQuery(c, domain.FieldUsername)
	if err != nil {
		return "", "", err
	}
	email, err := requiredQuery(c, domain.FieldEmail)
	if err != nil {
		return "", "", err
	}
	return username, email, nil
}

// observe records the outcome of one handler call. Occupied values are also
// counted per field.
func observe(operation string, started time.Time, errp *error) {
	err := *errp

	var occupied *domain.OccupiedValueError
	if errors.As(err, &occupied) {
		for field := range occupied.OccupiedFields {
			metrics.UniqueConflictsTotal.WithLabelValues(field).Inc()
		}
	}
	metrics.ObserveOperation(operation, resultOf(err), started)
}

func resultOf(err error) string {
	var he *echo.HTTPError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrOccupiedValue):
		return "occupied"
	case errors.Is(err, domain.ErrInvalidAccount):
		return "invalid"
	case errors.As(err, &he) && he.Code == http.StatusBadRequest:
		return "invalid"
	default:
		return "error"
	}
}
