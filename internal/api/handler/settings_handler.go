package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/agent007moss/MLT/internal/core/domain"
	"github.com/agent007moss/MLT/internal/core/ports"
)

// SettingsHandler serves the dashboard card catalogue and the caller's
// own dashboard layout.
type SettingsHandler struct {
	settingsService ports.SettingsService
}

func NewSettingsHandler(settingsService ports.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// ListCards
//
// @Summary      List dashboard cards
// @Tags         settings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   cardResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /settings/cards [get]
func (h *SettingsHandler) ListCards(c echo.Context) error {
	cards, err := h.settingsService.ListCards(c.Request().Context())
	if err != nil {
		return err
	}
	resp := make([]cardResponse, 0, len(cards))
	for _, card := range cards {
		resp = append(resp, toCardResponse(card))
	}
	return c.JSON(http.StatusOK, resp)
}

// CreateCard adds a card to the catalogue.
//
// @Summary      Create a dashboard card
// @Tags         settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createCardRequest  true  "Card"
// @Success      201   {object}  cardResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /settings/cards [post]
func (h *SettingsHandler) CreateCard(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req createCardRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	card, err := h.settingsService.CreateCard(c.Request().Context(), p.UserID, ports.CardInput{
		Key:         req.Key,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCardResponse(card))
}

// UpdateCard
//
// @Summary      Update a dashboard card
// @Tags         settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "Card ID"
// @Param        body  body      updateCardRequest  true  "Fields to change"
// @Success      200   {object}  cardResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /settings/cards/{id} [patch]
func (h *SettingsHandler) UpdateCard(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := cardID(c)
	if err != nil {
		return err
	}
	var req updateCardRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	card, err := h.settingsService.UpdateCard(c.Request().Context(), p.UserID, id, domain.CardPatch{
		Title:       req.Title,
		Description: req.Description,
		Active:      req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCardResponse(card))
}

// DeleteCard
//
// @Summary      Delete a dashboard card
// @Tags         settings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Card ID"
// @Success      200  {object}  okResponse
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /settings/cards/{id} [delete]
func (h *SettingsHandler) DeleteCard(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	id, err := cardID(c)
	if err != nil {
		return err
	}
	if err := h.settingsService.DeleteCard(c.Request().Context(), p.UserID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

// Layout returns the caller's saved dashboard layout.
//
// @Summary      Get my dashboard layout
// @Tags         settings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  layoutResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /settings/layout [get]
func (h *SettingsHandler) Layout(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	prefs, err := h.settingsService.Layout(c.Request().Context(), p.UserID)
	if err != nil {
		return err
	}
	resp := layoutResponse{Cards: make([]layoutEntryResponse, 0, len(prefs))}
	for _, pref := range prefs {
		resp.Cards = append(resp.Cards, layoutEntryResponse{CardKey: pref.CardKey, OrderIndex: pref.OrderIndex, Visible: pref.Visible})
	}
	return c.JSON(http.StatusOK, resp)
}

// SaveLayout replaces the caller's dashboard layout.
//
// @Summary      Save my dashboard layout
// @Tags         settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      saveLayoutRequest  true  "Layout"
// @Success      200   {object}  okResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /settings/layout [put]
func (h *SettingsHandler) SaveLayout(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	var req saveLayoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.settingsService.SaveLayout(c.Request().Context(), p.UserID, req.toDomain()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

func cardID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid card id")
	}
	return id, nil
}
