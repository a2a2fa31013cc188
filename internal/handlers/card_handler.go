package handlers

import (
	"net/http"

	"github.com/MrRikimaru/UserService/internal/models"
	"github.com/MrRikimaru/UserService/internal/services"

	"github.com/gin-gonic/gin"
)

type CardHandler struct {
	service *services.CardService
}

func NewCardHandler(service *services.CardService) *CardHandler {
	return &CardHandler{
		service: service,
	}
}

func (h *CardHandler) CreateCard(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	var req models.PaymentCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	card, err := h.service.CreateCard(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (h *CardHandler) GetCard(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	card, err := h.service.GetCard(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CardHandler) GetCardByNumber(c *gin.Context) {
	card, err := h.service.GetCardByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CardHandler) GetCardForUser(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	cardID, ok := pathID(c, "cardId")
	if !ok {
		return
	}

	card, err := h.service.GetCardForUser(c.Request.Context(), userID, cardID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CardHandler) ListCards(c *gin.Context) {
	filter := models.CardFilter{
		Holder: optionalQuery(c, "holder"),
		Active: optionalBoolQuery(c, "active"),
	}
	if userID := optionalQuery(c, "userId"); userID != nil {
		if id, ok := parseID(*userID); ok {
			filter.UserID = &id
		}
	}

	cards, info, err := h.service.ListCards(c.Request.Context(), filter, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagedResponse{Content: cards, Page: *info})
}

func (h *CardHandler) ListActiveCards(c *gin.Context) {
	cards, info, err := h.service.ListActiveCards(c.Request.Context(), pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagedResponse{Content: cards, Page: *info})
}

func (h *CardHandler) CardsOfUser(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	cards, err := h.service.CardsOfUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *CardHandler) ActiveCardsOfUser(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	cards, err := h.service.ActiveCardsOfUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *CardHandler) UpdateCard(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.PaymentCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	card, err := h.service.UpdateCard(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CardHandler) ActivateCard(c *gin.Context) {
	h.setActive(c, true)
}

func (h *CardHandler) DeactivateCard(c *gin.Context) {
	h.setActive(c, false)
}

func (h *CardHandler) setActive(c *gin.Context, active bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var card *models.PaymentCard
	var err error
	if active {
		card, err = h.service.ActivateCard(c.Request.Context(), id)
	} else {
		card, err = h.service.DeactivateCard(c.Request.Context(), id)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CardHandler) DeleteCard(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteCard(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
