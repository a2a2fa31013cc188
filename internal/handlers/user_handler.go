package handlers

import (
	"net/http"
	"time"

	"github.com/MrRikimaru/UserService/internal/models"
	"github.com/MrRikimaru/UserService/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *services.UserService
	cards   *services.CardService
}

func NewUserHandler(service *services.UserService, cards *services.CardService) *UserHandler {
	return &UserHandler{
		service: service,
		cards:   cards,
	}
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req models.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUserWithCards(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.service.GetUserWithCards(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUserByEmail(c *gin.Context) {
	user, err := h.service.GetUserByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUserCards(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	cards, err := h.cards.CardsOfUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	filter := models.UserFilter{
		Name:    optionalQuery(c, "name"),
		Surname: optionalQuery(c, "surname"),
		Active:  optionalBoolQuery(c, "active"),
	}

	users, info, err := h.service.ListUsers(c.Request.Context(), filter, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagedResponse{Content: users, Page: *info})
}

func (h *UserHandler) ListActiveUsers(c *gin.Context) {
	users, info, err := h.service.ListActiveUsers(c.Request.Context(), pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagedResponse{Content: users, Page: *info})
}

func (h *UserHandler) SearchUsers(c *gin.Context) {
	users, info, err := h.service.SearchUsers(c.Request.Context(),
		optionalQuery(c, "name"), optionalQuery(c, "surname"), pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagedResponse{Content: users, Page: *info})
}

func (h *UserHandler) ListActiveUsersBornBefore(c *gin.Context) {
	before, err := models.ParseDate(c.Query("birthDate"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Status:    http.StatusBadRequest,
			Message:   "birthDate must be a valid date in YYYY-MM-DD format",
			Timestamp: time.Now().UTC(),
		})
		return
	}

	users, info, err := h.service.ListActiveUsersBornBefore(c.Request.Context(), before, pageRequest(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagedResponse{Content: users, Page: *info})
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) ActivateUser(c *gin.Context) {
	h.setActive(c, true)
}

func (h *UserHandler) DeactivateUser(c *gin.Context) {
	h.setActive(c, false)
}

func (h *UserHandler) setActive(c *gin.Context, active bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var user *models.User
	var err error
	if active {
		user, err = h.service.ActivateUser(c.Request.Context(), id)
	} else {
		user, err = h.service.DeactivateUser(c.Request.Context(), id)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
