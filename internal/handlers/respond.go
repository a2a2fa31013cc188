package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MrRikimaru/UserService/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type errorResponse struct {
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type validationResponse struct {
	Status    int               `json:"status"`
	Errors    map[string]string `json:"errors"`
	Timestamp time.Time         `json:"timestamp"`
}

// respondError maps a domain error to its HTTP status. Anything outside the
// sentinel families is a 500 with a generic body; the cause stays in the
// logs.
func respondError(c *gin.Context, err error) {
	status, message := statusOf(err)
	c.JSON(status, errorResponse{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrPaymentCardNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, models.ErrDuplicateEmail),
		errors.Is(err, models.ErrDuplicateCardNumber):
		return http.StatusConflict, err.Error()
	case errors.Is(err, models.ErrCardLimitExceeded),
		errors.Is(err, models.ErrInvalidExpirationDate),
		errors.Is(err, models.ErrInvalidBirthDate):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// respondBindError turns a binding failure into a 400 with a field to
// message map when the failure came from validation tags, or a plain 400
// otherwise (malformed JSON, bad date format).
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, errorResponse{
			Status:    http.StatusBadRequest,
			Message:   err.Error(),
			Timestamp: time.Now().UTC(),
		})
		return
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	c.JSON(http.StatusBadRequest, validationResponse{
		Status:    http.StatusBadRequest,
		Errors:    fields,
		Timestamp: time.Now().UTC(),
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "numeric":
		return "must contain only digits"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "is invalid"
	}
}

// pagedResponse is the envelope for listing endpoints.
type pagedResponse struct {
	Content any             `json:"content"`
	Page    models.PageInfo `json:"page"`
}

// pageRequest reads page/size query parameters; unparsable values fall back
// to defaults through Normalize.
func pageRequest(c *gin.Context) models.PageRequest {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "0"))
	return models.PageRequest{Page: page, Size: size}.Normalize()
}

// pathID parses a numeric path parameter. Any parseable id is accepted; one
// that names no row comes back from the store as a 404.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Status:    http.StatusBadRequest,
			Message:   fmt.Sprintf("invalid %s", name),
			Timestamp: time.Now().UTC(),
		})
		return 0, false
	}
	return id, true
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

// optionalQuery returns a pointer to the query value, nil when absent.
func optionalQuery(c *gin.Context, name string) *string {
	if value, ok := c.GetQuery(name); ok && value != "" {
		return &value
	}
	return nil
}

// optionalBoolQuery parses an optional boolean query parameter.
func optionalBoolQuery(c *gin.Context, name string) *bool {
	if value, ok := c.GetQuery(name); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return &parsed
		}
	}
	return nil
}
