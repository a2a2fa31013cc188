package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrRikimaru/UserService/internal/cache"
	"github.com/MrRikimaru/UserService/internal/handlers"
	"github.com/MrRikimaru/UserService/internal/models"
	"github.com/MrRikimaru/UserService/internal/repository"
	"github.com/MrRikimaru/UserService/internal/server"
	"github.com/MrRikimaru/UserService/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	local, err := cache.NewLocalCache(cache.DefaultLocalCacheConfig())
	require.NoError(t, err)
	manager := cache.NewManager(local, nil, &cache.ManagerConfig{
		Prefix:              "user-service",
		TTL:                 time.Hour,
		EnableLocalCache:    true,
		EnableRedisCache:    false,
		GracefulDegradation: true,
		Name:                "test",
	})
	t.Cleanup(func() { manager.Close() })

	repo := repository.NewMemoryRepository()
	logger := zap.NewNop()
	evictor := cache.NewInvalidator(manager, logger)
	userService := services.NewUserService(repo, manager, evictor, logger)
	cardService := services.NewCardService(repo, manager, evictor, logger)

	router := gin.New()
	server.SetupRoutes(router,
		handlers.NewUserHandler(userService, cardService),
		handlers.NewCardHandler(cardService),
		handlers.NewCacheHandler(manager, evictor, logger),
		handlers.NewHealthHandler(repo, manager))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createUser(t *testing.T, router *gin.Engine, email string) models.User {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/users", gin.H{
		"name":      "Ada",
		"surname":   "Lovelace",
		"birthDate": "1990-03-14",
		"email":     email,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var user models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	return user
}

func TestUserEndpoints(t *testing.T) {
	router := newTestRouter(t)

	t.Run("create and get", func(t *testing.T) {
		user := createUser(t, router, "api@example.com")

		w := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/users/%d", user.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got models.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.Equal(t, "api@example.com", got.Email)
	})

	t.Run("get unknown is 404 with error envelope", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/users/9999", nil)
		require.Equal(t, http.StatusNotFound, w.Code)

		var resp struct {
			Status    int       `json:"status"`
			Message   string    `json:"message"`
			Timestamp time.Time `json:"timestamp"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, http.StatusNotFound, resp.Status)
		require.Contains(t, resp.Message, "user not found")
		require.False(t, resp.Timestamp.IsZero())
	})

	t.Run("duplicate email is 409", func(t *testing.T) {
		createUser(t, router, "taken@example.com")
		w := doJSON(t, router, http.MethodPost, "/api/users", gin.H{
			"name": "Ada", "surname": "Lovelace", "email": "taken@example.com",
		})
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("validation failure returns field map", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/users", gin.H{
			"name":  "",
			"email": "not-an-email",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Errors map[string]string `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Contains(t, resp.Errors, "Name")
		require.Contains(t, resp.Errors, "Surname")
		require.Contains(t, resp.Errors, "Email")
	})

	t.Run("future birth date is 400", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/users", gin.H{
			"name":      "Ada",
			"surname":   "Lovelace",
			"birthDate": "2999-01-01",
			"email":     "future@example.com",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-numeric id is 400", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/users/abc", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("any parseable absent id is 404", func(t *testing.T) {
		for _, id := range []string{"0", "-5", "9999"} {
			w := doJSON(t, router, http.MethodGet, "/api/users/"+id, nil)
			require.Equal(t, http.StatusNotFound, w.Code, "id %s", id)
		}
	})

	t.Run("activate toggle", func(t *testing.T) {
		user := createUser(t, router, "toggle@example.com")

		w := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/users/%d/deactivate", user.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got models.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		require.False(t, got.Active)

		w = doJSON(t, router, http.MethodPatch, fmt.Sprintf("/api/users/%d/activate", user.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("delete is 204 then 404", func(t *testing.T) {
		user := createUser(t, router, "gone@example.com")

		w := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/users/%d", user.ID), nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/users/%d", user.ID), nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("listing envelope", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/users?name=Ada&page=0&size=2", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Content []models.User   `json:"content"`
			Page    models.PageInfo `json:"page"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Content)
		require.Equal(t, 2, resp.Page.Size)
	})

	t.Run("born-before requires a date", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/users/born-before", nil)
		require.Equal(t, http.StatusBadRequest, w.Code)

		w = doJSON(t, router, http.MethodGet, "/api/users/born-before?birthDate=2000-01-01", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("lookup by email", func(t *testing.T) {
		createUser(t, router, "byemail@example.com")
		w := doJSON(t, router, http.MethodGet, "/api/users/email/byemail@example.com", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCardEndpoints(t *testing.T) {
	router := newTestRouter(t)
	owner := createUser(t, router, "cards@example.com")

	cardBody := func(number string) gin.H {
		return gin.H{
			"number":         number,
			"holder":         "ADA LOVELACE",
			"expirationDate": "2030-12-01",
		}
	}

	t.Run("create and fetch", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost,
			fmt.Sprintf("/api/payment-cards/user/%d", owner.ID), cardBody("4111111111111111"))
		require.Equal(t, http.StatusCreated, w.Code)
		var card models.PaymentCard
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))
		require.Equal(t, owner.ID, card.UserID)

		w = doJSON(t, router, http.MethodGet,
			fmt.Sprintf("/api/payment-cards/%d", card.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodGet,
			"/api/payment-cards/number/4111111111111111", nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodGet,
			fmt.Sprintf("/api/payment-cards/user/%d/card/%d", owner.ID, card.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("card for user of unknown owner is 404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/payment-cards/user/9999/card/1", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("number validation", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost,
			fmt.Sprintf("/api/payment-cards/user/%d", owner.ID), cardBody("12ab"))
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Errors map[string]string `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Contains(t, resp.Errors, "Number")
	})

	t.Run("missing expiration reported per field", func(t *testing.T) {
		body := cardBody("4333333333333333")
		delete(body, "expirationDate")
		w := doJSON(t, router, http.MethodPost,
			fmt.Sprintf("/api/payment-cards/user/%d", owner.ID), body)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Errors map[string]string `json:"errors"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Contains(t, resp.Errors, "ExpirationDate")
	})

	t.Run("past expiration is 400", func(t *testing.T) {
		body := cardBody("4222222222222222")
		body["expirationDate"] = "2001-01-01"
		w := doJSON(t, router, http.MethodPost,
			fmt.Sprintf("/api/payment-cards/user/%d", owner.ID), body)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("limit exceeded is 400", func(t *testing.T) {
		limited := createUser(t, router, "limited@example.com")
		for i := 0; i < models.MaxCardsPerUser; i++ {
			w := doJSON(t, router, http.MethodPost,
				fmt.Sprintf("/api/payment-cards/user/%d", limited.ID),
				cardBody(fmt.Sprintf("520000000000000%d", i)))
			require.Equal(t, http.StatusCreated, w.Code)
		}
		w := doJSON(t, router, http.MethodPost,
			fmt.Sprintf("/api/payment-cards/user/%d", limited.ID), cardBody("5200000000000099"))
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Contains(t, resp.Message, "more than 5")
	})

	t.Run("user cards listing", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet,
			fmt.Sprintf("/api/users/%d/cards", owner.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var cards []models.PaymentCard
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cards))
		require.NotEmpty(t, cards)
	})
}

func TestCacheAdminAndHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)
	owner := createUser(t, router, "admin@example.com")

	t.Run("stats", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/cache/stats", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var stats cache.Stats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		require.Contains(t, stats.KeysByView, cache.ViewUser)
	})

	t.Run("clear user", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost,
			fmt.Sprintf("/api/cache/clear/user/%d", owner.ID), nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("clear all", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/cache/clear/all", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("log state", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/cache/log", nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("health", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/health", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Status   string            `json:"status"`
			Database string            `json:"database"`
			Cache    map[string]string `json:"cache"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, "healthy", resp.Status)
		require.Equal(t, "healthy", resp.Database)
		require.Equal(t, "disabled", resp.Cache["redis"])
	})
}
