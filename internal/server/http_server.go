package server

import (
	"github.com/MrRikimaru/UserService/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the full REST surface on the router.
//
// Gin matches static segments before parameters, so the literal user routes
// (active, search, born-before, email) must not collide with /:id; they are
// registered on distinct static prefixes.
func SetupRoutes(router *gin.Engine,
	userHandler *handlers.UserHandler,
	cardHandler *handlers.CardHandler,
	cacheHandler *handlers.CacheHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := router.Group("/api")
	{
		api.GET("/health", healthHandler.HealthCheck)

		users := api.Group("/users")
		{
			users.POST("", userHandler.CreateUser)
			users.GET("", userHandler.ListUsers)
			users.GET("/active", userHandler.ListActiveUsers)
			users.GET("/search", userHandler.SearchUsers)
			users.GET("/born-before", userHandler.ListActiveUsersBornBefore)
			users.GET("/email/:email", userHandler.GetUserByEmail)
			users.GET("/:id", userHandler.GetUser)
			users.GET("/:id/with-cards", userHandler.GetUserWithCards)
			users.GET("/:id/cards", userHandler.GetUserCards)
			users.PUT("/:id", userHandler.UpdateUser)
			users.PATCH("/:id/activate", userHandler.ActivateUser)
			users.PATCH("/:id/deactivate", userHandler.DeactivateUser)
			users.DELETE("/:id", userHandler.DeleteUser)
		}

		cards := api.Group("/payment-cards")
		{
			cards.POST("/user/:userId", cardHandler.CreateCard)
			cards.GET("", cardHandler.ListCards)
			cards.GET("/active", cardHandler.ListActiveCards)
			cards.GET("/number/:number", cardHandler.GetCardByNumber)
			cards.GET("/user/:userId", cardHandler.CardsOfUser)
			cards.GET("/user/:userId/active", cardHandler.ActiveCardsOfUser)
			cards.GET("/user/:userId/card/:cardId", cardHandler.GetCardForUser)
			cards.GET("/:id", cardHandler.GetCard)
			cards.PUT("/:id", cardHandler.UpdateCard)
			cards.PATCH("/:id/activate", cardHandler.ActivateCard)
			cards.PATCH("/:id/deactivate", cardHandler.DeactivateCard)
			cards.DELETE("/:id", cardHandler.DeleteCard)
		}

		adminCache := api.Group("/cache")
		{
			adminCache.GET("/stats", cacheHandler.Stats)
			adminCache.GET("/log", cacheHandler.LogState)
			adminCache.POST("/clear/user/:userId", cacheHandler.ClearUser)
			adminCache.POST("/clear/all", cacheHandler.ClearAll)
		}
	}
}
