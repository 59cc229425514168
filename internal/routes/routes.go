package routes

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"medimart_back_end/internal/cart"
	"medimart_back_end/internal/database"
	"medimart_back_end/internal/handlers/payement"
	"medimart_back_end/internal/handlers/product"
	"medimart_back_end/internal/handlers/user"
	"medimart_back_end/internal/identity"
	"medimart_back_end/internal/middleware"
	"medimart_back_end/internal/store"
	"medimart_back_end/internal/utils"
)

func RegisterRoutes(r *gin.Engine) {
	wireDependencies()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api", middleware.SessionContext())

	// Auth
	api.POST("/auth/signup", user.Signup)
	api.POST("/auth/login", user.Login)
	api.POST("/auth/logout", user.Logout)
	api.POST("/auth/forgot-password", user.ForgotPassword)
	api.GET("/auth/saved-email", user.SavedEmail)
	api.GET("/auth/me", middleware.AuthRequired(), user.Me)
	api.GET("/auth/:provider", user.BeginAuth)
	api.GET("/auth/:provider/callback", user.CallbackAuth)

	// Panier (session anonyme ou connectée)
	api.GET("/cart", user.GetCart)
	api.POST("/cart/add", user.AddToCart)
	api.POST("/cart/quantity", user.UpdateQuantity)
	api.DELETE("/cart/clear", user.ClearCart)
	api.DELETE("/cart/:productId", user.RemoveFromCart)
	api.GET("/cart/ws", user.CartWebSocket)

	// Catalogue
	api.POST("/products", middleware.AuthRequired(), product.CreateProduct)
	api.GET("/products", product.GetAllProducts)
	api.GET("/products/search", product.SearchProducts)
	api.GET("/products/:id", product.GetProduct)

	// Paiement
	api.POST("/charge", payement.ChargeCard)
}

// wireDependencies construit les dépendances partagées des handlers :
// document store distant, cache local, gestionnaire de sessions panier et
// fournisseur d'identité.
func wireDependencies() {
	users := store.NewUserStore(database.Firestore)
	local := store.NewRedisStore(database.Redis)

	manager := cart.NewManager(users, local)
	manager.NotifyFactory = func(sessionID string) cart.Notifier {
		return func(snap cart.Snapshot) {
			// Réveille les WebSockets abonnés, qui relisent le cache de rendu
			database.Redis.Publish(context.Background(), "cart:"+sessionID, cartEventPayload(snap))
		}
	}

	user.Users = users
	user.Carts = manager
	payement.Carts = manager

	if os.Getenv("IDENTITY_MODE") == "local" {
		user.Identity = identity.NewLocalService(users, database.Redis)
		log.Println("🔑 Fournisseur d'identité: local (Firestore + argon2)")
	} else {
		svc := identity.NewFirebaseService(database.FirebaseAuth)
		svc.SendResetMail = utils.SendResetEmail
		user.Identity = svc
		log.Println("🔑 Fournisseur d'identité: Firebase Auth")
	}
}

// cartEventPayload distingue un panier vidé (déconnexion, fin de commande)
// d'une mutation ordinaire sur le canal pubsub.
func cartEventPayload(snap cart.Snapshot) string {
	if snap.Count == 0 {
		return "cleared"
	}
	return "updated"
}

func allowedOrigins() []string {
	origins := []string{"http://localhost:5173", "http://localhost:3000"}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		origins = append(origins, v)
	}
	return origins
}
