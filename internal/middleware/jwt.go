package middleware

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionCookie = "mm_sid"

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "super_secret"
	}
	return []byte(secret)
}

// AuthRequired exige un Bearer JWT valide et pose user_id/email dans le
// contexte gin.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, email, ok := parseBearer(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("email", email)
		c.Set("session_id", userID)
		c.Next()
	}
}

// SessionContext identifie la session panier : l'uid du JWT si présent et
// valide, sinon un identifiant de visiteur anonyme porté par cookie. Ne
// bloque jamais la requête — le panier anonyme est un citoyen de plein droit.
func SessionContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, email, ok := parseBearer(c); ok {
			c.Set("user_id", userID)
			c.Set("email", email)
			c.Set("session_id", userID)
			c.Next()
			return
		}

		sid, err := c.Cookie(sessionCookie)
		if err != nil || sid == "" {
			sid = c.GetHeader("X-Session-Id")
		}
		if sid == "" {
			sid = "anon-" + uuid.NewString()
			// 30 jours, aligné sur la rétention du cache panier
			c.SetCookie(sessionCookie, sid, 30*24*3600, "/", "", false, true)
		}
		c.Set("session_id", sid)
		c.Next()
	}
}

func parseBearer(c *gin.Context) (userID, email string, ok bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "", false
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, valid := token.Method.(*jwt.SigningMethodHMAC); !valid {
			return nil, fmt.Errorf("méthode de signature inattendue: %v", token.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return "", "", false
	}

	claims, valid := token.Claims.(jwt.MapClaims)
	if !valid {
		return "", "", false
	}
	userID, _ = claims["user_id"].(string)
	email, _ = claims["email"].(string)
	return userID, email, userID != ""
}
