package user

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"

	"medimart_back_end/internal/cart"
	"medimart_back_end/internal/database"
	"medimart_back_end/internal/identity"
	"medimart_back_end/internal/models"
	"medimart_back_end/internal/store"
	"medimart_back_end/internal/utils"
)

var (
	// Users et Identity sont câblés au démarrage dans routes.RegisterRoutes.
	Users    *store.UserStore
	Identity identity.Service
)

// ================== AUTH LOCALE ==================

func Signup(c *gin.Context) {
	var input struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Email == "" || input.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uid, err := Identity.SignUp(ctx, input.Email, input.Password)
	if err != nil {
		respondIdentityError(c, err)
		return
	}

	// Le document users/{uid} porte le profil et le panier. En mode local le
	// fournisseur a déjà créé le document (hash du mot de passe inclus), on ne
	// fait que fusionner le profil.
	_, exists, err := Users.Get(ctx, uid)
	if err != nil {
		log.Printf("❌ Erreur lecture document utilisateur %s: %v", uid, err)
	}
	if exists {
		err = Users.MergeProfile(ctx, uid, map[string]interface{}{
			"firstName": input.FirstName,
			"lastName":  input.LastName,
		})
	} else {
		err = Users.Create(ctx, uid, models.UserAccount{
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Email:     input.Email,
			Provider:  "password",
			Cart:      []models.CartItem{},
		})
	}
	if err != nil {
		log.Printf("❌ Erreur création document utilisateur %s: %v", uid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Account created but profile could not be saved"})
		return
	}

	log.Printf("✅ Compte créé: %s (%s)", input.Email, uid)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"userId":  uid,
		"email":   input.Email,
	})
}

func Login(c *gin.Context) {
	var input struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		RememberMe bool   `json:"rememberMe"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uid, err := Identity.SignIn(ctx, input.Email, input.Password)
	if err != nil {
		respondIdentityError(c, err)
		return
	}

	token, err := utils.GenerateJWT(uid, input.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create session"})
		return
	}

	// Connexion = remplacement du panier : la session anonyme est détruite,
	// la session utilisateur recharge le panier du document distant. Jamais
	// de fusion des deux paniers.
	if anonID := c.GetString("session_id"); anonID != "" && anonID != uid {
		Carts.Teardown(ctx, anonID)
	}
	Carts.OnSessionChange(ctx, uid, cart.SessionInfo{SignedIn: true, UserID: uid})

	// Email mémorisé pour le pré-remplissage du formulaire
	if input.RememberMe {
		_ = database.Redis.Set(ctx, "savedEmail:"+uid, input.Email, 30*24*time.Hour).Err()
	} else {
		_ = database.Redis.Del(ctx, "savedEmail:"+uid).Err()
	}

	session := Carts.Session(uid)
	items := session.Items()

	log.Printf("✅ Connexion: %s (%s)", input.Email, uid)
	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"userId": uid,
		"email":  input.Email,
		"cart": gin.H{
			"items": items,
			"count": models.CartCount(items),
			"total": models.CartTotal(items),
		},
	})
}

func Logout(c *gin.Context) {
	sessionID := c.GetString("session_id")
	if sessionID == "" {
		c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Déconnexion : panier en mémoire vidé et affichage rafraîchi, le
	// document distant garde le dernier état écrit.
	Carts.Teardown(ctx, sessionID)

	log.Printf("👋 Déconnexion session %s", sessionID)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

func ForgotPassword(c *gin.Context) {
	var input struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Identity.SendPasswordReset(ctx, input.Email); err != nil {
		var ie *identity.Error
		if errors.As(err, &ie) && ie.Code == "EMAIL_NOT_FOUND" {
			// Ne pas révéler si l'adresse existe
			c.JSON(http.StatusOK, gin.H{"message": "Password reset email sent! Check your inbox."})
			return
		}
		log.Printf("❌ Erreur envoi reset: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not send reset email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset email sent! Check your inbox."})
}

func Me(c *gin.Context) {
	uid := c.GetString("user_id")
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	account, exists, err := Users.Get(ctx, uid)
	if err != nil || !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":    account.UID,
		"firstName": account.FirstName,
		"lastName":  account.LastName,
		"email":     account.Email,
		"provider":  account.Provider,
	})
}

// SavedEmail retourne l'adresse mémorisée pour le pré-remplissage.
func SavedEmail(c *gin.Context) {
	uid := c.GetString("user_id")
	if uid == "" {
		c.JSON(http.StatusOK, gin.H{"email": ""})
		return
	}
	email, _ := database.Redis.Get(c.Request.Context(), "savedEmail:"+uid).Result()
	c.JSON(http.StatusOK, gin.H{"email": email})
}

// ================== AUTH SOCIALE (WEB) ==================

func BeginAuth(c *gin.Context) {
	provider := c.Param("provider")
	if provider != "google" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provider non supporté"})
		return
	}

	ctx := context.Background()
	state := generateRandomState()
	if redirectURL := c.Query("redirect_url"); redirectURL != "" {
		_ = database.Redis.Set(ctx, "oauth_redirect:"+state, redirectURL, 10*time.Minute).Err()
	}

	q := c.Request.URL.Query()
	q.Set("provider", provider)
	q.Set("state", state)
	c.Request.URL.RawQuery = q.Encode()
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

func generateRandomState() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

func CallbackAuth(c *gin.Context) {
	state := c.Query("state")

	// Popup fermée / consentement refusé : retour silencieux, pas une erreur
	if oauthErr := c.Query("error"); oauthErr != "" {
		log.Printf("⚠️ OAuth annulé par l'utilisateur: %s", oauthErr)
		c.Redirect(http.StatusTemporaryRedirect, frontendURL())
		return
	}

	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		log.Printf("❌ Erreur callback OAuth: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Google sign-in failed"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uid, err := findOrCreateOAuthUser(ctx, gothUser.UserID, gothUser.Email, gothUser.FirstName, gothUser.LastName)
	if err != nil {
		log.Printf("❌ Erreur compte OAuth: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google sign-in failed"})
		return
	}

	token, err := utils.GenerateJWT(uid, gothUser.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create session"})
		return
	}

	// Même règle qu'au login classique : remplacement, jamais fusion
	if anonID, err := c.Cookie("mm_sid"); err == nil && anonID != "" {
		Carts.Teardown(ctx, anonID)
	}
	Carts.OnSessionChange(ctx, uid, cart.SessionInfo{SignedIn: true, UserID: uid})

	redirectURI, _ := database.Redis.Get(ctx, "oauth_redirect:"+state).Result()
	_, _ = database.Redis.Del(ctx, "oauth_redirect:"+state).Result()
	if redirectURI == "" {
		redirectURI = frontendURL()
	}

	if !redirectAllowed(redirectURI) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Redirect url non autorisé"})
		return
	}

	sep := "?"
	if strings.Contains(redirectURI, "?") {
		sep = "&"
	}
	final := redirectURI + sep + "token=" + url.QueryEscape(token)
	log.Printf("✅ Redirection finale: %s", final)
	c.Redirect(http.StatusTemporaryRedirect, final)
}

// ================== UTILITAIRES ==================

func findOrCreateOAuthUser(ctx context.Context, providerID, email, firstName, lastName string) (string, error) {
	// 1️⃣ Recherche par email : un compte existant est rattaché au provider
	account, exists, err := Users.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if exists {
		_ = Users.MergeProfile(ctx, account.UID, map[string]interface{}{
			"provider": "google",
		})
		log.Printf("✅ Utilisateur OAuth existant trouvé: %s", email)
		return account.UID, nil
	}

	// 2️⃣ Sinon, création du document avec panier vide
	uid := "google-" + providerID
	err = Users.Create(ctx, uid, models.UserAccount{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Provider:  "google",
		Cart:      []models.CartItem{},
	})
	if err != nil {
		return "", err
	}
	log.Printf("🆕 Utilisateur OAuth créé: %s", email)
	return uid, nil
}

func respondIdentityError(c *gin.Context, err error) {
	var ie *identity.Error
	if errors.As(err, &ie) {
		status := http.StatusUnauthorized
		switch ie.Code {
		case "EMAIL_EXISTS":
			status = http.StatusConflict
		case "WEAK_PASSWORD":
			status = http.StatusBadRequest
		case "TOO_MANY_ATTEMPTS_TRY_LATER":
			status = http.StatusTooManyRequests
		}
		c.JSON(status, gin.H{"error": ie.Message})
		return
	}
	log.Printf("❌ Erreur fournisseur d'identité: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Authentication failed"})
}

func frontendURL() string {
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		return v
	}
	return "http://localhost:5173"
}

func redirectAllowed(redirectURI string) bool {
	allowed := []string{
		"http://localhost:5173",
		"http://localhost:3000",
		"https://medimart.co.za",
		"https://www.medimart.co.za",
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		allowed = append(allowed, v)
	}
	for _, o := range allowed {
		if strings.HasPrefix(redirectURI, o) {
			return true
		}
	}
	return false
}
