package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"medimart_back_end/internal/models"
	"medimart_back_end/internal/store"
	"medimart_back_end/internal/utils"
)

// Cache les vérifications de mot de passe réussies pendant 15 min pour
// éviter de refaire argon2 à chaque login.
const verifyCacheTTL = 15 * time.Minute

// LocalService est le mode identité de développement : les comptes vivent
// dans Firestore avec un hash argon2id, aucune dépendance à Firebase Auth.
type LocalService struct {
	users *store.UserStore
	cache *redis.Client
}

func NewLocalService(users *store.UserStore, cache *redis.Client) *LocalService {
	return &LocalService{users: users, cache: cache}
}

func (l *LocalService) SignIn(ctx context.Context, email, password string) (string, error) {
	account, exists, err := l.users.FindByEmail(ctx, email)
	if err != nil {
		log.Println("❌ Recherche compte échouée:", err)
		return "", &Error{Code: "STORE_ERROR", Message: "Authentication failed"}
	}
	if !exists || account.PasswordHash == "" {
		return "", &Error{Code: "EMAIL_NOT_FOUND", Message: friendlyMessage("EMAIL_NOT_FOUND")}
	}

	if l.verifiedFromCache(ctx, email, password) {
		return account.UID, nil
	}

	ok, err := utils.VerifyPassword(password, account.PasswordHash)
	if err != nil || !ok {
		return "", &Error{Code: "INVALID_PASSWORD", Message: friendlyMessage("INVALID_PASSWORD")}
	}

	l.cacheVerification(ctx, email, password)
	return account.UID, nil
}

func (l *LocalService) SignUp(ctx context.Context, email, password string) (string, error) {
	_, exists, err := l.users.FindByEmail(ctx, email)
	if err != nil {
		return "", &Error{Code: "STORE_ERROR", Message: "Authentication failed"}
	}
	if exists {
		return "", &Error{Code: "EMAIL_EXISTS", Message: friendlyMessage("EMAIL_EXISTS")}
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return "", err
	}

	uid := uuid.NewString()
	err = l.users.Create(ctx, uid, models.UserAccount{
		Email:        email,
		PasswordHash: hash,
		Provider:     "local",
		Cart:         []models.CartItem{},
	})
	if err != nil {
		log.Println("❌ Création compte local échouée:", err)
		return "", &Error{Code: "STORE_ERROR", Message: "Authentication failed"}
	}
	return uid, nil
}

func (l *LocalService) SendPasswordReset(ctx context.Context, email string) error {
	// Pas de SMTP exigé en mode local, on journalise seulement
	log.Printf("📧 (mode local) réinitialisation demandée pour %s — aucun e-mail envoyé", email)
	return nil
}

func verifyCacheKey(email, password string) string {
	sum := sha256.Sum256([]byte(password))
	return "auth:" + email + ":" + hex.EncodeToString(sum[:])
}

func (l *LocalService) verifiedFromCache(ctx context.Context, email, password string) bool {
	if l.cache == nil {
		return false
	}
	result, err := l.cache.Get(ctx, verifyCacheKey(email, password)).Result()
	return err == nil && result == "valid"
}

func (l *LocalService) cacheVerification(ctx context.Context, email, password string) {
	if l.cache == nil {
		return
	}
	l.cache.Set(ctx, verifyCacheKey(email, password), "valid", verifyCacheTTL)
}
