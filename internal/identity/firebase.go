package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// FirebaseService parle à Firebase Auth : l'API REST Identity Toolkit pour la
// vérification de mot de passe (le SDK Admin ne sait pas le faire) et le
// client Admin pour la création de comptes et les liens de réinitialisation.
type FirebaseService struct {
	admin   *firebaseauth.Client
	apiKey  string
	baseURL string
	http    *http.Client

	// SendResetMail envoie le lien de réinitialisation généré par le SDK
	// Admin. Branché sur utils.SendResetEmail au démarrage.
	SendResetMail func(to, link string) error
}

func NewFirebaseService(admin *firebaseauth.Client) *FirebaseService {
	baseURL := "https://identitytoolkit.googleapis.com/v1"
	if host := os.Getenv("FIREBASE_AUTH_EMULATOR_HOST"); host != "" {
		// Émulateur Firebase Auth en dev : même API, pas de clé réelle
		baseURL = "http://" + host + "/identitytoolkit.googleapis.com/v1"
	}

	return &FirebaseService{
		admin:   admin,
		apiKey:  os.Getenv("FIREBASE_API_KEY"),
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *FirebaseService) SignIn(ctx context.Context, email, password string) (string, error) {
	body := map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}

	var resp struct {
		LocalID string `json:"localId"`
	}
	if err := f.post(ctx, "accounts:signInWithPassword", body, &resp); err != nil {
		return "", err
	}
	return resp.LocalID, nil
}

func (f *FirebaseService) SignUp(ctx context.Context, email, password string) (string, error) {
	if f.admin != nil {
		params := (&firebaseauth.UserToCreate{}).Email(email).Password(password)
		user, err := f.admin.CreateUser(ctx, params)
		if err != nil {
			log.Println("❌ Création compte Firebase échouée:", err)
			return "", &Error{Code: "CREATE_FAILED", Message: friendlyMessage(extractAdminCode(err))}
		}
		return user.UID, nil
	}

	// Sans SDK Admin (émulateur minimal), on retombe sur l'API REST
	body := map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	var resp struct {
		LocalID string `json:"localId"`
	}
	if err := f.post(ctx, "accounts:signUp", body, &resp); err != nil {
		return "", err
	}
	return resp.LocalID, nil
}

func (f *FirebaseService) SendPasswordReset(ctx context.Context, email string) error {
	if f.admin != nil && f.SendResetMail != nil {
		link, err := f.admin.PasswordResetLink(ctx, email)
		if err != nil {
			log.Println("❌ Génération lien de réinitialisation échouée:", err)
			return &Error{Code: "RESET_FAILED", Message: friendlyMessage(extractAdminCode(err))}
		}
		return f.SendResetMail(email, link)
	}

	body := map[string]interface{}{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}
	return f.post(ctx, "accounts:sendOobCode", body, nil)
}

// post appelle l'Identity Toolkit et convertit sa réponse d'erreur
// {"error":{"message":"CODE"}} en *Error.
func (f *FirebaseService) post(ctx context.Context, endpoint string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s?key=%s", f.baseURL, endpoint, f.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity toolkit injoignable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		code := apiErr.Error.Message
		log.Printf("⚠️ Identity Toolkit %s a répondu %d (%s)", endpoint, resp.StatusCode, code)
		return &Error{Code: code, Message: friendlyMessage(code)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// extractAdminCode tire un code exploitable d'une erreur du SDK Admin.
func extractAdminCode(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "EMAIL_EXISTS"), strings.Contains(msg, "already exists"):
		return "EMAIL_EXISTS"
	case strings.Contains(msg, "WEAK_PASSWORD"), strings.Contains(msg, "password"):
		return "WEAK_PASSWORD"
	default:
		return msg
	}
}
