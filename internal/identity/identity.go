package identity

import "context"

// Service est le fournisseur d'identité vu comme une boîte noire : Firebase
// Auth en production, un mode local (Firestore + argon2) en développement.
type Service interface {
	// SignIn vérifie les identifiants et retourne l'uid du compte.
	SignIn(ctx context.Context, email, password string) (string, error)
	// SignUp crée le compte et retourne son uid.
	SignUp(ctx context.Context, email, password string) (string, error)
	// SendPasswordReset déclenche l'e-mail de réinitialisation.
	SendPasswordReset(ctx context.Context, email string) error
}

// Error est une erreur du fournisseur avec un message lisible pour
// l'utilisateur. Code garde le code brut du fournisseur pour les logs.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// friendlyMessage traduit les codes du fournisseur en messages utilisateur,
// sans jamais exposer de détail interne.
func friendlyMessage(code string) string {
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return "Invalid email or password"
	case "EMAIL_EXISTS":
		return "An account with this email already exists"
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return "Too many attempts, please try again later"
	case "WEAK_PASSWORD":
		return "Password should be at least 6 characters"
	default:
		return "Authentication failed"
	}
}
