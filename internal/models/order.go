package models

import "time"

// Order est le reçu généré après un paiement accepté.
// Pas de table commandes pour l'instant : l'objet sert au reçu e-mail et au QR de retrait.
type Order struct {
	Reference  string     `json:"reference"`
	UserID     string     `json:"userId,omitempty"`
	Email      string     `json:"email,omitempty"`
	Items      []CartItem `json:"items"`
	TotalPrice float64    `json:"totalPrice"`
	Currency   string     `json:"currency"`
	CreatedAt  time.Time  `json:"createdAt"`
}
