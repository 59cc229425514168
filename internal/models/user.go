package models

import "time"

// UserAccount est le document Firestore users/{uid}.
// Le champ cart est la projection durable du panier en mémoire.
type UserAccount struct {
	UID          string     `json:"userId" firestore:"-"`
	FirstName    string     `json:"firstName" firestore:"firstName"`
	LastName     string     `json:"lastName" firestore:"lastName"`
	Email        string     `json:"email" firestore:"email"`
	PasswordHash string     `json:"-" firestore:"passwordHash,omitempty"`
	Provider     string     `json:"provider,omitempty" firestore:"provider,omitempty"`
	CreatedAt    time.Time  `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	Cart         []CartItem `json:"cart" firestore:"cart"`
}
