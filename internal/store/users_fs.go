package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"medimart_back_end/internal/models"
)

// UserStore lit et écrit les documents users/{uid} dans Firestore.
// Implémente cart.RemoteStore : le champ cart du document utilisateur est la
// seule projection durable du panier.
type UserStore struct {
	client     *firestore.Client
	collection string
}

func NewUserStore(client *firestore.Client) *UserStore {
	return &UserStore{client: client, collection: "users"}
}

// Create écrit le document utilisateur à l'inscription : prénom, nom, email,
// panier vide, createdAt serveur.
func (s *UserStore) Create(ctx context.Context, uid string, account models.UserAccount) error {
	if account.Cart == nil {
		account.Cart = []models.CartItem{}
	}
	_, err := s.client.Collection(s.collection).Doc(uid).Set(ctx, account)
	return err
}

// Get retourne (compte, exists, err).
func (s *UserStore) Get(ctx context.Context, uid string) (*models.UserAccount, bool, error) {
	snap, err := s.client.Collection(s.collection).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var account models.UserAccount
	if err := snap.DataTo(&account); err != nil {
		return nil, false, fmt.Errorf("décodage document utilisateur %s: %w", uid, err)
	}
	account.UID = snap.Ref.ID
	return &account, true, nil
}

// FindByEmail cherche un compte par adresse e-mail (mode identité locale).
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.UserAccount, bool, error) {
	iter := s.client.Collection(s.collection).Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var account models.UserAccount
	if err := snap.DataTo(&account); err != nil {
		return nil, false, err
	}
	account.UID = snap.Ref.ID
	return &account, true, nil
}

// MergeProfile fusionne les champs de profil sans toucher au panier ni au
// mot de passe.
func (s *UserStore) MergeProfile(ctx context.Context, uid string, fields map[string]interface{}) error {
	_, err := s.client.Collection(s.collection).Doc(uid).Set(ctx, fields, firestore.MergeAll)
	return err
}

// FetchCart lit le champ cart du document utilisateur.
func (s *UserStore) FetchCart(ctx context.Context, userID string) ([]models.CartItem, bool, error) {
	account, exists, err := s.Get(ctx, userID)
	if err != nil || !exists {
		return nil, false, err
	}
	if account.Cart == nil {
		return nil, false, nil
	}
	return account.Cart, true, nil
}

// SaveCart remplace intégralement le champ cart — écriture-fusion du seul
// champ, pas de diff.
func (s *UserStore) SaveCart(ctx context.Context, userID string, items []models.CartItem) error {
	if items == nil {
		items = []models.CartItem{}
	}
	_, err := s.client.Collection(s.collection).Doc(userID).Set(ctx, map[string]interface{}{
		"cart": items,
	}, firestore.MergeAll)
	return err
}
