package cart

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"medimart_back_end/internal/models"
)

// RemoteStore est le magasin de documents distant qui porte le panier durable
// d'un utilisateur connecté (Firestore en production, fake dans les tests).
type RemoteStore interface {
	// FetchCart retourne (items, exists, err). exists=false si le document
	// utilisateur n'existe pas ou n'a pas de champ cart.
	FetchCart(ctx context.Context, userID string) ([]models.CartItem, bool, error)
	// SaveCart remplace intégralement le champ cart du document utilisateur.
	SaveCart(ctx context.Context, userID string, items []models.CartItem) error
}

// LocalStore est le stockage persistant local côté session : cache de rendu
// du dernier panier connu, survit aux rechargements de page.
type LocalStore interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

// SessionInfo est l'événement de transition de session rapporté par le
// service d'identité. UserID est vide pour un visiteur anonyme.
type SessionInfo struct {
	SignedIn bool
	UserID   string
}

// Snapshot est l'état du panier poussé vers l'affichage après chaque mutation.
type Snapshot struct {
	Items        []models.CartItem `json:"items"`
	Count        int               `json:"count"`
	Total        float64           `json:"total"`
	Confirmation string            `json:"confirmation,omitempty"`
}

// Notifier est le callback d'affichage (WebSocket en production).
type Notifier func(Snapshot)

const (
	remoteWriteAttempts = 3
	remoteWriteTimeout  = 5 * time.Second
	remoteRetryDelay    = 250 * time.Millisecond
)

// Session détient le panier en mémoire d'un visiteur et le garde cohérent
// avec le magasin qui fait autorité : le document distant pour un utilisateur
// connecté, le stockage local sinon. Une Session appartient au Manager et
// vit le temps de la session client, jamais en variable globale.
type Session struct {
	id string // identifiant de session client, stable à travers login/logout

	mu     sync.Mutex
	userID string // uid connecté, "" si anonyme
	items  []models.CartItem
	seq    uint64 // séquence de la dernière écriture distante émise

	remote RemoteStore
	local  LocalStore
	notify Notifier

	pending sync.WaitGroup // écritures distantes en vol
}

// renderKey est la clé du cache de rendu dans le stockage local.
func renderKey(sessionID string) string {
	return "cart:render:" + sessionID
}

// SetNotify branche le callback d'affichage. nil le débranche.
func (s *Session) SetNotify(fn Notifier) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// UserID retourne l'uid courant ("" si anonyme).
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Items retourne une copie du panier courant.
func (s *Session) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// OnSessionChange traite une transition de session du service d'identité.
// Connexion : le panier distant remplace intégralement le panier en mémoire
// (jamais de fusion avec le panier anonyme). Déconnexion : panier vide.
// Un rafraîchissement de jeton avec le même uid est un no-op.
func (s *Session) OnSessionChange(ctx context.Context, info SessionInfo) {
	s.mu.Lock()

	if info.SignedIn && info.UserID == s.userID {
		s.mu.Unlock()
		return
	}

	if !info.SignedIn {
		s.userID = ""
		s.items = nil
		s.seq++ // invalide les écritures distantes encore en vol
		snap := s.snapshotLocked("")
		s.mu.Unlock()
		s.propagate(ctx, snap)
		return
	}

	s.userID = info.UserID
	s.seq++
	s.mu.Unlock()

	items, exists, err := s.remote.FetchCart(ctx, info.UserID)
	if err != nil {
		// Lecture échouée → panier vide par défaut, jamais fatal
		log.Printf("⚠️ Lecture panier distant échouée pour %s: %v", info.UserID, err)
		items, exists = nil, false
	}
	if !exists {
		items = nil
	}

	s.mu.Lock()
	if s.userID != info.UserID {
		// La session a encore changé pendant la lecture
		s.mu.Unlock()
		return
	}
	s.items = cloneItems(items)
	snap := s.snapshotLocked("")
	s.mu.Unlock()

	s.propagate(ctx, snap)
}

// AddItem ajoute un produit au panier. Un produit déjà présent voit sa
// quantité incrémentée, jamais de ligne dupliquée.
func (s *Session) AddItem(ctx context.Context, product models.Product) {
	s.mu.Lock()
	found := false
	for i := range s.items {
		if s.items[i].ID == product.ID {
			s.items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		s.items = append(s.items, models.CartItem{
			ID:       product.ID,
			Name:     product.Name,
			Price:    product.Price,
			Image:    product.Image,
			Quantity: 1,
		})
	}
	s.persistLocked(ctx, product.Name+" added to cart!")
}

// RemoveItem retire complètement une ligne du panier. No-op si absente.
func (s *Session) RemoveItem(ctx context.Context, productID int) {
	s.mu.Lock()
	newItems := s.items[:0]
	for _, item := range s.items {
		if item.ID != productID {
			newItems = append(newItems, item)
		}
	}
	s.items = newItems
	s.persistLocked(ctx, "")
}

// ChangeQuantity ajoute delta à la quantité d'une ligne. Si la quantité
// retombe à zéro ou moins, la ligne est supprimée — jamais de quantité
// non positive persistée. No-op si la ligne n'existe pas.
func (s *Session) ChangeQuantity(ctx context.Context, productID, delta int) {
	s.mu.Lock()
	found := false
	for i := range s.items {
		if s.items[i].ID == productID {
			s.items[i].Quantity += delta
			if s.items[i].Quantity <= 0 {
				s.items = append(s.items[:i], s.items[i+1:]...)
			}
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return
	}
	s.persistLocked(ctx, "")
}

// Clear vide le panier et persiste l'état vide (fin de commande).
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.persistLocked(ctx, "")
}

// persistLocked prend le verrou en entrée et le rend avant de propager.
// Ordre garanti : cache local et affichage sont mis à jour de façon synchrone
// avant toute tentative d'écriture distante — l'UI n'attend jamais le réseau.
func (s *Session) persistLocked(ctx context.Context, confirmation string) {
	snap := s.snapshotLocked(confirmation)
	uid := s.userID
	var seq uint64
	if uid != "" {
		s.seq++
		seq = s.seq
	}
	items := cloneItems(s.items)
	s.mu.Unlock()

	s.propagate(ctx, snap)

	if uid == "" {
		return
	}
	s.pending.Add(1)
	go s.writeRemote(seq, uid, items)
}

// propagate écrit le cache de rendu local puis invoque le callback d'affichage.
func (s *Session) propagate(ctx context.Context, snap Snapshot) {
	data, err := json.Marshal(snap.Items)
	if err == nil {
		if err := s.local.Set(ctx, renderKey(s.id), string(data)); err != nil {
			log.Printf("⚠️ Écriture cache panier local échouée (%s): %v", s.id, err)
		}
	}

	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()
	if notify != nil {
		notify(snap)
	}
}

// writeRemote pousse le panier entier vers le document utilisateur, avec
// relance bornée. Garde de séquence monotone : une écriture remplacée par une
// mutation plus récente est abandonnée plutôt que d'écraser un état plus neuf.
// En cas d'échec définitif l'état local n'est pas annulé, on journalise.
func (s *Session) writeRemote(seq uint64, uid string, items []models.CartItem) {
	defer s.pending.Done()

	for attempt := 1; ; attempt++ {
		s.mu.Lock()
		superseded := seq != s.seq || uid != s.userID
		s.mu.Unlock()
		if superseded {
			log.Printf("🔁 Écriture panier remplacée (seq %d), abandon", seq)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
		err := s.remote.SaveCart(ctx, uid, items)
		cancel()
		if err == nil {
			return
		}

		if attempt >= remoteWriteAttempts {
			log.Printf("❌ Écriture panier distant échouée pour %s après %d tentatives: %v", uid, attempt, err)
			return
		}
		time.Sleep(time.Duration(attempt) * remoteRetryDelay)
	}
}

// Flush attend la fin des écritures distantes en vol (arrêt propre et tests).
func (s *Session) Flush() {
	s.pending.Wait()
}

func (s *Session) snapshotLocked(confirmation string) Snapshot {
	return Snapshot{
		Items:        cloneItems(s.items),
		Count:        models.CartCount(s.items),
		Total:        models.CartTotal(s.items),
		Confirmation: confirmation,
	}
}

func cloneItems(items []models.CartItem) []models.CartItem {
	if len(items) == 0 {
		return []models.CartItem{}
	}
	out := make([]models.CartItem, len(items))
	copy(out, items)
	return out
}
