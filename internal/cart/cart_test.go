package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medimart_back_end/internal/models"
)

type fakeRemote struct {
	mu        sync.Mutex
	carts     map[string][]models.CartItem
	exists    map[string]bool
	fetchErr  error
	saveErr   error
	failFirst bool
	calls     int
	saves     [][]models.CartItem
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		carts:  make(map[string][]models.CartItem),
		exists: make(map[string]bool),
	}
}

func (f *fakeRemote) FetchCart(ctx context.Context, userID string) ([]models.CartItem, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, false, f.fetchErr
	}
	items := make([]models.CartItem, len(f.carts[userID]))
	copy(items, f.carts[userID])
	return items, f.exists[userID], nil
}

func (f *fakeRemote) SaveCart(ctx context.Context, userID string, items []models.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failFirst && f.calls == 1 {
		return errors.New("transient store error")
	}
	if f.saveErr != nil {
		return f.saveErr
	}
	saved := make([]models.CartItem, len(items))
	copy(saved, items)
	f.carts[userID] = saved
	f.exists[userID] = true
	f.saves = append(f.saves, saved)
	return nil
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRemote) savedCarts() [][]models.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]models.CartItem, len(f.saves))
	copy(out, f.saves)
	return out
}

type fakeLocal struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{values: make(map[string]string)}
}

func (f *fakeLocal) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeLocal) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key], nil
}

func (f *fakeLocal) Del(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

var (
	panado  = models.Product{ID: 1, Name: "Panado Tablets 1000mg 24s", Price: 49.99, Image: "Products/panado.png"}
	disprin = models.Product{ID: 2, Name: "Disprin Tablets 300mg 24s", Price: 39.99, Image: "Products/disprin.png"}
)

func newTestSession(t *testing.T, remote *fakeRemote, local *fakeLocal) (*Session, *[]Snapshot) {
	t.Helper()
	m := NewManager(remote, local)
	s := m.Session("sess-1")

	var mu sync.Mutex
	snaps := []Snapshot{}
	s.SetNotify(func(snap Snapshot) {
		mu.Lock()
		snaps = append(snaps, snap)
		mu.Unlock()
	})
	return s, &snaps
}

func TestAddItemSameIDNeverDuplicates(t *testing.T) {
	remote := newFakeRemote()
	s, _ := newTestSession(t, remote, newFakeLocal())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.AddItem(ctx, panado)
	}

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].ID)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestAddPanadoTwiceTotalsNinetyNineNinetyEight(t *testing.T) {
	s, snaps := newTestSession(t, newFakeRemote(), newFakeLocal())
	ctx := context.Background()

	s.AddItem(ctx, panado)
	s.AddItem(ctx, panado)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.InDelta(t, 49.99, items[0].Price, 0.0001)

	last := (*snaps)[len(*snaps)-1]
	assert.InDelta(t, 99.98, last.Total, 0.0001)
	assert.Equal(t, 2, last.Count)
	assert.Equal(t, "Panado Tablets 1000mg 24s added to cart!", last.Confirmation)
}

func TestQuantityFloorRemovesLine(t *testing.T) {
	remote := newFakeRemote()
	local := newFakeLocal()
	s, _ := newTestSession(t, remote, local)
	ctx := context.Background()

	s.OnSessionChange(ctx, SessionInfo{SignedIn: true, UserID: "u1"})
	s.AddItem(ctx, panado)
	s.AddItem(ctx, panado)
	s.AddItem(ctx, panado)

	for i := 0; i < 3; i++ {
		s.ChangeQuantity(ctx, panado.ID, -1)
	}
	s.Flush()

	assert.Empty(t, s.Items())

	// Aucun panier persisté, local ou distant, ne contient de quantité <= 0
	for _, saved := range remote.savedCarts() {
		for _, item := range saved {
			assert.GreaterOrEqual(t, item.Quantity, 1)
		}
	}
	cached, err := local.Get(ctx, renderKey("sess-1"))
	require.NoError(t, err)
	assert.Equal(t, "[]", cached)
}

func TestDecrementSingleDisprinEmptiesCart(t *testing.T) {
	s, snaps := newTestSession(t, newFakeRemote(), newFakeLocal())
	ctx := context.Background()

	s.AddItem(ctx, disprin)
	s.ChangeQuantity(ctx, disprin.ID, -1)

	assert.Empty(t, s.Items())
	last := (*snaps)[len(*snaps)-1]
	assert.Zero(t, last.Count)
	assert.InDelta(t, 0.0, last.Total, 0.0001)
}

func TestSignInReplacesAnonymousCart(t *testing.T) {
	remote := newFakeRemote()
	stored := []models.CartItem{{ID: 3, Name: "Vitamin C 1000mg 60 Tablets", Price: 129.99, Quantity: 2}}
	remote.carts["u1"] = stored
	remote.exists["u1"] = true

	s, _ := newTestSession(t, remote, newFakeLocal())
	ctx := context.Background()

	// Panier anonyme non vide avant connexion
	s.AddItem(ctx, panado)
	s.AddItem(ctx, disprin)
	require.Len(t, s.Items(), 2)

	s.OnSessionChange(ctx, SessionInfo{SignedIn: true, UserID: "u1"})

	// Remplacement intégral, le panier anonyme est abandonné
	assert.Equal(t, stored, s.Items())
}

func TestSignInWithoutStoredCartGivesEmpty(t *testing.T) {
	s, _ := newTestSession(t, newFakeRemote(), newFakeLocal())
	ctx := context.Background()

	s.AddItem(ctx, panado)
	s.OnSessionChange(ctx, SessionInfo{SignedIn: true, UserID: "u-new"})

	assert.Empty(t, s.Items())
}

func TestSignOutEmptiesCartAndDisplay(t *testing.T) {
	remote := newFakeRemote()
	remote.carts["u1"] = []models.CartItem{{ID: 1, Name: panado.Name, Price: panado.Price, Quantity: 3}}
	remote.exists["u1"] = true

	s, snaps := newTestSession(t, remote, newFakeLocal())
	ctx := context.Background()

	s.OnSessionChange(ctx, SessionInfo{SignedIn: true, UserID: "u1"})
	require.NotEmpty(t, s.Items())

	s.OnSessionChange(ctx, SessionInfo{SignedIn: false})

	assert.Empty(t, s.Items())
	assert.Empty(t, s.UserID())
	last := (*snaps)[len(*snaps)-1]
	assert.Zero(t, last.Count)
	assert.InDelta(t, 0.0, last.Total, 0.0001)
}

func TestTokenRefreshSameUserIsNoop(t *testing.T) {
	remote := newFakeRemote()
	s, snaps := newTestSession(t, remote, newFakeLocal())
	ctx := context.Background()

	s.OnSessionChange(ctx, SessionInfo{SignedIn: true, UserID: "u1"})
	s.AddItem(ctx, panado)
	s.Flush()
	before := len(*snaps)

	s.OnSessionChange(ctx, SessionInfo{SignedIn: true, UserID: "u1"})

	assert.Len(t, *snaps, before, "un refresh de jeton ne doit rien repropager")
	require.Len(t, s.Items(), 1)
	assert.Equal(t, 1, s.Items()[0].Quantity)
}

func TestFetchFailureFallsBackToEmptyCart(t *testing.T) {
	remote := newFakeRemote()
	remote.fetchErr = errors.New("permission denied")

	s, snaps := newTestSession(t, remote, newFakeLocal())
	ctx := context.Background()

	s.AddItem(ctx, panado)
	s.OnSessionChange(ctx, SessionInfo{SignedIn: true, UserID: "u1"})

	assert.Empty(t, s.Items())
	last := (*snaps)[len(*snaps)-1]
	assert.Zero(t, last.Count)
}

func TestRemoteWriteFailureKeepsLocalState(t *testing.T) {
	remote := newFakeRemote()
	remote.saveErr = errors.New("network down")
	local := newFakeLocal()

	s, _ := newTestSession(t, remote, local)
	ctx := context.Background()

	s.OnSessionChange(ctx, SessionInfo{SignedIn: true, UserID: "u1"})
	s.AddItem(ctx, panado)
	s.Flush()

	// Pas de rollback : l'état en mémoire et le cache local sont conservés
	require.Len(t, s.Items(), 1)
	cached, err := local.Get(ctx, renderKey("sess-1"))
	require.NoError(t, err)
	assert.Contains(t, cached, "Panado")
	assert.Empty(t, remote.savedCarts())
}

func TestSupersededRemoteWriteIsDiscarded(t *testing.T) {
	remote := newFakeRemote()
	remote.failFirst = true // la première écriture (seq N) échoue et devra relancer

	s, _ := newTestSession(t, remote, newFakeLocal())
	ctx := context.Background()

	s.OnSessionChange(ctx, SessionInfo{SignedIn: true, UserID: "u1"})
	s.AddItem(ctx, panado) // seq N, première tentative échoue puis attend sa relance
	require.Eventually(t, func() bool { return remote.callCount() == 1 }, time.Second, 2*time.Millisecond)
	s.ChangeQuantity(ctx, panado.ID, 1) // seq N+1, remplace la précédente
	s.Flush()

	// La relance de seq N doit être abandonnée : seule la version la plus
	// récente du panier atteint le magasin distant.
	saves := remote.savedCarts()
	require.Len(t, saves, 1)
	require.Len(t, saves[0], 1)
	assert.Equal(t, 2, saves[0][0].Quantity)
}

func TestAnonymousMutationsNeverTouchRemote(t *testing.T) {
	remote := newFakeRemote()
	s, _ := newTestSession(t, remote, newFakeLocal())
	ctx := context.Background()

	s.AddItem(ctx, panado)
	s.RemoveItem(ctx, panado.ID)
	s.Flush()

	assert.Zero(t, remote.calls)
}

func TestChangeQuantityAbsentIsNoop(t *testing.T) {
	s, snaps := newTestSession(t, newFakeRemote(), newFakeLocal())
	ctx := context.Background()

	s.AddItem(ctx, panado)
	before := len(*snaps)

	s.ChangeQuantity(ctx, 999, -1)

	assert.Len(t, *snaps, before)
	assert.Len(t, s.Items(), 1)
}

func TestManagerReusesAndTearsDownSessions(t *testing.T) {
	remote := newFakeRemote()
	local := newFakeLocal()
	m := NewManager(remote, local)
	ctx := context.Background()

	s := m.Session("visitor-7")
	assert.Same(t, s, m.Session("visitor-7"))

	s.AddItem(ctx, panado)
	cached, _ := local.Get(ctx, renderKey("visitor-7"))
	require.NotEmpty(t, cached)

	m.Teardown(ctx, "visitor-7")

	cached, _ = local.Get(ctx, renderKey("visitor-7"))
	assert.Empty(t, cached)
	assert.NotSame(t, s, m.Session("visitor-7"))
}

func TestManagerNotifyFactoryWiresNewSessions(t *testing.T) {
	m := NewManager(newFakeRemote(), newFakeLocal())

	got := make(chan Snapshot, 1)
	m.NotifyFactory = func(sessionID string) Notifier {
		return func(snap Snapshot) {
			select {
			case got <- snap:
			default:
			}
		}
	}

	m.Session("visitor-1").AddItem(context.Background(), panado)

	select {
	case snap := <-got:
		assert.Equal(t, 1, snap.Count)
	case <-time.After(time.Second):
		t.Fatal("callback d'affichage jamais invoqué")
	}
}
