package cart

import (
	"context"
	"sync"
)

// Manager possède les sessions panier actives, une par session client.
// L'identifiant de session est l'uid pour un utilisateur connecté, un
// identifiant anonyme (cookie) sinon.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	remote RemoteStore
	local  LocalStore

	// NotifyFactory fabrique le callback d'affichage d'une nouvelle session
	// (publication Redis → WebSocket en production). Optionnel.
	NotifyFactory func(sessionID string) Notifier
}

func NewManager(remote RemoteStore, local LocalStore) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		remote:   remote,
		local:    local,
	}
}

// Session retourne la session panier pour cet identifiant, créée au besoin.
func (m *Manager) Session(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := &Session{
		id:     id,
		remote: m.remote,
		local:  m.local,
	}
	if m.NotifyFactory != nil {
		s.notify = m.NotifyFactory(id)
	}
	m.sessions[id] = s
	return s
}

// OnSessionChange relaie un événement d'identité vers la session concernée.
func (m *Manager) OnSessionChange(ctx context.Context, sessionID string, info SessionInfo) {
	m.Session(sessionID).OnSessionChange(ctx, info)
}

// Teardown vide et détruit une session (déconnexion ou expiration client).
// Le cache de rendu local est purgé, le document distant reste intact.
func (m *Manager) Teardown(ctx context.Context, sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	s.OnSessionChange(ctx, SessionInfo{SignedIn: false})
	s.Flush()
	_ = m.local.Del(ctx, renderKey(sessionID))
}
