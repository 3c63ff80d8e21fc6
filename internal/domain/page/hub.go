package page

import (
	"sync"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/domain/session"
	"github.com/GriffinCanCode/EcoAssist/backend/internal/shared/id"
)

// Hub indexes live pages by page id and by session id
type Hub struct {
	mu        sync.RWMutex
	pages     map[id.PageID]*Page
	bySession map[string]*Page
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		pages:     make(map[id.PageID]*Page),
		bySession: make(map[string]*Page),
	}
}

// Register adds p and keeps its session index current until p closes
func (h *Hub) Register(p *Page) {
	h.mu.Lock()
	h.pages[p.ID()] = p
	h.mu.Unlock()

	p.ObserveSession(func(s session.Session) {
		if s.Ready() {
			h.bind(s.SessionID, p)
		}
	})
	p.OnClose(h.Remove)

	if s := p.Session(); s.Ready() {
		h.bind(s.SessionID, p)
	}
}

// Remove drops p from every index
func (h *Hub) Remove(p *Page) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.pages, p.ID())
	for sid, owner := range h.bySession {
		if owner == p {
			delete(h.bySession, sid)
		}
	}
}

// Get returns a page by id
func (h *Hub) Get(pageID id.PageID) (*Page, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.pages[pageID]
	return p, ok
}

// BySession returns the page that owns sessionID
func (h *Hub) BySession(sessionID string) (*Page, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.bySession[sessionID]
	return p, ok
}

// Resolve finds a page by session id, falling back to page id
func (h *Hub) Resolve(key string) (*Page, bool) {
	if p, ok := h.BySession(key); ok {
		return p, true
	}
	return h.Get(id.PageID(key))
}

// Len returns the number of live pages
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.pages)
}

// Close closes every page
func (h *Hub) Close() {
	h.mu.RLock()
	pages := make([]*Page, 0, len(h.pages))
	for _, p := range h.pages {
		pages = append(pages, p)
	}
	h.mu.RUnlock()

	for _, p := range pages {
		p.Close()
	}
}

func (h *Hub) bind(sessionID string, p *Page) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, live := h.pages[p.ID()]; live {
		h.bySession[sessionID] = p
	}
}
