package registry

import "sync"

// Memory is the in-process Registry. All state lives in two maps guarded
// by a single RWMutex, so every operation is atomic with respect to the
// others and a reader can never observe a user with zero connections.
type Memory struct {
	mu    sync.RWMutex
	conns map[string]string              // connection id -> user id
	users map[string]map[string]struct{} // user id -> connection ids
}

func NewMemory() *Memory {
	return &Memory{
		conns: make(map[string]string),
		users: make(map[string]map[string]struct{}),
	}
}

func (m *Memory) Register(connID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conns[connID]; ok {
		return
	}
	m.conns[connID] = userID
	if m.users[userID] == nil {
		m.users[userID] = make(map[string]struct{})
	}
	m.users[userID][connID] = struct{}{}
}

func (m *Memory) Unregister(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID, ok := m.conns[connID]
	if !ok {
		return
	}
	delete(m.conns, connID)

	conns := m.users[userID]
	delete(conns, connID)
	if len(conns) == 0 {
		delete(m.users, userID)
	}
}

func (m *Memory) IsOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users[userID]) > 0
}

func (m *Memory) OnlineUsers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]string, 0, len(m.users))
	for userID := range m.users {
		users = append(users, userID)
	}
	return users
}
