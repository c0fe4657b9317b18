package telegram

import (
	"sync"

	"github.com/kirillm/candle-bot/internal/domain"
)

// Действия многошаговых диалогов редактора
const (
	actionAddSymbol    = "add_symbol"
	actionEditSymbol   = "edit_symbol"
	actionRemoveSymbol = "remove_symbol"
	actionEditTrading  = "edit_trading"
)

// maxAttempts ограничивает число неверных вводов подряд: после него диалог
// сбрасывается, а не переспрашивает бесконечно
const maxAttempts = 3

// Session — состояние одного многошагового диалога с пользователем
type Session struct {
	ChatID   int64
	Action   string
	Symbol   string
	Param    string
	Step     int
	Attempts int
	Draft    domain.SymbolSettings
}

// SessionManager хранит активные диалоги по chat id
type SessionManager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[int64]*Session)}
}

// Begin открывает новый диалог, затирая предыдущий для этого чата
func (m *SessionManager) Begin(chatID int64, action string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Session{ChatID: chatID, Action: action}
	m.sessions[chatID] = s
	return s
}

// Get возвращает активный диалог чата, если он есть
func (m *SessionManager) Get(chatID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	return s, ok
}

// End завершает диалог чата
func (m *SessionManager) End(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}
