// Package session хранит сессию оператора консоли: токен, имя и роль.
// Сессия передаётся явно тем компонентам, которым она нужна.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mmeshcher/labelprint/internal/model"
)

// DefaultTTL задаёт срок жизни сохранённой сессии.
const DefaultTTL = 7 * 24 * time.Hour

// ErrNoSession возвращается, если сессии нет или она истекла.
var ErrNoSession = errors.New("no active session")

// Session описывает аутентифицированного пользователя консоли.
type Session struct {
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Role      model.Role `json:"role"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// IsElevated сообщает, есть ли у сессии права администратора. nil-сессия прав не имеет.
func (s *Session) IsElevated() bool {
	return s != nil && s.Role.IsElevated()
}

// DisplayName возвращает имя пользователя или пустую строку для nil-сессии.
func (s *Session) DisplayName() string {
	if s == nil {
		return ""
	}
	return s.Name
}

// Expired сообщает, истёк ли срок жизни сессии.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}

// FileStore сохраняет сессию в JSON-файле с правами 0600.
type FileStore struct {
	path string
	ttl  time.Duration
	now  func() time.Time
}

// NewFileStore создаёт хранилище сессии по указанному пути.
func NewFileStore(path string, ttl time.Duration) *FileStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FileStore{path: path, ttl: ttl, now: time.Now}
}

// Save сохраняет сессию и проставляет срок её жизни.
func (f *FileStore) Save(s *Session) error {
	if s == nil || s.Token == "" {
		return errors.New("session token is empty")
	}
	cp := *s
	cp.ExpiresAt = f.now().Add(f.ttl)

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace session: %w", err)
	}

	*s = cp
	return nil
}

// Load читает сессию. Истёкшая сессия удаляется, возвращается ErrNoSession.
func (f *FileStore) Load() (*Session, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	if s.Token == "" || s.Expired(f.now()) {
		_ = f.Clear()
		return nil, ErrNoSession
	}

	return &s, nil
}

// Clear удаляет сохранённую сессию. Отсутствие файла ошибкой не считается.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
