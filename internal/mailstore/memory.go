package mailstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory keeps every mailbox in process. Used for tests and offline runs.
type Memory struct {
	mu        sync.RWMutex
	now       func() time.Time
	emails    map[string]map[string]Email
	profiles  map[string]Profile
	usernames map[string]string

	// FailAdd makes the next writes fail, for exercising error paths.
	FailAdd error
}

func NewMemory() *Memory {
	return &Memory{
		now:       time.Now,
		emails:    make(map[string]map[string]Email),
		profiles:  make(map[string]Profile),
		usernames: make(map[string]string),
	}
}

// WithClock replaces the timestamp source.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) ListEmails(_ context.Context, uid string, folder Folder) ([]Email, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Email
	for _, e := range m.emails[uid] {
		if e.Folder == folder {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (m *Memory) UpdateFolder(_ context.Context, uid, emailID string, folder Folder) error {
	return m.update(uid, emailID, func(e *Email) { e.Folder = folder })
}

func (m *Memory) MarkRead(_ context.Context, uid, emailID string) error {
	return m.update(uid, emailID, func(e *Email) { e.Read = true })
}

func (m *Memory) update(uid, emailID string, fn func(*Email)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.emails[uid][emailID]
	if !ok {
		return fmt.Errorf("email %s: %w", emailID, ErrNotFound)
	}
	fn(&e)
	m.emails[uid][emailID] = e
	return nil
}

func (m *Memory) Send(ctx context.Context, uid string, msg Outgoing) SendResult {
	return send(ctx, m, uid, msg)
}

func (m *Memory) UnreadCount(_ context.Context, uid string, folder Folder) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, e := range m.emails[uid] {
		if e.Folder == folder && !e.Read {
			n++
		}
	}
	return n
}

func (m *Memory) SetupUser(ctx context.Context, p Profile) error {
	username := normalize(p.Username)

	m.mu.Lock()
	if owner, taken := m.usernames[username]; taken && owner != p.UID {
		m.mu.Unlock()
		return fmt.Errorf("username %q already taken", username)
	}
	m.profiles[p.UID] = Profile{UID: p.UID, Email: normalize(p.Email), Username: username}
	if username != "" {
		m.usernames[username] = p.UID
	}
	m.mu.Unlock()

	return m.SeedEmails(ctx, p.UID)
}

func (m *Memory) SeedEmails(ctx context.Context, uid string) error {
	m.mu.RLock()
	existing := len(m.emails[uid])
	recipient := m.profiles[uid].Email
	m.mu.RUnlock()

	if existing > 0 {
		return nil
	}
	for _, e := range seedEmails(recipient) {
		if err := m.add(ctx, uid, e); err != nil {
			return fmt.Errorf("seed emails: %w", err)
		}
	}
	return nil
}

func (m *Memory) add(_ context.Context, uid string, e Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAdd != nil {
		return m.FailAdd
	}
	if m.emails[uid] == nil {
		m.emails[uid] = make(map[string]Email)
	}
	e.ID = uuid.NewString()
	e.Timestamp = m.now()
	m.emails[uid][e.ID] = e
	return nil
}

func (m *Memory) uidByEmail(_ context.Context, email string) (string, error) {
	email = normalize(email)
	if email == "" {
		return "", ErrNotFound
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for uid, p := range m.profiles {
		if p.Email == email {
			return uid, nil
		}
	}
	return "", ErrNotFound
}

func (m *Memory) uidByUsername(_ context.Context, username string) (string, error) {
	username = normalize(username)

	m.mu.RLock()
	defer m.mu.RUnlock()
	uid, ok := m.usernames[username]
	if !ok || username == "" {
		return "", ErrNotFound
	}
	return uid, nil
}
