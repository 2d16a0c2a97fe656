package identity

import (
	"context"
	"errors"
	"sync"
)

var ErrSignedOut = errors.New("signed out")

type User struct {
	UID      string
	Name     string
	Email    string
	Username string
}

// DisplayName is what goes into the sender field of outgoing mail.
func (u User) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	default:
		return "You"
	}
}

type Provider interface {
	Current(ctx context.Context) (User, error)
	Logout(ctx context.Context) error
}

// Local serves one configured user for the lifetime of the daemon.
type Local struct {
	mu       sync.Mutex
	user     User
	loggedIn bool
	onLogout []func()
}

func NewLocal(u User) *Local {
	return &Local{user: u, loggedIn: u.UID != ""}
}

func (l *Local) Current(_ context.Context) (User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loggedIn {
		return User{}, ErrSignedOut
	}
	return l.user, nil
}

func (l *Local) Logout(_ context.Context) error {
	l.mu.Lock()
	hooks := l.onLogout
	was := l.loggedIn
	l.loggedIn = false
	l.mu.Unlock()

	if was {
		for _, fn := range hooks {
			fn()
		}
	}
	return nil
}

// OnLogout registers fn to run after a successful logout.
func (l *Local) OnLogout(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onLogout = append(l.onLogout, fn)
}
