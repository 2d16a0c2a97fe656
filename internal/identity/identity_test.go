package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	require.Equal(t, "Ann", User{Name: "Ann", Email: "ann@example.com"}.DisplayName())
	require.Equal(t, "ann@example.com", User{Email: "ann@example.com"}.DisplayName())
	require.Equal(t, "You", User{}.DisplayName())
}

func TestLocal_Logout(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(User{UID: "u1", Name: "Ann"})

	u, err := l.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, "u1", u.UID)

	calls := 0
	l.OnLogout(func() { calls++ })

	require.NoError(t, l.Logout(ctx))
	require.NoError(t, l.Logout(ctx))
	require.Equal(t, 1, calls)

	_, err = l.Current(ctx)
	require.ErrorIs(t, err, ErrSignedOut)
}

func TestLocal_NoUser(t *testing.T) {
	_, err := NewLocal(User{}).Current(context.Background())
	require.ErrorIs(t, err, ErrSignedOut)
}
