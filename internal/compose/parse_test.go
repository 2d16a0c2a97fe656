package compose

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRecipient(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"alice at example dot com", "alice@example.com"},
		{"Alice AT Example DOT com", "alice@example.com"},
		{"bob dot smith at mail dot org", "bob.smith@mail.org"},
		{"  carol  ", "carol"},
		{"Carol", "Carol"},
		{"dave@example.com", "dave@example.com"},
		{"atlas", "atlas"},
		{"cat", "cat"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ParseRecipient(tc.in), "in=%q", tc.in)
	}
}

func TestSpokenAddress_Unconditional(t *testing.T) {
	require.Equal(t, "carol", SpokenAddress("Carol"))
	require.Equal(t, "bob@", SpokenAddress("bob at"))
	require.Equal(t, "johnsmith", SpokenAddress("John Smith"))
}
