package nlu

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLanguageByCode(t *testing.T) {
	l, ok := LanguageByCode("hi-IN")
	require.True(t, ok)
	require.Equal(t, "Hindi", l.Name)

	l, ok = LanguageByCode("kn")
	require.True(t, ok)
	require.Equal(t, "kn-IN", l.Code)

	l, ok = LanguageByCode("english (us)")
	require.True(t, ok)
	require.Equal(t, "en-US", l.Code)

	_, ok = LanguageByCode("fr-FR")
	require.False(t, ok)
}

func TestFunctionCallInt(t *testing.T) {
	cases := []struct {
		arg  any
		want int
		ok   bool
	}{
		{float64(2), 2, true},
		{2.5, 0, false},
		{3, 3, true},
		{json.Number("4"), 4, true},
		{" 5 ", 5, true},
		{"five", 0, false},
		{nil, 0, false},
	}
	for _, tc := range cases {
		got, ok := FunctionCall{Args: map[string]any{"index": tc.arg}}.Int("index")
		require.Equal(t, tc.ok, ok, "arg=%v", tc.arg)
		require.Equal(t, tc.want, got, "arg=%v", tc.arg)
	}
}

func TestFunctionCallString(t *testing.T) {
	fc := FunctionCall{Args: map[string]any{"folder_name": "Inbox", "n": float64(1)}}
	require.Equal(t, "Inbox", fc.String("folder_name"))
	require.Equal(t, "1", fc.String("n"))
	require.Equal(t, "", fc.String("missing"))
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt(Context{
		Folder: "Inbox",
		Emails: []EmailRef{
			{ID: "e1", Sender: "Alice", Subject: "Lunch on Friday?"},
			{ID: "e2", Sender: "GitHub", Subject: "Build passed"},
		},
		Selected: &EmailRef{ID: "e2", Sender: "GitHub"},
		Language: Language{Code: "hi-IN", Name: "Hindi"},
	})

	require.Contains(t, p, `viewing the "Inbox" folder`)
	require.Contains(t, p, "\n - ID: e1, Sender: Alice, Subject: Lunch on Friday?")
	require.Contains(t, p, "selected email is: ID: e2, Sender: GitHub.")
	require.Contains(t, p, "YOU MUST RESPOND IN Hindi.")
}

func TestSystemPrompt_Empty(t *testing.T) {
	p := SystemPrompt(Context{Folder: "Spam"})
	require.Contains(t, p, "No emails are visible.")
	require.Contains(t, p, "selected email is: None.")
	require.Contains(t, p, "RESPOND IN English (US).")
}

func TestDecodeCall(t *testing.T) {
	call, err := decodeCall("read_email_by_index", `{"index": 2}`)
	require.NoError(t, err)
	n, ok := call.Int("index")
	require.True(t, ok)
	require.Equal(t, 2, n)

	call, err = decodeCall("logout", "")
	require.NoError(t, err)
	require.Empty(t, call.Args)

	_, err = decodeCall("open_folder", "{")
	require.Error(t, err)
}

func TestToolDeclarations(t *testing.T) {
	decls := geminiDeclarations()
	require.Len(t, decls, len(tools))

	byName := map[string]int{}
	for i, d := range decls {
		byName[d.Name] = i
	}
	open := decls[byName[FnOpenFolder]]
	require.Equal(t, []string{"folder_name"}, open.Parameters.Required)
	require.Equal(t, []string{"Inbox", "Sent", "Spam", "Trash"}, open.Parameters.Properties["folder_name"].Enum)

	logout := decls[byName[FnLogout]]
	require.Empty(t, logout.Parameters.Required)

	require.Len(t, openaiTools(), len(tools))
}
