package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Language struct {
	Code string
	Name string
}

var SupportedLanguages = []Language{
	{Code: "en-US", Name: "English (US)"},
	{Code: "hi-IN", Name: "Hindi"},
	{Code: "kn-IN", Name: "Kannada"},
}

// LanguageByCode matches either the full tag or its primary subtag.
func LanguageByCode(code string) (Language, bool) {
	code = strings.TrimSpace(code)
	for _, l := range SupportedLanguages {
		if strings.EqualFold(l.Code, code) {
			return l, true
		}
	}
	for _, l := range SupportedLanguages {
		primary, _, _ := strings.Cut(l.Code, "-")
		if strings.EqualFold(primary, code) || strings.EqualFold(l.Name, code) {
			return l, true
		}
	}
	return Language{}, false
}

type EmailRef struct {
	ID      string
	Sender  string
	Subject string
}

// Context is the mailbox snapshot handed to the model with every request.
type Context struct {
	Folder   string
	Emails   []EmailRef
	Selected *EmailRef
	Language Language
}

type FunctionCall struct {
	Name string
	Args map[string]any
}

func (fc FunctionCall) String(key string) string {
	switch v := fc.Args[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int reads a whole number argument. Models send numbers as float64 or as
// digits in a string.
func (fc FunctionCall) Int(key string) (int, bool) {
	switch v := fc.Args[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	}
	return 0, false
}

type Resolution struct {
	Calls []FunctionCall
	Text  string
}

type Resolver interface {
	Resolve(ctx context.Context, utterance string, c Context) (Resolution, error)
}
