package nlu

const (
	FnOpenFolder       = "open_folder"
	FnStartCompose     = "start_interactive_composition"
	FnSelectEmail      = "select_email"
	FnReadEmailByIndex = "read_email_by_index"
	FnStopReading      = "stop_reading"
	FnDeleteSelected   = "delete_selected_email"
	FnMarkSpam         = "mark_selected_as_spam"
	FnChangeLanguage   = "change_language"
	FnLogout           = "logout"
)

type paramKind int

const (
	kindString paramKind = iota
	kindNumber
)

type param struct {
	Name        string
	Kind        paramKind
	Description string
	Enum        []string
}

// tool is a backend-neutral function declaration.
type tool struct {
	Name        string
	Description string
	Params      []param
}

func (t tool) required() []string {
	names := make([]string, 0, len(t.Params))
	for _, p := range t.Params {
		names = append(names, p.Name)
	}
	return names
}

func languageCodes() []string {
	codes := make([]string, 0, len(SupportedLanguages))
	for _, l := range SupportedLanguages {
		codes = append(codes, l.Code)
	}
	return codes
}

var tools = []tool{
	{
		Name:        FnOpenFolder,
		Description: "Opens a specific email folder (Inbox, Sent, Spam, Trash).",
		Params: []param{{
			Name: "folder_name",
			Kind: kindString,
			Enum: []string{"Inbox", "Sent", "Spam", "Trash"},
		}},
	},
	{
		Name:        FnStartCompose,
		Description: "Starts a step-by-step conversational process to compose a new email.",
	},
	{
		Name:        FnSelectEmail,
		Description: "Selects an email from the list. The user must provide the ID.",
		Params:      []param{{Name: "email_id", Kind: kindString}},
	},
	{
		Name:        FnReadEmailByIndex,
		Description: "Reads the content of a specific email from the current list aloud, based on its position (e.g., 1 for the first, 2 for the second).",
		Params: []param{{
			Name:        "index",
			Kind:        kindNumber,
			Description: "The 1-based index of the email in the list.",
		}},
	},
	{
		Name:        FnStopReading,
		Description: "Immediately stops the assistant from speaking the current message.",
	},
	{
		Name:        FnDeleteSelected,
		Description: "Deletes the currently selected email.",
	},
	{
		Name:        FnMarkSpam,
		Description: "Moves the currently selected email to Spam.",
	},
	{
		Name:        FnChangeLanguage,
		Description: "Changes the language the assistant listens and responds in.",
		Params: []param{{
			Name: "language_code",
			Kind: kindString,
			Enum: languageCodes(),
		}},
	},
	{
		Name:        FnLogout,
		Description: "Logs the user out of the application.",
	},
}
