package compose

import "fmt"

// Draft holds the fields collected so far. The zero value is an empty draft.
type Draft struct {
	Recipient string `json:"recipient,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body,omitempty"`
}

func (d Draft) IsEmpty() bool {
	return d.Recipient == "" && d.Subject == "" && d.Body == ""
}

func (d *Draft) set(f Field, value string) {
	switch f {
	case FieldRecipient:
		d.Recipient = value
	case FieldSubject:
		d.Subject = value
	case FieldBody:
		d.Body = value
	}
}

// Preview renders the draft the way it is shown in the transcript.
func (d Draft) Preview() string {
	return fmt.Sprintf("PREVIEW\nTo: %s\nSubject: %s\n\n%s", d.Recipient, d.Subject, d.Body)
}
