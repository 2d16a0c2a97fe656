package mailstore

func seedEmails(recipient string) []Email {
	if recipient == "" {
		recipient = "you@example.com"
	}
	return []Email{
		{
			ThreadID:    "t1",
			Sender:      "GitHub",
			SenderEmail: "noreply@github.com",
			Recipient:   recipient,
			Subject:     "[voxmail] Your build has passed!",
			Body:        "Your recent commit to the main branch of voxmail has passed all checks. Great job!",
			Folder:      Inbox,
		},
		{
			ThreadID:    "t2",
			Sender:      "Figma",
			SenderEmail: "team@figma.com",
			Recipient:   recipient,
			Subject:     "Updates to our collaboration features",
			Body:        "Hi there, we have some exciting new updates to make collaboration even smoother. Check out our latest blog post to learn more.",
			Folder:      Inbox,
		},
		{
			ThreadID:    "t3",
			Sender:      "Alice",
			SenderEmail: "alice@example.com",
			Recipient:   recipient,
			Subject:     "Lunch on Friday?",
			Body:        "Hey! Are you free for lunch this Friday? I was thinking we could try that new cafe downtown. Let me know!",
			Read:        true,
			Folder:      Inbox,
		},
	}
}
