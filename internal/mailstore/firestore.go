package mailstore

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore stores mail under users/{uid}/emails and keeps usernames/{name}
// as the uniqueness index for usernames.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(ctx context.Context, projectID string) (*Firestore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Firestore{client: client}, nil
}

func (s *Firestore) Close() error {
	return s.client.Close()
}

func (s *Firestore) usersCol() *firestore.CollectionRef {
	return s.client.Collection("users")
}

func (s *Firestore) usernamesCol() *firestore.CollectionRef {
	return s.client.Collection("usernames")
}

func (s *Firestore) emailsCol(uid string) *firestore.CollectionRef {
	return s.usersCol().Doc(uid).Collection("emails")
}

type emailDoc struct {
	ThreadID    string    `firestore:"threadId"`
	Sender      string    `firestore:"sender"`
	SenderEmail string    `firestore:"senderEmail"`
	Recipient   string    `firestore:"recipient"`
	Subject     string    `firestore:"subject"`
	Body        string    `firestore:"body"`
	Read        bool      `firestore:"read"`
	Folder      string    `firestore:"folder"`
	Timestamp   time.Time `firestore:"timestamp,serverTimestamp"`
}

type userDoc struct {
	UID       string    `firestore:"uid"`
	Email     string    `firestore:"email"`
	Username  string    `firestore:"username"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}

func (s *Firestore) ListEmails(ctx context.Context, uid string, folder Folder) ([]Email, error) {
	iter := s.emailsCol(uid).Where("folder", "==", string(folder)).Documents(ctx)
	defer iter.Stop()

	var out []Email
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListEmails: %w", err)
		}

		var doc emailDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode emailDoc: %w", err)
		}

		out = append(out, Email{
			ID:          snap.Ref.ID,
			ThreadID:    doc.ThreadID,
			Sender:      doc.Sender,
			SenderEmail: doc.SenderEmail,
			Recipient:   doc.Recipient,
			Subject:     doc.Subject,
			Body:        doc.Body,
			Timestamp:   doc.Timestamp,
			Read:        doc.Read,
			Folder:      Folder(doc.Folder),
		})
	}

	// sorted client side so no composite index on (folder, timestamp) is needed
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (s *Firestore) UpdateFolder(ctx context.Context, uid, emailID string, folder Folder) error {
	return s.update(ctx, uid, emailID, firestore.Update{Path: "folder", Value: string(folder)})
}

func (s *Firestore) MarkRead(ctx context.Context, uid, emailID string) error {
	return s.update(ctx, uid, emailID, firestore.Update{Path: "read", Value: true})
}

func (s *Firestore) update(ctx context.Context, uid, emailID string, u firestore.Update) error {
	_, err := s.emailsCol(uid).Doc(emailID).Update(ctx, []firestore.Update{u})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("email %s: %w", emailID, ErrNotFound)
		}
		return fmt.Errorf("firestore update %s: %w", u.Path, err)
	}
	return nil
}

func (s *Firestore) Send(ctx context.Context, uid string, msg Outgoing) SendResult {
	res := send(ctx, s, uid, msg)
	if !res.Success {
		log.Warn("Send did not complete", "uid", uid, "recipient", msg.Recipient, "message", res.Message)
	}
	return res
}

func (s *Firestore) UnreadCount(ctx context.Context, uid string, folder Folder) int {
	// needs a composite index on (folder, read)
	snaps, err := s.emailsCol(uid).
		Where("folder", "==", string(folder)).
		Where("read", "==", false).
		Documents(ctx).GetAll()
	if err != nil {
		log.Error("Failed to count unread", "uid", uid, "folder", folder, "err", err)
		return 0
	}
	return len(snaps)
}

func (s *Firestore) SetupUser(ctx context.Context, p Profile) error {
	username := normalize(p.Username)
	userRef := s.usersCol().Doc(p.UID)
	nameRef := s.usernamesCol().Doc(username)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(nameRef)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil && snap.Exists() {
			if owner, _ := snap.DataAt("uid"); owner != p.UID {
				return fmt.Errorf("username %q already taken", username)
			}
		}

		if err := tx.Set(userRef, userDoc{
			UID:      p.UID,
			Email:    normalize(p.Email),
			Username: username,
		}); err != nil {
			return err
		}
		return tx.Set(nameRef, map[string]interface{}{"uid": p.UID})
	})
	if err != nil {
		return fmt.Errorf("firestore SetupUser: %w", err)
	}

	return s.SeedEmails(ctx, p.UID)
}

func (s *Firestore) SeedEmails(ctx context.Context, uid string) error {
	iter := s.emailsCol(uid).Limit(1).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == nil {
		return nil
	}
	if err != iterator.Done {
		return fmt.Errorf("firestore SeedEmails: %w", err)
	}

	recipient := ""
	if snap, err := s.usersCol().Doc(uid).Get(ctx); err == nil {
		if v, err := snap.DataAt("email"); err == nil {
			recipient, _ = v.(string)
		}
	}

	log.Info("Seeding emails for new user", "uid", uid)
	for _, e := range seedEmails(recipient) {
		if err := s.add(ctx, uid, e); err != nil {
			return fmt.Errorf("firestore SeedEmails: %w", err)
		}
	}
	return nil
}

func (s *Firestore) add(ctx context.Context, uid string, e Email) error {
	_, _, err := s.emailsCol(uid).Add(ctx, emailDoc{
		ThreadID:    e.ThreadID,
		Sender:      e.Sender,
		SenderEmail: e.SenderEmail,
		Recipient:   e.Recipient,
		Subject:     e.Subject,
		Body:        e.Body,
		Read:        e.Read,
		Folder:      string(e.Folder),
	})
	if err != nil {
		return fmt.Errorf("firestore add email: %w", err)
	}
	return nil
}

func (s *Firestore) uidByEmail(ctx context.Context, email string) (string, error) {
	email = normalize(email)
	if email == "" {
		return "", ErrNotFound
	}

	iter := s.usersCol().Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("firestore lookup email: %w", err)
	}
	return snap.Ref.ID, nil
}

func (s *Firestore) uidByUsername(ctx context.Context, username string) (string, error) {
	username = normalize(username)
	if username == "" {
		return "", ErrNotFound
	}

	snap, err := s.usernamesCol().Doc(username).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("firestore lookup username: %w", err)
	}

	uid, _ := snap.Data()["uid"].(string)
	if uid == "" {
		return "", ErrNotFound
	}
	return uid, nil
}
