// Package chatlog persists customer chat transcripts as one JSON object per
// session in the object store. The backing store has no transactions, so
// every update is a read-modify-write of the whole record; writes to the
// same session are serialized through a per-session lock.
package chatlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paragondesignz/spachat/storage"
)

const blobPrefix = "chatlogs/"

// AnonymousUser is the display name recorded for sessions where the visitor
// never gave a name.
const AnonymousUser = "Anonymous"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the two known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single chat message inside a log.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is the full transcript and contact state for one widget session.
type Log struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`

	ContactEmail        string     `json:"contact_email,omitempty"`
	ContactPhone        string     `json:"contact_phone,omitempty"`
	CallbackRequested   bool       `json:"callback_requested,omitempty"`
	CallbackRequestedAt *time.Time `json:"callback_requested_at,omitempty"`
	CallbackNotes       string     `json:"callback_notes,omitempty"`
	Contacted           bool       `json:"contacted,omitempty"`
}

// MessageInput is a message to append, before the store assigns ID and timestamp.
type MessageInput struct {
	Role    Role
	Content string
}

// Store reads and writes chat logs on an ObjectStore.
type Store struct {
	objects storage.ObjectStore
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates a chat log store on top of the given object store.
func NewStore(objects storage.ObjectStore) *Store {
	return &Store{
		objects: objects,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// SetClock overrides the timestamp source. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func logKey(sessionID string) string {
	return blobPrefix + sessionID + ".json"
}

// sessionLock returns the lock serializing writes for one session.
func (s *Store) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

// Get returns the chat log for a session, or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, sessionID string) (*Log, error) {
	data, err := s.objects.Get(ctx, logKey(sessionID))
	if err != nil {
		return nil, err
	}
	var log Log
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("decoding chat log %q: %w", sessionID, err)
	}
	return &log, nil
}

// Upsert creates the chat log for a session if it does not exist, or touches
// its updated_at if it does.
func (s *Store) Upsert(ctx context.Context, sessionID, userName string) (*Log, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return s.getOrCreate(ctx, sessionID, userName, true)
}

// AppendMessages appends messages to a session's log in one write, creating
// the log first if needed. Returns the stored messages with IDs assigned.
func (s *Store) AppendMessages(ctx context.Context, sessionID string, userName string, inputs []MessageInput) ([]Message, error) {
	for _, in := range inputs {
		if !in.Role.Valid() {
			return nil, fmt.Errorf("invalid message role %q", in.Role)
		}
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	log, err := s.getOrCreate(ctx, sessionID, userName, false)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	appended := make([]Message, 0, len(inputs))
	for _, in := range inputs {
		appended = append(appended, Message{
			ID:        uuid.NewString(),
			Role:      in.Role,
			Content:   in.Content,
			CreatedAt: now,
		})
	}
	log.Messages = append(log.Messages, appended...)
	log.UpdatedAt = now

	if err := s.put(ctx, log); err != nil {
		return nil, err
	}
	return appended, nil
}

// RecordCallbackRequest marks a session as wanting a callback and stores the
// submitted contact details.
func (s *Store) RecordCallbackRequest(ctx context.Context, sessionID, email, phone, notes string) (*Log, error) {
	return s.update(ctx, sessionID, func(log *Log) {
		now := s.now().UTC()
		log.ContactEmail = email
		log.ContactPhone = phone
		log.CallbackNotes = notes
		log.CallbackRequested = true
		log.CallbackRequestedAt = &now
	})
}

// SetContacted records whether staff have followed up on a callback request.
func (s *Store) SetContacted(ctx context.Context, sessionID string, contacted bool) (*Log, error) {
	return s.update(ctx, sessionID, func(log *Log) {
		log.Contacted = contacted
	})
}

// Delete removes a session's chat log.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return s.objects.Delete(ctx, logKey(sessionID))
}

// List returns all chat logs, most recently updated first. Logs that fail to
// decode are skipped rather than failing the whole listing; the store is
// eventually consistent and a torn read of one record must not take the
// dashboard down.
func (s *Store) List(ctx context.Context) ([]*Log, error) {
	infos, err := s.objects.List(ctx, blobPrefix)
	if err != nil {
		return nil, err
	}

	logs := make([]*Log, 0, len(infos))
	for _, info := range infos {
		sessionID := strings.TrimSuffix(strings.TrimPrefix(info.Key, blobPrefix), ".json")
		log, err := s.Get(ctx, sessionID)
		if err != nil {
			continue
		}
		logs = append(logs, log)
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].UpdatedAt.After(logs[j].UpdatedAt)
	})
	return logs, nil
}

// Search returns the chat logs whose user name or message content contains
// the query, case-insensitively, most recently updated first.
func (s *Store) Search(ctx context.Context, query string) ([]*Log, error) {
	logs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	matched := logs[:0]
	for _, log := range logs {
		if strings.Contains(strings.ToLower(log.UserName), query) {
			matched = append(matched, log)
			continue
		}
		for _, msg := range log.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				matched = append(matched, log)
				break
			}
		}
	}
	return matched, nil
}

// DeleteMany removes the chat logs for the given sessions and reports how
// many existed. Unknown sessions are skipped.
func (s *Store) DeleteMany(ctx context.Context, sessionIDs []string) (int, error) {
	deleted := 0
	for _, sessionID := range sessionIDs {
		err := s.Delete(ctx, sessionID)
		switch {
		case err == nil:
			deleted++
		case errors.Is(err, storage.ErrNotFound):
		default:
			return deleted, err
		}
	}
	return deleted, nil
}

func (s *Store) update(ctx context.Context, sessionID string, mutate func(*Log)) (*Log, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	log, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	mutate(log)
	log.UpdatedAt = s.now().UTC()
	if err := s.put(ctx, log); err != nil {
		return nil, err
	}
	return log, nil
}

func (s *Store) getOrCreate(ctx context.Context, sessionID, userName string, touch bool) (*Log, error) {
	log, err := s.Get(ctx, sessionID)
	switch {
	case err == nil:
		if touch {
			log.UpdatedAt = s.now().UTC()
			if err := s.put(ctx, log); err != nil {
				return nil, err
			}
		}
		return log, nil
	case errors.Is(err, storage.ErrNotFound):
		now := s.now().UTC()
		if userName == "" {
			userName = AnonymousUser
		}
		log = &Log{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			UserName:  userName,
			CreatedAt: now,
			UpdatedAt: now,
			Messages:  []Message{},
		}
		if err := s.put(ctx, log); err != nil {
			return nil, err
		}
		return log, nil
	default:
		return nil, err
	}
}

func (s *Store) put(ctx context.Context, log *Log) error {
	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encoding chat log %q: %w", log.SessionID, err)
	}
	if _, err := s.objects.Put(ctx, logKey(log.SessionID), data, "application/json"); err != nil {
		return fmt.Errorf("storing chat log %q: %w", log.SessionID, err)
	}
	return nil
}
