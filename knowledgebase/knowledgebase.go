// Package knowledgebase manages the admin-curated knowledge documents that
// feed the assistant: metadata and raw content live in the object store, and
// submission pushes a copy to the assistant service for indexing.
package knowledgebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paragondesignz/spachat/assistant"
	"github.com/paragondesignz/spachat/storage"
)

const (
	basePrefix       = "knowledgebase/items/"
	metadataFileName = "metadata.json"
)

// ErrSubmissionFailed is returned when the assistant rejects an upload. The
// item is left in StatusError with the failure recorded.
var ErrSubmissionFailed = errors.New("knowledge base submission failed")

// ItemType distinguishes uploaded documents from inline text entries.
type ItemType string

const (
	TypeUpload ItemType = "upload"
	TypeText   ItemType = "text"
)

// ItemStatus is the submission lifecycle state of an item.
type ItemStatus string

const (
	StatusDraft     ItemStatus = "draft"
	StatusSubmitted ItemStatus = "submitted"
	StatusError     ItemStatus = "error"
)

// Item is the metadata record for one knowledge base entry.
type Item struct {
	ID               string     `json:"id"`
	Type             ItemType   `json:"type"`
	Title            string     `json:"title"`
	OriginalFileName string     `json:"original_file_name"`
	StoredFileName   string     `json:"stored_file_name"`
	FilePath         string     `json:"file_path"`
	ContentType      string     `json:"content_type"`
	Size             int64      `json:"size"`
	Status           ItemStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`

	AssistantFileID     string `json:"assistant_file_id,omitempty"`
	AssistantFileName   string `json:"assistant_file_name,omitempty"`
	AssistantFileStatus string `json:"assistant_file_status,omitempty"`
	LastSubmissionError string `json:"last_submission_error,omitempty"`
	Notes               string `json:"notes,omitempty"`
}

// Submitted reports whether the item has an indexed copy at the assistant.
func (i *Item) Submitted() bool {
	return i.Status == StatusSubmitted && i.AssistantFileID != ""
}

// AssistantService is the slice of the assistant client the store needs.
type AssistantService interface {
	UploadFile(ctx context.Context, name string, content []byte, contentType string) (*assistant.File, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Type   ItemType
	Status ItemStatus
}

// Store persists knowledge base items on an ObjectStore and submits them to
// the assistant.
type Store struct {
	objects   storage.ObjectStore
	assistant AssistantService
	now       func() time.Time
}

// NewStore creates a knowledge base store.
func NewStore(objects storage.ObjectStore, assistantSvc AssistantService) *Store {
	return &Store{
		objects:   objects,
		assistant: assistantSvc,
		now:       time.Now,
	}
}

// SetClock overrides the timestamp source. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func itemPrefix(id string) string {
	return basePrefix + id + "/"
}

func metadataKey(id string) string {
	return itemPrefix(id) + metadataFileName
}

// CreateUploadDraft stores an uploaded document and its metadata as a draft.
func (s *Store) CreateUploadDraft(ctx context.Context, originalFileName string, content []byte, contentType, notes string) (*Item, error) {
	id := uuid.NewString()
	now := s.now().UTC()

	storedFileName := sanitizeFileName(originalFileName)
	if storedFileName == "" {
		storedFileName = "file-" + id
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	filePath := itemPrefix(id) + storedFileName
	if _, err := s.objects.Put(ctx, filePath, content, contentType); err != nil {
		return nil, fmt.Errorf("storing knowledge base document: %w", err)
	}

	title := titleFromFileName(originalFileName)
	if title == "" {
		title = originalFileName
	}
	item := &Item{
		ID:               id,
		Type:             TypeUpload,
		Title:            title,
		OriginalFileName: originalFileName,
		StoredFileName:   storedFileName,
		FilePath:         filePath,
		ContentType:      contentType,
		Size:             int64(len(content)),
		Status:           StatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
		Notes:            notes,
	}
	if err := s.saveMetadata(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// CreateTextDraft stores an inline text entry as a draft.
func (s *Store) CreateTextDraft(ctx context.Context, title, content string) (*Item, error) {
	id := uuid.NewString()
	now := s.now().UTC()

	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled Entry"
	}
	slug := slugifyTitle(title)
	if slug == "" {
		slug = "entry-" + id
	}
	storedFileName := slug + ".md"
	filePath := itemPrefix(id) + storedFileName

	if _, err := s.objects.Put(ctx, filePath, []byte(content), "text/markdown"); err != nil {
		return nil, fmt.Errorf("storing knowledge base text entry: %w", err)
	}

	item := &Item{
		ID:               id,
		Type:             TypeText,
		Title:            title,
		OriginalFileName: storedFileName,
		StoredFileName:   storedFileName,
		FilePath:         filePath,
		ContentType:      "text/markdown",
		Size:             int64(len(content)),
		Status:           StatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.saveMetadata(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Get returns one item's metadata, or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	data, err := s.objects.Get(ctx, metadataKey(id))
	if err != nil {
		return nil, err
	}
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("decoding knowledge base item %q: %w", id, err)
	}
	return &item, nil
}

// Content returns the raw stored document for an item.
func (s *Store) Content(ctx context.Context, id string) ([]byte, *Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.objects.Get(ctx, item.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return data, item, nil
}

// List returns items matching the filter, most recently updated first.
// Undecodable metadata records are skipped.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Item, error) {
	infos, err := s.objects.List(ctx, basePrefix)
	if err != nil {
		return nil, err
	}

	var items []*Item
	for _, info := range infos {
		if !strings.HasSuffix(info.Key, "/"+metadataFileName) {
			continue
		}
		data, err := s.objects.Get(ctx, info.Key)
		if err != nil {
			continue
		}
		var item Item
		if err := json.Unmarshal(data, &item); err != nil {
			continue
		}
		if filter.Type != "" && item.Type != filter.Type {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		items = append(items, &item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	return items, nil
}

// UpdateText replaces the content and title of a text item. A previously
// submitted item reverts to draft and its indexed copy is removed from the
// assistant, best effort.
func (s *Store) UpdateText(ctx context.Context, id, title, content string) (*Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Type != TypeText {
		return nil, fmt.Errorf("item %q is not a text entry", id)
	}

	if _, err := s.objects.Put(ctx, item.FilePath, []byte(content), "text/markdown"); err != nil {
		return nil, fmt.Errorf("storing knowledge base text entry: %w", err)
	}

	if title = strings.TrimSpace(title); title != "" {
		item.Title = title
	}
	item.Size = int64(len(content))
	item.UpdatedAt = s.now().UTC()

	if item.Submitted() {
		s.deleteAssistantFile(ctx, item.AssistantFileID)
		item.Status = StatusDraft
		item.SubmittedAt = nil
		item.AssistantFileID = ""
		item.AssistantFileName = ""
		item.AssistantFileStatus = ""
	}

	if err := s.saveMetadata(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateMetadata applies a mutation to an item's metadata record.
func (s *Store) UpdateMetadata(ctx context.Context, id string, mutate func(*Item)) (*Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	mutate(item)
	item.UpdatedAt = s.now().UTC()
	if err := s.saveMetadata(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes an item's blobs and, best effort, its assistant copy.
func (s *Store) Delete(ctx context.Context, id string) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.AssistantFileID != "" {
		s.deleteAssistantFile(ctx, item.AssistantFileID)
	}

	infos, err := s.objects.List(ctx, itemPrefix(id))
	if err != nil {
		return err
	}
	for _, info := range infos {
		if err := s.objects.Delete(ctx, info.Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("deleting %q: %w", info.Key, err)
		}
	}
	return nil
}

// Submit uploads the item's document to the assistant. Submitting an already
// submitted item is a no-op. A rejected upload moves the item to StatusError
// with the failure recorded and returns ErrSubmissionFailed.
func (s *Store) Submit(ctx context.Context, id string) (*Item, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Submitted() {
		return item, nil
	}

	content, err := s.objects.Get(ctx, item.FilePath)
	if err != nil {
		return nil, fmt.Errorf("loading document for submission: %w", err)
	}

	now := s.now().UTC()
	file, err := s.assistant.UploadFile(ctx, item.StoredFileName, content, item.ContentType)
	if err != nil {
		item.Status = StatusError
		item.LastSubmissionError = err.Error()
		item.UpdatedAt = now
		if saveErr := s.saveMetadata(ctx, item); saveErr != nil {
			return nil, saveErr
		}
		return item, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	item.Status = StatusSubmitted
	item.SubmittedAt = &now
	item.UpdatedAt = now
	item.AssistantFileID = file.ID
	item.AssistantFileName = file.Name
	item.AssistantFileStatus = file.Status
	item.LastSubmissionError = ""
	if err := s.saveMetadata(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) saveMetadata(ctx context.Context, item *Item) error {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding knowledge base item %q: %w", item.ID, err)
	}
	if _, err := s.objects.Put(ctx, metadataKey(item.ID), data, "application/json"); err != nil {
		return fmt.Errorf("storing knowledge base item %q: %w", item.ID, err)
	}
	return nil
}

// deleteAssistantFile is best effort: a file the assistant already dropped is
// not an error, and no other failure here should block the local operation.
func (s *Store) deleteAssistantFile(ctx context.Context, fileID string) {
	if fileID == "" || s.assistant == nil {
		return
	}
	_ = s.assistant.DeleteFile(ctx, fileID)
}
