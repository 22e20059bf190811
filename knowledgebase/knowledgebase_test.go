package knowledgebase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paragondesignz/spachat/assistant"
	"github.com/paragondesignz/spachat/knowledgebase"
	"github.com/paragondesignz/spachat/storage"
	"github.com/paragondesignz/spachat/storage/memory"
)

type fakeAssistant struct {
	uploads   []string
	deleted   []string
	uploadErr error
	nextID    string
}

func (f *fakeAssistant) UploadFile(_ context.Context, name string, _ []byte, _ string) (*assistant.File, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads = append(f.uploads, name)
	id := f.nextID
	if id == "" {
		id = "file-1"
	}
	return &assistant.File{ID: id, Name: name, Status: "Processing"}, nil
}

func (f *fakeAssistant) DeleteFile(_ context.Context, fileID string) error {
	f.deleted = append(f.deleted, fileID)
	return nil
}

func newTestStore(t *testing.T) (*knowledgebase.Store, *memory.Store, *fakeAssistant) {
	t.Helper()
	objects := memory.NewStore()
	fake := &fakeAssistant{}
	return knowledgebase.NewStore(objects, fake), objects, fake
}

func TestCreateUploadDraft(t *testing.T) {
	store, objects, _ := newTestStore(t)
	ctx := t.Context()

	item, err := store.CreateUploadDraft(ctx, "Spa Price List 2026.pdf", []byte("%PDF-1.4"), "application/pdf", "current pricing")
	require.NoError(t, err)

	assert.Equal(t, knowledgebase.TypeUpload, item.Type)
	assert.Equal(t, knowledgebase.StatusDraft, item.Status)
	assert.Equal(t, "Spa Price List 2026", item.Title)
	assert.Equal(t, "Spa-Price-List-2026.pdf", item.StoredFileName)
	assert.Equal(t, int64(8), item.Size)
	assert.Equal(t, "current pricing", item.Notes)

	content, err := objects.Get(ctx, item.FilePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), content)

	got, err := store.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Title, got.Title)
}

func TestCreateTextDraft(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := t.Context()

	item, err := store.CreateTextDraft(ctx, "Opening Hours & Holidays", "Open 9-5 weekdays.")
	require.NoError(t, err)

	assert.Equal(t, knowledgebase.TypeText, item.Type)
	assert.Equal(t, "opening-hours-holidays.md", item.StoredFileName)
	assert.Equal(t, "text/markdown", item.ContentType)

	content, got, err := store.Content(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Open 9-5 weekdays.", string(content))
	assert.Equal(t, item.ID, got.ID)
}

func TestGetMissing(t *testing.T) {
	store, _, _ := newTestStore(t)

	_, err := store.Get(t.Context(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListFilterAndOrder(t *testing.T) {
	store, objects, _ := newTestStore(t)
	ctx := t.Context()

	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	store.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	first, err := store.CreateTextDraft(ctx, "First", "a")
	require.NoError(t, err)
	upload, err := store.CreateUploadDraft(ctx, "menu.pdf", []byte("pdf"), "application/pdf", "")
	require.NoError(t, err)
	second, err := store.CreateTextDraft(ctx, "Second", "b")
	require.NoError(t, err)

	// a stray undecodable metadata record must not break listing
	_, err = objects.Put(ctx, "knowledgebase/items/broken/metadata.json", []byte("{nope"), "application/json")
	require.NoError(t, err)

	all, err := store.List(ctx, knowledgebase.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, upload.ID, all[1].ID)
	assert.Equal(t, first.ID, all[2].ID)

	texts, err := store.List(ctx, knowledgebase.Filter{Type: knowledgebase.TypeText})
	require.NoError(t, err)
	require.Len(t, texts, 2)

	drafts, err := store.List(ctx, knowledgebase.Filter{Status: knowledgebase.StatusDraft})
	require.NoError(t, err)
	assert.Len(t, drafts, 3)
}

func TestSubmit(t *testing.T) {
	store, _, fake := newTestStore(t)
	ctx := t.Context()
	fake.nextID = "asst-42"

	item, err := store.CreateTextDraft(ctx, "Treatments", "Hot stone massage.")
	require.NoError(t, err)

	submitted, err := store.Submit(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, knowledgebase.StatusSubmitted, submitted.Status)
	assert.Equal(t, "asst-42", submitted.AssistantFileID)
	assert.Equal(t, "Processing", submitted.AssistantFileStatus)
	require.NotNil(t, submitted.SubmittedAt)
	assert.Equal(t, []string{"treatments.md"}, fake.uploads)

	// idempotent
	again, err := store.Submit(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, fake.uploads, 1)
	assert.Equal(t, submitted.AssistantFileID, again.AssistantFileID)
}

func TestSubmitFailureRecordsError(t *testing.T) {
	store, _, fake := newTestStore(t)
	ctx := t.Context()
	fake.uploadErr = errors.New("assistant unavailable")

	item, err := store.CreateTextDraft(ctx, "Broken", "x")
	require.NoError(t, err)

	failed, err := store.Submit(ctx, item.ID)
	require.ErrorIs(t, err, knowledgebase.ErrSubmissionFailed)
	require.NotNil(t, failed)
	assert.Equal(t, knowledgebase.StatusError, failed.Status)
	assert.Contains(t, failed.LastSubmissionError, "assistant unavailable")

	// the failure state is persisted
	got, err := store.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, knowledgebase.StatusError, got.Status)

	// a retry after the assistant recovers succeeds and clears the error
	fake.uploadErr = nil
	recovered, err := store.Submit(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, knowledgebase.StatusSubmitted, recovered.Status)
	assert.Empty(t, recovered.LastSubmissionError)
}

func TestUpdateTextRevertsSubmission(t *testing.T) {
	store, _, fake := newTestStore(t)
	ctx := t.Context()
	fake.nextID = "asst-7"

	item, err := store.CreateTextDraft(ctx, "Policies", "Old text.")
	require.NoError(t, err)
	_, err = store.Submit(ctx, item.ID)
	require.NoError(t, err)

	updated, err := store.UpdateText(ctx, item.ID, "Policies v2", "New text.")
	require.NoError(t, err)

	assert.Equal(t, knowledgebase.StatusDraft, updated.Status)
	assert.Equal(t, "Policies v2", updated.Title)
	assert.Empty(t, updated.AssistantFileID)
	assert.Nil(t, updated.SubmittedAt)
	assert.Equal(t, []string{"asst-7"}, fake.deleted)

	content, _, err := store.Content(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "New text.", string(content))
}

func TestUpdateTextRejectsUpload(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := t.Context()

	item, err := store.CreateUploadDraft(ctx, "doc.pdf", []byte("pdf"), "application/pdf", "")
	require.NoError(t, err)

	_, err = store.UpdateText(ctx, item.ID, "nope", "nope")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	store, objects, fake := newTestStore(t)
	ctx := t.Context()
	fake.nextID = "asst-9"

	item, err := store.CreateTextDraft(ctx, "Gone Soon", "bye")
	require.NoError(t, err)
	_, err = store.Submit(ctx, item.ID)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, item.ID))
	assert.Equal(t, []string{"asst-9"}, fake.deleted)

	_, err = store.Get(ctx, item.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	infos, err := objects.List(ctx, "knowledgebase/items/"+item.ID+"/")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestUpdateMetadata(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := t.Context()

	item, err := store.CreateUploadDraft(ctx, "doc.pdf", []byte("pdf"), "application/pdf", "")
	require.NoError(t, err)

	updated, err := store.UpdateMetadata(ctx, item.ID, func(it *knowledgebase.Item) {
		it.Title = "Renamed"
		it.Notes = "reviewed"
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "reviewed", updated.Notes)
}
