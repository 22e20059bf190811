package stats_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paragondesignz/spachat/chatlog"
	"github.com/paragondesignz/spachat/stats"
)

type fakeChats struct {
	logs  []*chatlog.Log
	err   error
	calls int
}

func (f *fakeChats) List(context.Context) ([]*chatlog.Log, error) {
	f.calls++
	return f.logs, f.err
}

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func TestSnapshot(t *testing.T) {
	// 2026-03-14T23:30Z is already 2026-03-15 in Auckland (UTC+13 in March)
	callbackAt := ts(t, "2026-03-14T20:00:00Z")
	chats := &fakeChats{logs: []*chatlog.Log{
		{
			SessionID: "s1",
			UserName:  "Mere",
			CreatedAt: ts(t, "2026-03-14T23:30:00Z"),
			Messages: []chatlog.Message{
				{Role: chatlog.RoleUser, CreatedAt: ts(t, "2026-03-14T23:30:00Z")},
				{Role: chatlog.RoleAssistant, CreatedAt: ts(t, "2026-03-14T23:31:00Z")},
			},
			CallbackRequested:   true,
			CallbackRequestedAt: &callbackAt,
			ContactEmail:        "mere@example.com",
		},
		{
			SessionID: "s2",
			UserName:  "Sam",
			CreatedAt: ts(t, "2026-03-10T02:00:00Z"),
			Messages: []chatlog.Message{
				{Role: chatlog.RoleUser, CreatedAt: ts(t, "2026-03-10T02:00:00Z")},
			},
			CallbackRequested: true,
			Contacted:         true,
		},
		{
			SessionID: "s3",
			UserName:  "Old",
			CreatedAt: ts(t, "2026-01-01T00:00:00Z"),
		},
		{
			SessionID: "s4",
			UserName:  chatlog.AnonymousUser,
			CreatedAt: ts(t, "2026-01-01T00:00:00Z"),
		},
	}}

	agg, err := stats.NewAggregator(chats, "")
	require.NoError(t, err)
	agg.SetClock(func() time.Time { return ts(t, "2026-03-15T01:00:00Z") })

	snap, err := agg.Snapshot(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 4, snap.TotalChats)
	assert.Equal(t, 3, snap.TotalMessages)
	assert.Equal(t, 2, snap.ChatsLast7Days)
	assert.Equal(t, stats.DefaultTimeZone, snap.TimeZone)

	assert.Equal(t, 1, snap.PendingCallbacks, "contacted callbacks leave the queue")
	require.Len(t, snap.CallbackQueue, 1)
	assert.Equal(t, "s1", snap.CallbackQueue[0].SessionID)
	assert.Equal(t, "mere@example.com", snap.CallbackQueue[0].ContactEmail)

	require.Len(t, snap.TopUsers, 3, "anonymous sessions stay out of the top-user list")
	assert.Equal(t, stats.UserCount{UserName: "Mere", Chats: 1, Messages: 2}, snap.TopUsers[0])
	assert.Equal(t, "Old", snap.TopUsers[1].UserName, "ties order by name")
	assert.Equal(t, "Sam", snap.TopUsers[2].UserName)

	require.Len(t, snap.Daily, 3)
	assert.Equal(t, "2026-01-01", snap.Daily[0].Date)
	assert.Equal(t, "2026-03-10", snap.Daily[1].Date)
	last := snap.Daily[2]
	assert.Equal(t, "2026-03-15", last.Date, "UTC evening lands on the next Auckland day")
	assert.Equal(t, 1, last.Chats)
	assert.Equal(t, 2, last.Messages)
}

func TestSnapshotCached(t *testing.T) {
	chats := &fakeChats{}
	agg, err := stats.NewAggregator(chats, "UTC")
	require.NoError(t, err)

	now := ts(t, "2026-03-15T01:00:00Z")
	agg.SetClock(func() time.Time { return now })

	_, err = agg.Snapshot(t.Context())
	require.NoError(t, err)
	_, err = agg.Snapshot(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, chats.calls, "second read within the TTL is served from cache")

	now = now.Add(11 * time.Minute)
	_, err = agg.Snapshot(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, chats.calls)

	agg.Invalidate()
	_, err = agg.Snapshot(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, chats.calls)
}

func TestSnapshotSourceError(t *testing.T) {
	agg, err := stats.NewAggregator(&fakeChats{err: errors.New("store down")}, "UTC")
	require.NoError(t, err)

	_, err = agg.Snapshot(t.Context())
	assert.ErrorContains(t, err, "store down")
}

func TestNewAggregatorBadZone(t *testing.T) {
	_, err := stats.NewAggregator(&fakeChats{}, "Not/AZone")
	assert.Error(t, err)
}
