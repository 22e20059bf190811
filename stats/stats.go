// Package stats aggregates chat activity for the admin dashboard. Results
// are cached briefly since every dashboard load asks for the same window.
package stats

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/paragondesignz/spachat/chatlog"
)

// DefaultTimeZone is the store's local zone, used for day bucketing when no
// other zone is configured.
const DefaultTimeZone = "Pacific/Auckland"

// cacheTTL bounds how stale a dashboard snapshot may be.
const cacheTTL = 10 * time.Minute

// DayCount is activity for one local calendar day.
type DayCount struct {
	Date     string `json:"date"`
	Chats    int    `json:"chats"`
	Messages int    `json:"messages"`
}

// topUserLimit caps the returning-visitor list on the dashboard.
const topUserLimit = 5

// UserCount is chat activity attributed to one named visitor.
type UserCount struct {
	UserName string `json:"user_name"`
	Chats    int    `json:"chats"`
	Messages int    `json:"messages"`
}

// CallbackEntry is one chat awaiting a callback.
type CallbackEntry struct {
	SessionID    string     `json:"session_id"`
	UserName     string     `json:"user_name"`
	ContactEmail string     `json:"contact_email,omitempty"`
	ContactPhone string     `json:"contact_phone,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	RequestedAt  *time.Time `json:"requested_at,omitempty"`
}

// Snapshot is the aggregated dashboard view.
type Snapshot struct {
	TotalChats       int             `json:"total_chats"`
	TotalMessages    int             `json:"total_messages"`
	ChatsLast7Days   int             `json:"chats_last_7_days"`
	PendingCallbacks int             `json:"pending_callbacks"`
	Daily            []DayCount      `json:"daily"`
	TopUsers         []UserCount     `json:"top_users"`
	CallbackQueue    []CallbackEntry `json:"callback_queue"`
	GeneratedAt      time.Time       `json:"generated_at"`
	TimeZone         string          `json:"time_zone"`
}

// ChatSource is the slice of the chat log store the aggregator reads.
type ChatSource interface {
	List(ctx context.Context) ([]*chatlog.Log, error)
}

// Aggregator computes dashboard snapshots over the chat log.
type Aggregator struct {
	chats ChatSource
	loc   *time.Location
	now   func() time.Time

	mu     sync.Mutex
	cached *Snapshot
	expiry time.Time
}

// NewAggregator creates an aggregator bucketing days in the named time zone.
// An empty name selects DefaultTimeZone.
func NewAggregator(chats ChatSource, timeZone string) (*Aggregator, error) {
	if timeZone == "" {
		timeZone = DefaultTimeZone
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", timeZone, err)
	}
	return &Aggregator{
		chats: chats,
		loc:   loc,
		now:   time.Now,
	}, nil
}

// SetClock overrides the time source and drops the cache. Tests only.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
	a.cached = nil
}

// Snapshot returns the current aggregate, serving a cached copy when one is
// still fresh.
func (a *Aggregator) Snapshot(ctx context.Context) (*Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if a.cached != nil && now.Before(a.expiry) {
		return a.cached, nil
	}

	snap, err := a.compute(ctx, now)
	if err != nil {
		return nil, err
	}
	a.cached = snap
	a.expiry = now.Add(cacheTTL)
	return snap, nil
}

// Invalidate drops the cached snapshot so the next read recomputes.
func (a *Aggregator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cached = nil
}

func (a *Aggregator) compute(ctx context.Context, now time.Time) (*Snapshot, error) {
	logs, err := a.chats.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing chat logs: %w", err)
	}

	weekAgo := now.AddDate(0, 0, -7)
	days := make(map[string]*DayCount)
	users := make(map[string]*UserCount)
	snap := &Snapshot{
		GeneratedAt: now.UTC(),
		TimeZone:    a.loc.String(),
	}

	for _, log := range logs {
		snap.TotalChats++
		snap.TotalMessages += len(log.Messages)
		if log.CreatedAt.After(weekAgo) {
			snap.ChatsLast7Days++
		}

		date := log.CreatedAt.In(a.loc).Format(time.DateOnly)
		day, ok := days[date]
		if !ok {
			day = &DayCount{Date: date}
			days[date] = day
		}
		day.Chats++
		for _, msg := range log.Messages {
			msgDate := msg.CreatedAt.In(a.loc).Format(time.DateOnly)
			if msgDay, ok := days[msgDate]; ok {
				msgDay.Messages++
			} else {
				days[msgDate] = &DayCount{Date: msgDate, Messages: 1}
			}
		}

		if log.UserName != "" && log.UserName != chatlog.AnonymousUser {
			user, ok := users[log.UserName]
			if !ok {
				user = &UserCount{UserName: log.UserName}
				users[log.UserName] = user
			}
			user.Chats++
			user.Messages += len(log.Messages)
		}

		if log.CallbackRequested && !log.Contacted {
			snap.PendingCallbacks++
			snap.CallbackQueue = append(snap.CallbackQueue, CallbackEntry{
				SessionID:    log.SessionID,
				UserName:     log.UserName,
				ContactEmail: log.ContactEmail,
				ContactPhone: log.ContactPhone,
				Notes:        log.CallbackNotes,
				RequestedAt:  log.CallbackRequestedAt,
			})
		}
	}

	snap.Daily = make([]DayCount, 0, len(days))
	for _, day := range days {
		snap.Daily = append(snap.Daily, *day)
	}
	sort.Slice(snap.Daily, func(i, j int) bool {
		return snap.Daily[i].Date < snap.Daily[j].Date
	})
	snap.TopUsers = make([]UserCount, 0, len(users))
	for _, user := range users {
		snap.TopUsers = append(snap.TopUsers, *user)
	}
	sort.Slice(snap.TopUsers, func(i, j int) bool {
		if snap.TopUsers[i].Chats != snap.TopUsers[j].Chats {
			return snap.TopUsers[i].Chats > snap.TopUsers[j].Chats
		}
		return snap.TopUsers[i].UserName < snap.TopUsers[j].UserName
	})
	if len(snap.TopUsers) > topUserLimit {
		snap.TopUsers = snap.TopUsers[:topUserLimit]
	}
	sort.Slice(snap.CallbackQueue, func(i, j int) bool {
		left, right := snap.CallbackQueue[i].RequestedAt, snap.CallbackQueue[j].RequestedAt
		if left == nil || right == nil {
			return right == nil && left != nil
		}
		return left.Before(*right)
	})
	return snap, nil
}
