package txlog

import (
	"slices"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type Kind string

const (
	KindRegister  Kind = "register"
	KindSetRecord Kind = "setRecord"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Entry is a transaction submitted from this client.
type Entry struct {
	Hash   string
	Kind   Kind
	Name   string
	URL    string
	Status Status
	At     time.Time
}

// Log keeps recently submitted transactions for ttl. A zero ttl keeps them
// for the life of the process.
type Log struct {
	cache *gocache.Cache
	now   func() time.Time
}

func New(ttl time.Duration) *Log {
	cleanup := ttl
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}
	return &Log{
		cache: gocache.New(ttl, cleanup),
		now:   time.Now,
	}
}

func (l *Log) Submitted(hash string, kind Kind, name, url string) {
	l.cache.SetDefault(hash, Entry{
		Hash:   hash,
		Kind:   kind,
		Name:   name,
		URL:    url,
		Status: StatusPending,
		At:     l.now(),
	})
}

// Resolve sets the final status of a logged transaction. Unknown or expired
// hashes are ignored.
func (l *Log) Resolve(hash string, status Status) {
	v, found := l.cache.Get(hash)
	if !found {
		return
	}
	e := v.(Entry)
	e.Status = status
	l.cache.SetDefault(hash, e)
}

func (l *Log) Get(hash string) (Entry, bool) {
	v, found := l.cache.Get(hash)
	if !found {
		return Entry{}, false
	}
	return v.(Entry), true
}

// List returns unexpired entries, newest first.
func (l *Log) List() []Entry {
	items := l.cache.Items()
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, item.Object.(Entry))
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return b.At.Compare(a.At)
	})
	return entries
}
