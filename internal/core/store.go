package core

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Store is the authoritative in-memory collection of customer records.
//
// Storage order is most-recent-first for additions; any presented order is
// derived by an explicit sort (see Project). Store is not safe for concurrent
// use: Service serializes access to it.
type Store struct {
	records     []Customer
	now         func() time.Time
	newID       func() string
	lastCreated int64
	notify      func(Change)
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithClock sets the time source used for createdAt.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the id source used by Add.
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *Store) { s.newID = gen }
}

// NewStore creates an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		records: make([]Customer, 0),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetNotify installs the hook called after every effective mutation.
// No-op operations do not trigger it.
func (s *Store) SetNotify(fn func(Change)) {
	s.notify = fn
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// All returns a copy of the records in storage order.
func (s *Store) All() []Customer {
	return slices.Clone(s.records)
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (Customer, bool) {
	i := s.index(id)
	if i < 0 {
		return Customer{}, false
	}
	return s.records[i], true
}

// Add finalizes a candidate with a fresh id and timestamp and prepends it.
func (s *Store) Add(c Candidate) Customer {
	c = c.Normalized()

	created := s.now().UnixMilli()
	if created < s.lastCreated {
		created = s.lastCreated
	}
	s.lastCreated = created

	rec := Customer{
		ID:          s.uniqueID(),
		Name:        c.Name,
		PageNumber:  c.PageNumber,
		FamilyCount: c.FamilyCount,
		SecretPin:   c.SecretPin,
		CreatedAt:   created,
	}
	s.records = slices.Insert(s.records, 0, rec)
	s.emit(ActionAdd, rec.ID)
	return rec
}

// Update replaces the supplied fields of the record with the given id,
// keeping its id and createdAt. An unknown id is silently ignored.
func (s *Store) Update(id string, p Patch) (Customer, bool) {
	i := s.index(id)
	if i < 0 {
		return Customer{}, false
	}
	s.records[i] = p.apply(s.records[i])
	s.emit(ActionUpdate, id)
	return s.records[i], true
}

// Delete removes the record with the given id, if present.
func (s *Store) Delete(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.records = slices.Delete(s.records, i, i+1)
	s.emit(ActionDelete, id)
	return true
}

// ReplaceAll replaces the whole collection with a copy of records.
func (s *Store) ReplaceAll(records []Customer) {
	s.replace(records, ActionReplace)
}

// load sets the initial contents without notifying.
func (s *Store) load(records []Customer) {
	s.records = slices.Clone(records)
	if s.records == nil {
		s.records = make([]Customer, 0)
	}
}

func (s *Store) replace(records []Customer, action ChangeAction) {
	s.load(records)
	s.emit(action, "")
}

// uniqueID draws ids until one is not already taken. Imported records can
// carry arbitrary ids, so a collision is possible in principle.
func (s *Store) uniqueID() string {
	for {
		id := s.newID()
		if s.index(id) < 0 {
			return id
		}
	}
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.records, func(c Customer) bool { return c.ID == id })
}

func (s *Store) emit(action ChangeAction, recordID string) {
	if s.notify == nil {
		return
	}
	s.notify(newChange(action, recordID, len(s.records), s.now()))
}
