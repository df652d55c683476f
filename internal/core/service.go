package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/tamween/internal/storage"
)

// DefaultHistorySize is the number of recent changes the Service remembers.
const DefaultHistorySize = 100

// DefaultSlotTimeout bounds a single slot read or write.
const DefaultSlotTimeout = 5 * time.Second

// DefaultMaxImportSize is the import file limit used when none is configured.
const DefaultMaxImportSize = 10 << 20

// Service is the application state: the Store, the durable slot mirroring
// it, the change history and the change subscribers.
//
// Every operation holds the Service lock from start to finish, so operations
// from concurrent HTTP requests or a CLI run one at a time and each one sees
// the result of the previous. After every effective mutation the whole
// collection is written to the slot. A failed write is reported as a
// *WriteWarning; the mutation itself is kept.
type Service struct {
	mu      sync.Mutex
	store   *Store
	slot    storage.Slot
	timeout time.Duration
	dates   *DateFormatter
	now     func() time.Time
	maxSize int64
	imports *ImportLimiter

	history *changeLog
	source  Source   // source of the operation in progress
	pending []Change // changes of the operation in progress

	subMu   sync.Mutex
	subs    map[int]chan Change
	nextSub int
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithStoreOptions passes options to the underlying Store.
func WithStoreOptions(opts ...StoreOption) ServiceOption {
	return func(s *Service) { s.store = NewStore(opts...) }
}

// WithSlotTimeout bounds each slot read and write.
func WithSlotTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithDateFormatter sets the formatter used by CSV exports.
func WithDateFormatter(f *DateFormatter) ServiceOption {
	return func(s *Service) { s.dates = f }
}

// WithNow sets the clock used for export file names.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithMaxImportSize limits the size of import files in bytes.
func WithMaxImportSize(n int64) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithImportLimit bounds concurrent imports and how long one waits for a
// free slot.
func WithImportLimit(maxConcurrent int, maxWait time.Duration) ServiceOption {
	return func(s *Service) { s.imports = NewImportLimiter(maxConcurrent, maxWait) }
}

// WithHistorySize sets how many recent changes are kept.
func WithHistorySize(n int) ServiceOption {
	return func(s *Service) { s.history = newChangeLog(n) }
}

// NewService creates a Service over slot. Call Load before use.
func NewService(slot storage.Slot, opts ...ServiceOption) *Service {
	s := &Service{
		store:   NewStore(),
		slot:    slot,
		timeout: DefaultSlotTimeout,
		now:     time.Now,
		maxSize: DefaultMaxImportSize,
		imports: NewImportLimiter(DefaultMaxConcurrentImports, DefaultImportWait),
		history: newChangeLog(DefaultHistorySize),
		subs:    make(map[int]chan Change),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dates == nil {
		s.dates = NewDateFormatter(DefaultLocale, time.Local)
	}
	s.store.SetNotify(s.onChange)
	return s
}

// Load restores the Store from the slot. It never fails: a missing, empty,
// unreadable or malformed slot leaves the Store empty and is logged. The
// returned count is the number of records restored.
func (s *Service) Load(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger := slog.With("slot", s.slot.Key())

	data, err := s.slot.Read(ctx)
	switch {
	case errors.Is(err, storage.ErrSlotEmpty):
		logger.Info("slot is empty, starting with no records")
		s.store.load(nil)
		return 0
	case err != nil:
		logger.Warn("failed to read slot, starting with no records", "error", err)
		s.store.load(nil)
		return 0
	}

	if len(bytes.TrimSpace(data)) == 0 {
		logger.Info("slot is blank, starting with no records")
		s.store.load(nil)
		return 0
	}

	records, err := decodeRecords(data, "slot")
	if err != nil {
		logger.Warn("failed to parse slot, starting with no records", "error", err)
		s.store.load(nil)
		return 0
	}

	s.store.load(dedupeByID(records))
	logger.Info("records restored", "count", s.store.Len())
	return s.store.Len()
}

// List returns the projection of the register described by q.
func (s *Service) List(q Query) []Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Project(s.store.records, q)
}

// View is a consistent snapshot of the register for presentation.
type View struct {
	Records []Customer `json:"customers"`
	Stats   Stats      `json:"stats"`
	Total   int        `json:"total"` // records before filtering
}

// View projects the register through q and summarizes all of it under one
// lock.
func (s *Service) View(q Query) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Records: Project(s.store.records, q),
		Stats:   ComputeStats(s.store.records),
		Total:   s.store.Len(),
	}
}

// Get returns one record.
func (s *Service) Get(id string) (Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.store.Get(id)
	if !ok {
		return Customer{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// Len returns the number of records.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Len()
}

// Dates returns the formatter used for creation dates.
func (s *Service) Dates() *DateFormatter {
	return s.dates
}

// Stats summarizes the whole register.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeStats(s.store.records)
}

// Add validates c and adds it as a new record. On a slot write failure the
// record is still returned, together with a *WriteWarning.
func (s *Service) Add(ctx context.Context, c Candidate) (Customer, error) {
	if err := c.Validate(); err != nil {
		return Customer{}, err
	}

	var rec Customer
	err := s.mutate(ctx, func() error {
		rec = s.store.Add(c)
		return s.persist(ctx)
	})
	return rec, err
}

// Update applies p to the record with the given id, keeping its id and
// creation time. An unknown id changes nothing and reports ErrNotFound.
func (s *Service) Update(ctx context.Context, id string, p Patch) (Customer, error) {
	if err := p.Validate(); err != nil {
		return Customer{}, err
	}

	var rec Customer
	err := s.mutate(ctx, func() error {
		var ok bool
		rec, ok = s.store.Update(id, p)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return s.persist(ctx)
	})
	return rec, err
}

// Delete removes the record with the given id. An unknown id changes
// nothing and reports ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func() error {
		if !s.store.Delete(id) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return s.persist(ctx)
	})
}

// Import reads a JSON backup from r and reconciles it with the Store under
// policy. A file that is too large or not a JSON array of records aborts the
// import with no change. On a slot write failure the import is kept and a
// *WriteWarning is returned with the result.
func (s *Service) Import(ctx context.Context, r io.Reader, policy ImportPolicy) (ImportResult, error) {
	if policy != PolicyReplace && policy != PolicyMerge {
		return ImportResult{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
	}

	if err := s.imports.Acquire(ctx); err != nil {
		return ImportResult{}, err
	}
	defer s.imports.Release()

	data, err := io.ReadAll(io.LimitReader(NewImportReader(r), s.maxSize+1))
	if err != nil {
		return ImportResult{}, fmt.Errorf("read import: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return ImportResult{}, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxSize)
	}

	imported, err := decodeRecords(data, "import")
	if err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{Policy: policy, Imported: len(imported)}
	err = s.mutate(ctx, func() error {
		merged, dropped, err := Reconcile(s.store.records, imported, policy)
		if err != nil {
			return err
		}
		action := ActionReplace
		if policy == PolicyMerge {
			action = ActionMerge
		}
		s.store.replace(merged, action)
		result.Total = s.store.Len()
		result.Duplicates = dropped
		return s.persist(ctx)
	})
	if err != nil && !IsWriteWarning(err) {
		return ImportResult{}, err
	}
	return result, err
}

// WaitForImports blocks until in-flight imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.imports.WaitForDrain(ctx)
}

// Reset removes every record.
func (s *Service) Reset(ctx context.Context) error {
	return s.mutate(ctx, func() error {
		s.store.replace(nil, ActionReset)
		return s.persist(ctx)
	})
}

// Export is a produced download.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportJSON produces the indented JSON backup of the whole register.
// An empty register yields ErrEmptyCollection and no data.
func (s *Service) ExportJSON() (Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Len() == 0 {
		return Export{}, ErrEmptyCollection
	}

	var buf bytes.Buffer
	if err := EncodeJSON(&buf, s.store.records, true); err != nil {
		return Export{}, err
	}
	return Export{
		Filename:    BackupFileName(s.now()),
		ContentType: "application/json; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

// ExportCSV produces the tabular export in storage order. An empty register
// yields ErrEmptyCollection and no data.
func (s *Service) ExportCSV() (Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Len() == 0 {
		return Export{}, ErrEmptyCollection
	}

	var buf bytes.Buffer
	if err := EncodeCSV(&buf, s.store.records, s.dates); err != nil {
		return Export{}, err
	}
	return Export{
		Filename:    CSVFileName(s.now()),
		ContentType: "text/csv; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

// Changes returns up to limit recent changes, newest first. A limit of zero
// or less returns everything kept.
func (s *Service) Changes(limit int) []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.recent(limit)
}

// Subscribe returns a channel receiving every change from now on, and a
// function that cancels the subscription and closes the channel. Delivery
// never blocks an operation: a subscriber whose buffer is full misses the
// change.
func (s *Service) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Change, buffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

// mutate runs fn under the lock, then publishes the changes it produced.
func (s *Service) mutate(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	s.source = SourceFromContext(ctx)
	err := fn()
	pending := s.pending
	s.pending = nil
	s.source = Source{}
	s.mu.Unlock()

	s.publish(pending)
	return err
}

// onChange is the Store hook. It runs under s.mu.
func (s *Service) onChange(c Change) {
	c.Source = s.source
	s.history.add(c)
	s.pending = append(s.pending, c)
}

func (s *Service) publish(changes []Change) {
	if len(changes) == 0 {
		return
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, c := range changes {
		for _, ch := range s.subs {
			select {
			case ch <- c:
			default:
			}
		}
	}
}

// persist writes the whole collection to the slot. It runs under s.mu.
func (s *Service) persist(ctx context.Context) error {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, s.store.records, false); err != nil {
		return &WriteWarning{Key: s.slot.Key(), Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.slot.Write(ctx, buf.Bytes()); err != nil {
		slog.Warn("failed to write slot, change kept in memory",
			"slot", s.slot.Key(),
			"records", s.store.Len(),
			"error", err,
		)
		return &WriteWarning{Key: s.slot.Key(), Err: err}
	}
	return nil
}
