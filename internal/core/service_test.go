package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tamween/internal/storage"
)

// failingSlot stores nothing and fails every write.
type failingSlot struct {
	storage.Slot
	err error
}

func (f *failingSlot) Write(context.Context, []byte) error { return f.err }

func newTestService(t *testing.T, slot storage.Slot, opts ...ServiceOption) *Service {
	t.Helper()
	if slot == nil {
		slot = storage.NewMemorySlot("tamween_customers")
	}
	opts = append([]ServiceOption{
		WithStoreOptions(WithIDGenerator(seqIDs()), WithClock(stepClock(testEpoch, time.Second))),
		WithNow(func() time.Time { return testEpoch }),
		WithDateFormatter(NewDateFormatter("en-US", time.UTC)),
	}, opts...)
	svc := NewService(slot, opts...)
	svc.Load(context.Background())
	return svc
}

func slotRecords(t *testing.T, slot storage.Slot) []Customer {
	t.Helper()
	data, err := slot.Read(context.Background())
	require.NoError(t, err)
	recs, err := DecodeJSON(bytes.NewReader(data))
	require.NoError(t, err)
	return recs
}

func seed(t *testing.T, svc *Service, names ...string) {
	t.Helper()
	for _, n := range names {
		_, err := svc.Add(context.Background(), candidate(n))
		require.NoError(t, err)
	}
}

func TestService_LoadFallsBackToEmpty(t *testing.T) {
	tests := []struct {
		name string
		data *string
	}{
		{"absent slot", nil},
		{"empty string", ptr("")},
		{"whitespace", ptr("  \n")},
		{"not json", ptr("{{{")},
		{"object", ptr(`{"id":"a"}`)},
		{"array of numbers", ptr(`[1,2]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot := storage.NewMemorySlot("k")
			if tt.data != nil {
				require.NoError(t, slot.Write(context.Background(), []byte(*tt.data)))
			}
			svc := NewService(slot)
			assert.Equal(t, 0, svc.Load(context.Background()))
			assert.Equal(t, 0, svc.Len())
		})
	}
}

func TestService_LoadReadError(t *testing.T) {
	svc := NewService(&errReadSlot{})
	assert.Equal(t, 0, svc.Load(context.Background()))
}

type errReadSlot struct{ storage.MemorySlot }

func (e *errReadSlot) Read(context.Context) ([]byte, error) { return nil, errors.New("disk on fire") }

func TestService_LoadRestores(t *testing.T) {
	slot := storage.NewMemorySlot("k")
	require.NoError(t, slot.Write(context.Background(),
		[]byte(`[{"id":"a","name":"A","pageNumber":"1","familyCount":2,"secretPin":"p","createdAt":5},{"id":"a","name":"dup"}]`)))

	svc := NewService(slot)
	assert.Equal(t, 1, svc.Load(context.Background()))

	got, err := svc.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
}

func TestService_AddPersists(t *testing.T) {
	slot := storage.NewMemorySlot("k")
	svc := newTestService(t, slot)

	rec, err := svc.Add(context.Background(), candidate("سعاد"))
	require.NoError(t, err)
	assert.Equal(t, "id-1", rec.ID)
	assert.Equal(t, testEpoch.UnixMilli(), rec.CreatedAt)

	assert.Equal(t, []Customer{rec}, slotRecords(t, slot))
}

func TestService_AddValidation(t *testing.T) {
	slot := storage.NewMemorySlot("k")
	svc := newTestService(t, slot)

	_, err := svc.Add(context.Background(), Candidate{Name: "x"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, svc.Len())

	_, err = slot.Read(context.Background())
	assert.ErrorIs(t, err, storage.ErrSlotEmpty, "rejected add must not write")
}

func TestService_WriteFailureKeepsChange(t *testing.T) {
	slot := &failingSlot{Slot: storage.NewMemorySlot("k"), err: errors.New("disk full")}
	svc := newTestService(t, slot)

	rec, err := svc.Add(context.Background(), candidate("a"))
	require.Error(t, err)
	assert.True(t, IsWriteWarning(err))
	assert.Equal(t, "id-1", rec.ID)
	assert.Equal(t, 1, svc.Len(), "in-memory change must survive the failed write")
}

func TestService_QuotaExceeded(t *testing.T) {
	slot := storage.WithQuota(storage.NewMemorySlot("k"), 10)
	svc := newTestService(t, slot)

	_, err := svc.Add(context.Background(), candidate("a"))

	var ww *WriteWarning
	require.ErrorAs(t, err, &ww)
	assert.ErrorIs(t, err, storage.ErrQuotaExceeded)
	assert.Equal(t, "STO002", MapError(err).Code)
	assert.Equal(t, 1, svc.Len())
}

func TestService_Update(t *testing.T) {
	slot := storage.NewMemorySlot("k")
	svc := newTestService(t, slot)
	seed(t, svc, "a")

	pin := "7777"
	got, err := svc.Update(context.Background(), "id-1", Patch{SecretPin: &pin})
	require.NoError(t, err)
	assert.Equal(t, "7777", got.SecretPin)
	assert.Equal(t, "a", got.Name)
	assert.Equal(t, "7777", slotRecords(t, slot)[0].SecretPin)
}

func TestService_UpdateUnknown(t *testing.T) {
	svc := newTestService(t, nil)
	seed(t, svc, "a")
	before := svc.List(Query{})

	name := "x"
	_, err := svc.Update(context.Background(), "nope", Patch{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, before, svc.List(Query{}))
	assert.Len(t, svc.Changes(0), 1, "only the add is recorded")
}

func TestService_Delete(t *testing.T) {
	slot := storage.NewMemorySlot("k")
	svc := newTestService(t, slot)
	seed(t, svc, "a", "b")

	require.NoError(t, svc.Delete(context.Background(), "id-1"))
	assert.Equal(t, []string{"id-2"}, ids(slotRecords(t, slot)))

	assert.ErrorIs(t, svc.Delete(context.Background(), "id-1"), ErrNotFound)
	assert.Equal(t, 1, svc.Len())
}

func TestService_ImportMerge(t *testing.T) {
	slot := storage.NewMemorySlot("k")
	svc := newTestService(t, slot)
	require.NoError(t, slot.Write(context.Background(), []byte(`[{"id":"a","name":"A"},{"id":"b","name":"B"}]`)))
	svc.Load(context.Background())

	res, err := svc.Import(context.Background(),
		strings.NewReader(`[{"id":"b","name":"X"},{"id":"c","name":"C"}]`), PolicyMerge)
	require.NoError(t, err)

	assert.Equal(t, ImportResult{Policy: PolicyMerge, Imported: 2, Total: 3, Duplicates: 1}, res)
	stored := slotRecords(t, slot)
	assert.Equal(t, []string{"a", "b", "c"}, ids(stored))
	assert.Equal(t, "B", stored[1].Name)

	changes := svc.Changes(1)
	require.Len(t, changes, 1)
	assert.Equal(t, ActionMerge, changes[0].Action)
}

func TestService_ImportReplace(t *testing.T) {
	slot := storage.NewMemorySlot("k")
	svc := newTestService(t, slot)
	seed(t, svc, "a", "b")

	// BOM-prefixed file as saved by some editors.
	file := "\ufeff" + `[{"id":"b","name":"X","familyCount":2},{"id":"c","name":"C","familyCount":1}]`
	res, err := svc.Import(context.Background(), strings.NewReader(file), PolicyReplace)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	stored := slotRecords(t, slot)
	assert.Equal(t, []Customer{
		{ID: "b", Name: "X", FamilyCount: 2},
		{ID: "c", Name: "C", FamilyCount: 1},
	}, stored)
}

func TestService_ImportRejectsNonArray(t *testing.T) {
	for _, input := range []string{`{"id":"a"}`, `42`, `not json`} {
		t.Run(input, func(t *testing.T) {
			slot := storage.NewMemorySlot("k")
			svc := newTestService(t, slot)
			seed(t, svc, "a")
			before, _ := slot.Read(context.Background())

			_, err := svc.Import(context.Background(), strings.NewReader(input), PolicyReplace)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)

			assert.Equal(t, 1, svc.Len())
			after, _ := slot.Read(context.Background())
			assert.Equal(t, before, after)
		})
	}
}

func TestService_ImportTooLarge(t *testing.T) {
	svc := newTestService(t, nil, WithMaxImportSize(8))
	_, err := svc.Import(context.Background(), strings.NewReader(`[{"id":"abcdef"}]`), PolicyMerge)
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, 0, svc.Len())
}

func TestService_ImportBusy(t *testing.T) {
	svc := newTestService(t, nil, WithImportLimit(1, 20*time.Millisecond))

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := svc.Import(context.Background(), pr, PolicyMerge)
		done <- err
	}()
	require.Eventually(t, func() bool { return svc.imports.Active() == 1 }, time.Second, 5*time.Millisecond)

	_, err := svc.Import(context.Background(), strings.NewReader(`[]`), PolicyMerge)
	assert.ErrorIs(t, err, ErrTooManyImports)

	_, _ = pw.Write([]byte(`[]`))
	require.NoError(t, pw.Close())
	require.NoError(t, <-done)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, svc.WaitForImports(ctx))
}

func TestService_ImportInvalidPolicy(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.Import(context.Background(), strings.NewReader(`[]`), "")
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestService_ExportEmpty(t *testing.T) {
	svc := newTestService(t, nil)

	exp, err := svc.ExportJSON()
	assert.ErrorIs(t, err, ErrEmptyCollection)
	assert.Nil(t, exp.Data)

	exp, err = svc.ExportCSV()
	assert.ErrorIs(t, err, ErrEmptyCollection)
	assert.Nil(t, exp.Data)
}

func TestService_ExportJSON(t *testing.T) {
	svc := newTestService(t, nil)
	seed(t, svc, "a", "b")

	first, err := svc.ExportJSON()
	require.NoError(t, err)
	second, err := svc.ExportJSON()
	require.NoError(t, err)

	assert.Equal(t, first.Data, second.Data, "exports without mutation must be identical")
	assert.Equal(t, "tamween_backup_2024-03-05.json", first.Filename)

	decoded, err := DecodeJSON(bytes.NewReader(first.Data))
	require.NoError(t, err)
	assert.Equal(t, svc.List(Query{}), decoded)
}

func TestService_ExportCSV(t *testing.T) {
	svc := newTestService(t, nil)
	seed(t, svc, "a")

	exp, err := svc.ExportCSV()
	require.NoError(t, err)
	assert.Equal(t, "tamween_customers_2024-03-05.csv", exp.Filename)
	assert.Equal(t, "\ufeffName,Page number,Family count,PIN,Created\r\na,12,3,0000,3/5/2024\r\n", string(exp.Data))
}

func TestService_Reset(t *testing.T) {
	slot := storage.NewMemorySlot("k")
	svc := newTestService(t, slot)
	seed(t, svc, "a", "b")

	require.NoError(t, svc.Reset(context.Background()))
	assert.Equal(t, 0, svc.Len())
	assert.Empty(t, slotRecords(t, slot))
	assert.Equal(t, ActionReset, svc.Changes(1)[0].Action)
}

func TestService_SubscribeReceivesChangesWithSource(t *testing.T) {
	svc := newTestService(t, nil)
	ch, cancel := svc.Subscribe(4)
	defer cancel()

	ctx := ContextWithOrigin(context.Background(), "api")
	ctx = ContextWithIPAddress(ctx, "127.0.0.1")
	_, err := svc.Add(ctx, candidate("a"))
	require.NoError(t, err)

	select {
	case c := <-ch:
		assert.Equal(t, ActionAdd, c.Action)
		assert.Equal(t, "id-1", c.RecordID)
		assert.Equal(t, Source{Origin: "api", IPAddress: "127.0.0.1"}, c.Source)
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}

	// Failed operations publish nothing.
	_ = svc.Delete(context.Background(), "missing")
	select {
	case c := <-ch:
		t.Fatalf("unexpected change %+v", c)
	default:
	}
}

func TestService_UnsubscribeClosesChannel(t *testing.T) {
	svc := newTestService(t, nil)
	ch, cancel := svc.Subscribe(1)
	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	seed(t, svc, "a")
}

func TestService_ChangesBounded(t *testing.T) {
	svc := newTestService(t, nil, WithHistorySize(2))
	seed(t, svc, "a", "b", "c")

	changes := svc.Changes(0)
	require.Len(t, changes, 2)
	assert.Equal(t, "id-3", changes[0].RecordID)
}

func ptr(s string) *string { return &s }
