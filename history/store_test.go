package history

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/adamspd/mcqtest/db"
	"github.com/adamspd/mcqtest/models"
)

// failingStore fails whichever operations are switched on.
type failingStore struct {
	*db.MemoryStore
	failGet    bool
	failSet    bool
	failRemove bool
}

var errDisk = errors.New("disk unavailable")

func (f *failingStore) Get(key string) ([]byte, bool, error) {
	if f.failGet {
		return nil, false, errDisk
	}
	return f.MemoryStore.Get(key)
}

func (f *failingStore) Set(key string, value []byte) error {
	if f.failSet {
		return errDisk
	}
	return f.MemoryStore.Set(key, value)
}

func (f *failingStore) Remove(key string) error {
	if f.failRemove {
		return errDisk
	}
	return f.MemoryStore.Remove(key)
}

func result(n int) models.Result {
	return models.Result{
		ID:         fmt.Sprintf("r%d", n),
		Score:      n % 5,
		Total:      5,
		Percentage: (n % 5) * 20,
		Subject:    "Subject",
		Date:       time.Date(2026, 1, 1, 0, n, 0, 0, time.UTC),
		Questions:  []models.ResultQuestion{{ID: "1", Question: "Q", Options: []string{"a", "b"}, Answer: "a"}},
		Answers:    []string{"a"},
	}
}

func TestAppendAndGet(t *testing.T) {
	s := New(db.NewMemoryStore())
	if s.Len() != 0 {
		t.Fatalf("expected empty history")
	}
	for i := 0; i < 3; i++ {
		added, err := s.Append(result(i))
		if err != nil || !added {
			t.Fatalf("Append(%d): added=%t err=%v", i, added, err)
		}
	}
	r, err := s.Get(2)
	if err != nil || r.ID != "r2" {
		t.Fatalf("Get(2) = %q, %v", r.ID, err)
	}
	if _, err := s.Get(3); !errors.Is(err, models.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := s.Get(-1); !errors.Is(err, models.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestAppendEvictsOldest(t *testing.T) {
	s := New(db.NewMemoryStore())
	for i := 0; i < Capacity+1; i++ {
		if _, err := s.Append(result(i)); err != nil {
			t.Fatalf("Append(%d): %v", i, err)
		}
	}
	if s.Len() != Capacity {
		t.Fatalf("expected %d entries, got %d", Capacity, s.Len())
	}
	first, _ := s.Get(0)
	last, _ := s.Get(Capacity - 1)
	if first.ID != "r1" || last.ID != fmt.Sprintf("r%d", Capacity) {
		t.Fatalf("expected r1..r%d, got %s..%s", Capacity, first.ID, last.ID)
	}
}

func TestAppendIgnoresDuplicateID(t *testing.T) {
	s := New(db.NewMemoryStore())
	s.Append(result(1))
	added, err := s.Append(result(1))
	if err != nil || added {
		t.Fatalf("duplicate append: added=%t err=%v", added, err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
}

func TestDeleteShiftsLaterEntries(t *testing.T) {
	s := New(db.NewMemoryStore())
	for i := 0; i < 3; i++ {
		s.Append(result(i))
	}
	if err := s.Delete(1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list := s.List()
	if len(list) != 2 || list[0].ID != "r0" || list[1].ID != "r2" {
		t.Fatalf("expected [r0 r2], got %v", ids(list))
	}
	if err := s.Delete(2); !errors.Is(err, models.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("failed delete changed the log")
	}
}

func TestClear(t *testing.T) {
	kv := db.NewMemoryStore()
	s := New(kv)
	s.Append(result(1))
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty log")
	}
	if _, ok, _ := kv.Get(StorageKey); ok {
		t.Fatalf("expected storage key removed")
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear on empty log: %v", err)
	}
}

func TestLogSurvivesReload(t *testing.T) {
	kv := db.NewMemoryStore()
	s := New(kv)
	for i := 0; i < 3; i++ {
		s.Append(result(i))
	}
	s.Delete(0)

	reloaded := New(kv)
	list := reloaded.List()
	if len(list) != 2 || list[0].ID != "r1" || list[1].ID != "r2" {
		t.Fatalf("expected [r1 r2] after reload, got %v", ids(list))
	}
	if !list[0].Date.Equal(result(1).Date) {
		t.Fatalf("date not preserved: %v", list[0].Date)
	}
}

func TestCorruptedLogStartsEmpty(t *testing.T) {
	kv := db.NewMemoryStore()
	kv.Set(StorageKey, []byte("{not json"))
	s := New(kv)
	if s.Len() != 0 {
		t.Fatalf("expected empty log")
	}
	if _, err := s.Append(result(1)); err != nil {
		t.Fatalf("Append after corruption: %v", err)
	}
	if New(kv).Len() != 1 {
		t.Fatalf("expected corrupted log replaced")
	}
}

func TestUnreadableStoreStartsEmpty(t *testing.T) {
	s := New(&failingStore{MemoryStore: db.NewMemoryStore(), failGet: true})
	if s.Len() != 0 {
		t.Fatalf("expected empty log")
	}
}

func TestWriteFailureKeepsMemoryAndReports(t *testing.T) {
	kv := &failingStore{MemoryStore: db.NewMemoryStore(), failSet: true, failRemove: true}
	s := New(kv)

	added, err := s.Append(result(1))
	if !added {
		t.Fatalf("expected result added in memory")
	}
	var sue *models.StorageUnavailableError
	if !errors.As(err, &sue) || !errors.Is(err, models.ErrStorageUnavailable) || !errors.Is(err, errDisk) {
		t.Fatalf("expected StorageUnavailableError wrapping the cause, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("in-memory log lost the result")
	}

	if err := s.Clear(); !errors.Is(err, models.ErrStorageUnavailable) {
		t.Fatalf("expected storage error from Clear, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("clear should still empty the in-memory log")
	}
}

func TestListReturnsCopies(t *testing.T) {
	s := New(db.NewMemoryStore())
	s.Append(result(1))
	list := s.List()
	list[0].Answers[0] = "changed"
	list[0].Questions[0].Options[0] = "changed"

	r, _ := s.Get(0)
	if r.Answers[0] != "a" || r.Questions[0].Options[0] != "a" {
		t.Fatalf("caller mutation leaked into the log")
	}
}

func TestItems(t *testing.T) {
	s := New(db.NewMemoryStore())
	s.Append(result(1))
	s.Append(result(2))
	items := s.Items()
	if len(items) != 2 || items[1].Index != 1 || items[1].ID != "r2" || items[1].Percentage != 40 {
		t.Fatalf("unexpected items %+v", items)
	}
}

func ids(rs []models.Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
