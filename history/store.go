package history

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/adamspd/mcqtest/models"
	"github.com/adamspd/mcqtest/utils"
)

const (
	// Capacity is the maximum number of results kept; the oldest are evicted first.
	Capacity = 50
	// StorageKey is where the log is persisted as a JSON array, oldest first.
	StorageKey = "test_history"
)

// KeyValueStore is the persistence the history log needs.
type KeyValueStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
}

// Store is the bounded result log. Index 0 is the oldest result.
type Store struct {
	mu      sync.Mutex
	kv      KeyValueStore
	results []models.Result
}

// New loads the persisted log. A missing, unreadable or corrupted log starts empty.
func New(kv KeyValueStore) *Store {
	s := &Store{kv: kv}
	s.results = s.load()
	return s
}

func (s *Store) load() []models.Result {
	raw, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		utils.LogWarn("History unavailable, starting empty: %v", err)
		return nil
	}
	if !ok || len(raw) == 0 {
		return nil
	}

	var results []models.Result
	if err := json.Unmarshal(raw, &results); err != nil {
		utils.LogWarn("History is corrupted, starting empty: %v", err)
		return nil
	}
	if len(results) > Capacity {
		results = results[len(results)-Capacity:]
	}
	utils.LogInfo("Loaded %d history entries", len(results))
	return results
}

// persist writes the current log. Caller holds s.mu.
func (s *Store) persist(op string) error {
	data, err := json.Marshal(s.results)
	if err != nil {
		return &models.StorageUnavailableError{Op: op, Err: err}
	}
	if err := s.kv.Set(StorageKey, data); err != nil {
		utils.LogError("History %s not persisted: %v", op, err)
		return &models.StorageUnavailableError{Op: op, Err: err}
	}
	return nil
}

// Append adds r to the end of the log, evicting the oldest entries beyond Capacity.
// A result whose ID is already logged is ignored and added is false. A storage
// error leaves the in-memory log updated.
func (s *Store) Append(r models.Result) (added bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID != "" {
		for _, existing := range s.results {
			if existing.ID == r.ID {
				utils.LogDebug("Result %s already in history, skipping", r.ID)
				return false, nil
			}
		}
	}

	s.results = append(s.results, cloneResult(r))
	if over := len(s.results) - Capacity; over > 0 {
		s.results = append([]models.Result(nil), s.results[over:]...)
	}
	return true, s.persist("append")
}

func (s *Store) Get(index int) (models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.results) {
		return models.Result{}, indexError(index, len(s.results))
	}
	return cloneResult(s.results[index]), nil
}

// Delete removes the entry at index; later entries shift down by one.
func (s *Store) Delete(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.results) {
		return indexError(index, len(s.results))
	}
	s.results = append(s.results[:index:index], s.results[index+1:]...)
	return s.persist("delete")
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = nil
	if err := s.kv.Remove(StorageKey); err != nil {
		utils.LogError("History clear not persisted: %v", err)
		return &models.StorageUnavailableError{Op: "clear", Err: err}
	}
	return nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// List returns a copy of the log, oldest first.
func (s *Store) List() []models.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Result, len(s.results))
	for i, r := range s.results {
		out[i] = cloneResult(r)
	}
	return out
}

// Items returns the summary view of every entry, oldest first.
func (s *Store) Items() []models.HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.HistoryItem, len(s.results))
	for i, r := range s.results {
		items[i] = models.HistoryItem{
			Index:            i,
			ID:               r.ID,
			Subject:          r.Subject,
			Chapter:          r.Chapter,
			Score:            r.Score,
			Total:            r.Total,
			Percentage:       r.Percentage,
			TimeTakenSeconds: r.TimeTakenSeconds,
			Date:             r.Date,
		}
	}
	return items
}

func indexError(index, n int) error {
	return fmt.Errorf("%w: %d (history has %d entries)", models.ErrIndexOutOfRange, index, n)
}

func cloneResult(r models.Result) models.Result {
	c := r
	c.Answers = append([]string(nil), r.Answers...)
	c.Questions = make([]models.ResultQuestion, len(r.Questions))
	for i, q := range r.Questions {
		q.Options = append([]string(nil), q.Options...)
		c.Questions[i] = q
	}
	return c
}
