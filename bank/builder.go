package bank

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/adamspd/mcqtest/models"
)

// Builder derives test instances from a bank.
type Builder struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBuilder returns a builder using rng, or a time-seeded source when rng is nil.
func NewBuilder(rng *rand.Rand) *Builder {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Builder{rng: rng}
}

// Build selects count questions from bank, optionally shuffling question order and
// each question's options. The bank is never modified.
func (b *Builder) Build(bank []models.Question, count int, shuffleQuestions, shuffleOptions bool) (models.TestInstance, error) {
	if count < 1 || count > len(bank) {
		return models.TestInstance{}, &models.InvalidCountError{Requested: count, Available: len(bank)}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	order := make([]int, len(bank))
	for i := range order {
		order[i] = i
	}
	if shuffleQuestions {
		b.shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	questions := make([]models.Question, count)
	for i := 0; i < count; i++ {
		q := bank[order[i]].Clone()
		if shuffleOptions {
			b.shuffle(len(q.Options), func(i, j int) { q.Options[i], q.Options[j] = q.Options[j], q.Options[i] })
		}
		if err := Validate(q); err != nil {
			return models.TestInstance{}, fmt.Errorf("%w: %v", models.ErrMalformedBank, err)
		}
		questions[i] = q
	}

	return models.TestInstance{Questions: questions}, nil
}

// Fisher-Yates shuffle
func (b *Builder) shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := b.rng.Intn(i + 1)
		swap(i, j)
	}
}
