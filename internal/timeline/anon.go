package timeline

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/mmynk/zbuppan/internal/models"
)

// ShuffleMode selects how the name pool is permuted.
type ShuffleMode string

const (
	// ShuffleSort stable-sorts the pool with a comparator that draws a fresh
	// random value for every comparison. The permutation depends on the sort
	// algorithm's comparison pattern and is not uniform, but it is the same
	// for every call with the same seed and pool.
	ShuffleSort ShuffleMode = "sort"

	// ShuffleFisherYates applies a Fisher-Yates shuffle driven by the same
	// generator. Uniform, but yields different names than ShuffleSort.
	ShuffleFisherYates ShuffleMode = "fisher-yates"
)

// Names maps user IDs to their anonymous name for one month.
type Names map[string]string

// Assigner hands out anonymous display names that stay fixed for a calendar
// month and are reshuffled when the month changes.
type Assigner struct {
	// Pool is the list of names to draw from. It is never modified.
	Pool []string

	// Mode selects the shuffle. Empty means ShuffleSort.
	Mode ShuffleMode

	// Location decides where month boundaries fall.
	Location *time.Location
}

// NewAssigner creates an assigner over a copy of pool.
func NewAssigner(pool []string, mode ShuffleMode, loc *time.Location) *Assigner {
	if loc == nil {
		loc = time.UTC
	}
	return &Assigner{
		Pool:     slices.Clone(pool),
		Mode:     mode,
		Location: loc,
	}
}

// Seed derives the monthly seed: year times the zero-based month index. Every
// January therefore yields seed 0.
func Seed(t time.Time, loc *time.Location) int64 {
	local := t.In(loc)
	return int64(local.Year()) * int64(local.Month()-1)
}

// ShuffledNames returns the pool permuted for seed.
func (a *Assigner) ShuffledNames(seed int64) []string {
	names := slices.Clone(a.Pool)
	rng := NewXorShift(seed)

	switch a.Mode {
	case ShuffleFisherYates:
		for i := len(names) - 1; i > 0; i-- {
			j := int(rng.Next() % uint32(i+1))
			names[i], names[j] = names[j], names[i]
		}
	default:
		slices.SortStableFunc(names, func(_, _ string) int {
			return int(rng.Int32())
		})
	}
	return names
}

// NamesAt returns the shuffled pool for the month containing t.
func (a *Assigner) NamesAt(t time.Time) []string {
	return a.ShuffledNames(Seed(t, a.Location))
}

// Assign maps every user to a name for the month containing now. Users are
// ranked by registration time (ties broken by ID) whatever order they are
// passed in, and the Nth registered user gets the Nth shuffled name.
func (a *Assigner) Assign(users []*models.User, now time.Time) Names {
	ranked := slices.Clone(users)
	slices.SortStableFunc(ranked, func(x, y *models.User) int {
		if c := cmp.Compare(x.CreatedAt, y.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})

	shuffled := a.NamesAt(now)
	names := make(Names, len(ranked))
	for i, u := range ranked {
		names[u.ID] = pick(shuffled, i)
	}
	return names
}

// pick returns the name for rank i. Past the end of the pool names repeat with
// the cycle number appended so they stay unique.
func pick(names []string, i int) string {
	if len(names) == 0 {
		return fmt.Sprintf("Anonymous %d", i+1)
	}
	if i < len(names) {
		return names[i]
	}
	return fmt.Sprintf("%s%d", names[i%len(names)], i/len(names)+1)
}
