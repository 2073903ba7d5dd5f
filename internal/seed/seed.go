package seed

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/2beens/bodylog/internal/entries"
	"github.com/2beens/bodylog/internal/store"

	"github.com/brianvoe/gofakeit/v6"
	log "github.com/sirupsen/logrus"
)

// Result counts the entries written per kind.
type Result struct {
	Weights   int
	Exercises int
	Journals  int
}

func (r Result) String() string {
	return fmt.Sprintf("%d weights, %d exercises, %d journal entries", r.Weights, r.Exercises, r.Journals)
}

// Seeder writes sample entries through the entry repositories.
type Seeder struct {
	weights   *entries.Repository[entries.WeightEntry]
	exercises *entries.Repository[entries.ExerciseEntry]
	journals  *entries.Repository[entries.JournalEntry]
}

func NewSeeder(s store.Store) *Seeder {
	return &Seeder{
		weights:   entries.NewWeightRepository(s),
		exercises: entries.NewExerciseRepository(s),
		journals:  entries.NewJournalRepository(s),
	}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func intPtr(i int) *int {
	return &i
}

// FixedWeights, FixedExercises and FixedJournals are the sample set written by Fixed.
var (
	FixedWeights = []entries.WeightEntry{
		{Date: date(2025, time.May, 1), Weight: 85},
		{Date: date(2025, time.May, 15), Weight: 84},
		{Date: date(2025, time.June, 1), Weight: 83.5},
		{Date: date(2025, time.June, 15), Weight: 82},
	}
	FixedExercises = []entries.ExerciseEntry{
		{Date: date(2025, time.June, 14), Description: "Evening 3km run", Duration: intPtr(25)},
		{Date: date(2025, time.June, 15), Description: "Full body workout at gym", Duration: intPtr(60)},
	}
	FixedJournals = []entries.JournalEntry{
		{
			Date:    date(2025, time.June, 14),
			Title:   "Productive Day",
			Content: "Managed to stick to my diet and got a run in. Feeling good.",
		},
		{
			Date:    date(2025, time.June, 15),
			Title:   "Weekend Reflections",
			Content: "Gym session was tough but rewarding. Need to focus on hydration more.",
		},
	}
)

// Fixed writes the fixed sample set.
func (s *Seeder) Fixed(ctx context.Context) (Result, error) {
	return s.write(ctx, FixedWeights, FixedExercises, FixedJournals)
}

// Random writes n entries of each kind, one per day, ending at until.
// The same seed always produces the same entries.
func (s *Seeder) Random(ctx context.Context, n int, seed int64, until time.Time) (Result, error) {
	if n <= 0 {
		return Result{}, fmt.Errorf("entries count must be positive, got %d", n)
	}

	faker := gofakeit.New(seed)
	until = until.UTC().Truncate(24 * time.Hour)

	weights := make([]entries.WeightEntry, 0, n)
	exercises := make([]entries.ExerciseEntry, 0, n)
	journals := make([]entries.JournalEntry, 0, n)

	// weights follow a random walk
	weight := faker.Float64Range(70, 95)
	for i := n - 1; i >= 0; i-- {
		day := until.AddDate(0, 0, -i)

		weight = math.Max(40, weight+faker.Float64Range(-0.6, 0.5))
		weights = append(weights, entries.WeightEntry{
			Date:   day,
			Weight: math.Round(weight*10) / 10,
		})

		exercise := entries.ExerciseEntry{
			Date:        day,
			Description: faker.Sentence(faker.IntRange(2, 5)),
		}
		if faker.Bool() {
			exercise.Duration = intPtr(faker.IntRange(10, 120))
		}
		exercises = append(exercises, exercise)

		journal := entries.JournalEntry{
			Date:    day,
			Content: faker.Paragraph(1, faker.IntRange(1, 4), 12, " "),
		}
		if faker.Bool() {
			journal.Title = faker.Sentence(3)
		}
		journals = append(journals, journal)
	}

	return s.write(ctx, weights, exercises, journals)
}

func (s *Seeder) write(
	ctx context.Context,
	weights []entries.WeightEntry,
	exercises []entries.ExerciseEntry,
	journals []entries.JournalEntry,
) (Result, error) {
	var res Result
	for _, w := range weights {
		if _, err := s.weights.Create(ctx, w); err != nil {
			return res, err
		}
		res.Weights++
	}
	for _, e := range exercises {
		if _, err := s.exercises.Create(ctx, e); err != nil {
			return res, err
		}
		res.Exercises++
	}
	for _, j := range journals {
		if _, err := s.journals.Create(ctx, j); err != nil {
			return res, err
		}
		res.Journals++
	}

	log.Debugf("seeded %s", res)
	return res, nil
}
