package service

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-roulette/internal/models"
)

func fastEngine(seed int64) *RouletteEngine {
	return NewRouletteEngineWithConfig(rand.New(rand.NewSource(seed)), 30*time.Millisecond, 5*time.Millisecond)
}

func spinCandidates(titles ...string) []models.MovieItem {
	items := make([]models.MovieItem, 0, len(titles))
	for _, title := range titles {
		items = append(items, models.MovieItem{ID: title, Title: title, Included: true, Type: models.MediaMovie})
	}
	return items
}

func awaitWinner(t *testing.T, ch <-chan models.MovieItem) models.MovieItem {
	t.Helper()
	select {
	case winner := <-ch:
		return winner
	case <-time.After(2 * time.Second):
		t.Fatal("spin did not complete in time")
		return models.MovieItem{}
	}
}

func TestSpinSelectsOneOfTheCandidates(t *testing.T) {
	engine := fastEngine(1)
	candidates := spinCandidates("Dune", "Heat", "The Matrix")

	winnerCh := make(chan models.MovieItem, 1)
	require.True(t, engine.Spin(candidates, func(w models.MovieItem) { winnerCh <- w }))

	winner := awaitWinner(t, winnerCh)
	assert.Contains(t, titlesOf(candidates), winner.Title)

	spinning, displayed := engine.State()
	assert.False(t, spinning)
	assert.Empty(t, displayed)
}

func TestSpinRejectsEmptyCandidateSet(t *testing.T) {
	engine := fastEngine(1)

	assert.False(t, engine.Spin(nil, func(models.MovieItem) { t.Error("unexpected winner") }))

	excluded := spinCandidates("Dune")
	excluded[0].Included = false
	assert.False(t, engine.Spin(excluded, func(models.MovieItem) { t.Error("unexpected winner") }))
}

func TestSpinSkipsExcludedCandidates(t *testing.T) {
	engine := fastEngine(7)
	candidates := spinCandidates("Only", "Never")
	candidates[1].Included = false

	for i := 0; i < 10; i++ {
		winnerCh := make(chan models.MovieItem, 1)
		require.True(t, engine.Spin(candidates, func(w models.MovieItem) { winnerCh <- w }))
		assert.Equal(t, "Only", awaitWinner(t, winnerCh).Title)
	}
}

func TestSecondSpinRejectedWhileRunning(t *testing.T) {
	engine := NewRouletteEngineWithConfig(rand.New(rand.NewSource(1)), 200*time.Millisecond, 5*time.Millisecond)
	candidates := spinCandidates("Dune", "Heat")

	winnerCh := make(chan models.MovieItem, 1)
	require.True(t, engine.Spin(candidates, func(w models.MovieItem) { winnerCh <- w }))
	assert.False(t, engine.Spin(candidates, func(models.MovieItem) { t.Error("second spin must not win") }))

	awaitWinner(t, winnerCh)

	// Idle again: a new spin is accepted.
	require.True(t, engine.Spin(candidates, func(w models.MovieItem) { winnerCh <- w }))
	awaitWinner(t, winnerCh)
}

func TestStopCancelsWithoutWinner(t *testing.T) {
	engine := NewRouletteEngineWithConfig(rand.New(rand.NewSource(1)), 300*time.Millisecond, 5*time.Millisecond)
	candidates := spinCandidates("Dune", "Heat")

	won := make(chan models.MovieItem, 1)
	require.True(t, engine.Spin(candidates, func(w models.MovieItem) { won <- w }))
	time.Sleep(20 * time.Millisecond)
	engine.Stop()

	select {
	case <-won:
		t.Fatal("winner callback fired after Stop")
	case <-time.After(400 * time.Millisecond):
	}

	spinning, displayed := engine.State()
	assert.False(t, spinning)
	assert.Empty(t, displayed)

	// Stop when idle is a no-op.
	engine.Stop()
}

func TestStopRacingDeadlineNeverFiresWinner(t *testing.T) {
	// Zero duration makes the deadline and the (already closed) stop
	// channel ready at the same time; whichever case the select picks,
	// the cancelled spin must not produce a winner.
	engine := NewRouletteEngineWithConfig(rand.New(rand.NewSource(1)), 0, 50*time.Millisecond)
	candidates := spinCandidates("Dune")

	for i := 0; i < 100; i++ {
		stop := make(chan struct{})
		close(stop)
		engine.run(candidates, stop, func(models.MovieItem) {
			t.Fatal("winner callback fired after Stop")
		})

		spinning, displayed := engine.State()
		assert.False(t, spinning)
		assert.Empty(t, displayed)
	}
}

func TestSpinDisplaysFramesWhileRunning(t *testing.T) {
	engine := NewRouletteEngineWithConfig(rand.New(rand.NewSource(1)), 200*time.Millisecond, 5*time.Millisecond)
	candidates := spinCandidates("Dune", "Heat")

	winnerCh := make(chan models.MovieItem, 1)
	require.True(t, engine.Spin(candidates, func(w models.MovieItem) { winnerCh <- w }))

	assert.Eventually(t, func() bool {
		spinning, displayed := engine.State()
		return spinning && displayed != ""
	}, 150*time.Millisecond, 5*time.Millisecond)

	awaitWinner(t, winnerCh)
}

func TestSpinOutcomeIsRoughlyUniform(t *testing.T) {
	engine := NewRouletteEngineWithConfig(rand.New(rand.NewSource(42)), 2*time.Millisecond, time.Millisecond)
	candidates := spinCandidates("A", "B", "C")

	counts := map[string]int{}
	const spins = 300
	for i := 0; i < spins; i++ {
		winnerCh := make(chan models.MovieItem, 1)
		require.True(t, engine.Spin(candidates, func(w models.MovieItem) { winnerCh <- w }))
		counts[awaitWinner(t, winnerCh).Title]++
	}

	for _, title := range []string{"A", "B", "C"} {
		assert.Greater(t, counts[title], spins/10, "candidate %s starved", title)
	}
}

func TestLaterMutationsCannotAffectCapturedSet(t *testing.T) {
	engine := NewRouletteEngineWithConfig(rand.New(rand.NewSource(3)), 150*time.Millisecond, 5*time.Millisecond)
	candidates := spinCandidates("Dune", "Heat")

	winnerCh := make(chan models.MovieItem, 1)
	require.True(t, engine.Spin(candidates, func(w models.MovieItem) { winnerCh <- w }))

	// Mutating the caller's slice mid-spin must not leak into the draw.
	candidates[0].Title = "Mutated"
	candidates[1].Title = "Mutated"

	winner := awaitWinner(t, winnerCh)
	assert.Contains(t, []string{"Dune", "Heat"}, winner.Title)
}
