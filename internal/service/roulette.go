package service

import (
	"math/rand"
	"sync"
	"time"

	"movie-roulette/internal/models"
)

const (
	// DefaultSpinDuration is the wall-clock length of the reveal animation.
	DefaultSpinDuration = 2500 * time.Millisecond
	// DefaultFrameInterval is the cadence of the slot-machine display frames.
	DefaultFrameInterval = 50 * time.Millisecond
)

// RouletteEngine runs the timed randomized-reveal selection. At most one
// spin is in flight; the candidate set is captured at spin start so later
// collection changes cannot affect it. Display frames are presentational
// only; the winner is an independent uniform draw at the deadline.
type RouletteEngine struct {
	mu            sync.Mutex
	rng           *rand.Rand
	duration      time.Duration
	frameInterval time.Duration
	spinning      bool
	displayed     string
	stop          chan struct{}
}

// NewRouletteEngine creates an engine with the production timing.
func NewRouletteEngine() *RouletteEngine {
	return NewRouletteEngineWithConfig(rand.New(rand.NewSource(time.Now().UnixNano())), DefaultSpinDuration, DefaultFrameInterval)
}

// NewRouletteEngineWithConfig creates an engine with explicit randomness
// and timing, used by tests.
func NewRouletteEngineWithConfig(rng *rand.Rand, duration, frameInterval time.Duration) *RouletteEngine {
	return &RouletteEngine{
		rng:           rng,
		duration:      duration,
		frameInterval: frameInterval,
	}
}

// Spin starts a spin over the candidates, invoking onWin with the winner
// exactly once when the reveal completes. Candidates with Included=false
// are dropped defensively. Returns false without starting anything when a
// spin is already in flight or no candidate is eligible.
func (e *RouletteEngine) Spin(candidates []models.MovieItem, onWin func(models.MovieItem)) bool {
	eligible := make([]models.MovieItem, 0, len(candidates))
	for _, c := range candidates {
		if c.Included {
			eligible = append(eligible, c)
		}
	}

	e.mu.Lock()
	if e.spinning || len(eligible) == 0 {
		e.mu.Unlock()
		return false
	}
	e.spinning = true
	stop := make(chan struct{})
	e.stop = stop
	e.mu.Unlock()

	go e.run(eligible, stop, onWin)
	return true
}

func (e *RouletteEngine) run(captured []models.MovieItem, stop chan struct{}, onWin func(models.MovieItem)) {
	ticker := time.NewTicker(e.frameInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(e.duration)
	defer deadline.Stop()

	for {
		select {
		case <-stop:
			e.mu.Lock()
			e.spinning = false
			e.displayed = ""
			e.mu.Unlock()
			return

		case <-ticker.C:
			e.mu.Lock()
			e.displayed = captured[e.rng.Intn(len(captured))].Title
			e.mu.Unlock()

		case <-deadline.C:
			e.mu.Lock()
			// Stop may have closed the channel while both cases were
			// ready; a cancelled spin never produces a winner.
			select {
			case <-stop:
				e.spinning = false
				e.displayed = ""
				e.mu.Unlock()
				return
			default:
			}
			// Independent final draw; frames had no bearing on it.
			winner := captured[e.rng.Intn(len(captured))]
			e.spinning = false
			e.displayed = ""
			e.stop = nil
			e.mu.Unlock()

			onWin(winner)
			return
		}
	}
}

// Stop cancels an in-flight spin. The winner callback will not fire.
// Safe to call when idle.
func (e *RouletteEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.spinning && e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

// State returns whether a spin is in flight and the currently displayed
// frame title.
func (e *RouletteEngine) State() (spinning bool, displayed string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spinning, e.displayed
}
