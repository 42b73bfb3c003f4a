// AngelaMos | 2026
// memorymatch.go

package memorymatch

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/carterperez-dev/playvault/internal/games"
)

const (
	Pairs  = 8
	Cards  = Pairs * 2
	Reveal = 800 * time.Millisecond

	perfectScore = 200
	minScore     = 10
	perMoveCost  = 10
)

var Symbols = [Pairs]string{
	"controller", "target", "palette", "masks",
	"circus", "guitar", "trumpet", "keys",
}

var (
	ErrAlreadyStarted = errors.New("game already started")
	ErrNotRunning     = errors.New("game not running")
	ErrPaused         = errors.New("game paused")
	ErrBusy           = errors.New("two cards already face up")
	ErrOutOfRange     = errors.New("card out of range")
	ErrFaceUp         = errors.New("card already face up")
)

// Score rewards finishing close to the perfect Pairs moves.
func Score(moves int) int {
	return max(perfectScore-(moves-Pairs)*perMoveCost, minScore)
}

type Card struct {
	Symbol  string
	Flipped bool
	Matched bool
}

type Config struct {
	Scheduler games.Scheduler
	Rand      *rand.Rand
	OnFinish  func(score int)
}

// Game is one pair-matching session. Two flips make a move; the pair stays
// face up for Reveal before it is checked.
type Game struct {
	mu       sync.Mutex
	sched    games.Scheduler
	rng      *rand.Rand
	onFinish func(score int)

	cards   [Cards]Card
	flipped []int
	moves   int
	matched int
	started bool
	active  bool
	paused  bool

	gen    uint64
	reveal games.Timer
}

func New(cfg Config) *Game {
	sched := cfg.Scheduler
	if sched == nil {
		sched = games.RealScheduler()
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Game{sched: sched, rng: rng, onFinish: cfg.OnFinish}
}

// Start deals the symbols twice each and shuffles them.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return ErrAlreadyStarted
	}

	deck := make([]string, 0, Cards)
	deck = append(deck, Symbols[:]...)
	deck = append(deck, Symbols[:]...)
	shuffle(g.rng, deck)

	for i, s := range deck {
		g.cards[i] = Card{Symbol: s}
	}
	g.started = true
	g.active = true
	return nil
}

// shuffle is a Fisher-Yates shuffle.
func shuffle(rng *rand.Rand, deck []string) {
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

func (g *Game) Flip(i int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case !g.active:
		return ErrNotRunning
	case g.paused:
		return ErrPaused
	case len(g.flipped) >= 2:
		return ErrBusy
	case i < 0 || i >= Cards:
		return ErrOutOfRange
	case g.cards[i].Flipped || g.cards[i].Matched:
		return ErrFaceUp
	}

	g.cards[i].Flipped = true
	g.flipped = append(g.flipped, i)

	if len(g.flipped) == 2 {
		g.moves++
		g.armReveal()
	}
	return nil
}

func (g *Game) armReveal() {
	gen := g.gen
	g.reveal = g.sched.AfterFunc(Reveal, func() { g.check(gen) })
}

// Pause cancels a pending reveal. Face-up cards stay face up.
func (g *Game) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active || g.paused {
		return
	}
	g.paused = true
	g.gen++
	if g.reveal != nil {
		g.reveal.Stop()
		g.reveal = nil
	}
}

func (g *Game) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active || !g.paused {
		return
	}
	g.paused = false
	if len(g.flipped) == 2 {
		g.armReveal()
	}
}

func (g *Game) check(gen uint64) {
	g.mu.Lock()
	if gen != g.gen || !g.active || len(g.flipped) != 2 {
		g.mu.Unlock()
		return
	}

	a, b := g.flipped[0], g.flipped[1]
	g.flipped = nil
	g.reveal = nil

	if g.cards[a].Symbol != g.cards[b].Symbol {
		g.cards[a].Flipped = false
		g.cards[b].Flipped = false
		g.mu.Unlock()
		return
	}

	g.cards[a].Matched = true
	g.cards[b].Matched = true
	g.matched++

	if g.matched < Pairs {
		g.mu.Unlock()
		return
	}

	g.active = false
	score := Score(g.moves)
	g.mu.Unlock()

	if g.onFinish != nil {
		g.onFinish(score)
	}
}

type Snapshot struct {
	Cards    [Cards]Card
	Moves    int
	Matched  int
	Active   bool
	Paused   bool
	Finished bool
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	return Snapshot{
		Cards:    g.cards,
		Moves:    g.moves,
		Matched:  g.matched,
		Active:   g.active,
		Paused:   g.paused,
		Finished: g.started && !g.active,
	}
}
