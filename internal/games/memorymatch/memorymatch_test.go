// AngelaMos | 2026
// memorymatch_test.go

package memorymatch

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/carterperez-dev/playvault/internal/games"
)

func start(t *testing.T, seed uint64) (*Game, *games.ManualScheduler, *[]int) {
	t.Helper()

	sched := games.NewManualScheduler()
	var finished []int
	g := New(Config{
		Scheduler: sched,
		Rand:      rand.New(rand.NewPCG(seed, seed+1)),
		OnFinish:  func(score int) { finished = append(finished, score) },
	})
	if err := g.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return g, sched, &finished
}

// pairs maps each symbol to the two positions holding it.
func pairs(g *Game) map[string][]int {
	out := make(map[string][]int, Pairs)
	for i, c := range g.Snapshot().Cards {
		out[c.Symbol] = append(out[c.Symbol], i)
	}
	return out
}

func move(t *testing.T, g *Game, sched *games.ManualScheduler, a, b int) {
	t.Helper()
	if err := g.Flip(a); err != nil {
		t.Fatalf("flip %d: %v", a, err)
	}
	if err := g.Flip(b); err != nil {
		t.Fatalf("flip %d: %v", b, err)
	}
	sched.Advance(Reveal)
}

func TestDeckIsShuffledPairs(t *testing.T) {
	g, _, _ := start(t, 11)

	p := pairs(g)
	if len(p) != Pairs {
		t.Fatalf("expected %d symbols, got %d", Pairs, len(p))
	}
	for s, idx := range p {
		if len(idx) != 2 {
			t.Fatalf("expected symbol %s twice, got %d", s, len(idx))
		}
	}

	other, _, _ := start(t, 99)
	if g.Snapshot().Cards == other.Snapshot().Cards {
		t.Fatal("expected different seeds to deal different layouts")
	}
}

func TestPerfectGame(t *testing.T) {
	g, sched, finished := start(t, 5)

	for _, idx := range pairs(g) {
		move(t, g, sched, idx[0], idx[1])
	}

	snap := g.Snapshot()
	if !snap.Finished || snap.Moves != 8 || snap.Matched != Pairs {
		t.Fatalf("expected finished in 8 moves, got %+v", snap)
	}
	if len(*finished) != 1 || (*finished)[0] != 200 {
		t.Fatalf("expected a single score of 200, got %v", *finished)
	}

	if err := g.Flip(0); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected input rejected after finish, got %v", err)
	}
}

func TestTwelveMoves(t *testing.T) {
	g, sched, finished := start(t, 8)
	p := pairs(g)

	var symbols []string
	for s := range p {
		symbols = append(symbols, s)
	}

	for i := 0; i < 4; i++ {
		a := p[symbols[0]][0]
		b := p[symbols[1]][0]
		move(t, g, sched, a, b)
	}

	snap := g.Snapshot()
	if snap.Moves != 4 || snap.Matched != 0 {
		t.Fatalf("expected 4 missed moves, got %+v", snap)
	}
	for _, c := range snap.Cards {
		if c.Flipped {
			t.Fatal("expected mismatched cards to be turned back")
		}
	}

	for _, idx := range p {
		move(t, g, sched, idx[0], idx[1])
	}

	if len(*finished) != 1 || (*finished)[0] != 160 {
		t.Fatalf("expected score 160 for 12 moves, got %v", *finished)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		moves int
		want  int
	}{
		{moves: 8, want: 200},
		{moves: 12, want: 160},
		{moves: 27, want: 10},
		{moves: 100, want: 10},
	}

	for _, tc := range tests {
		if got := Score(tc.moves); got != tc.want {
			t.Fatalf("Score(%d): expected %d, got %d", tc.moves, tc.want, got)
		}
	}
}

func TestFlipRules(t *testing.T) {
	g, sched, _ := start(t, 3)
	p := pairs(g)

	a := p[Symbols[0]][0]
	b := p[Symbols[1]][0]
	c := p[Symbols[2]][0]

	if err := g.Flip(Cards); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if err := g.Flip(a); err != nil {
		t.Fatalf("flip: %v", err)
	}
	if err := g.Flip(a); !errors.Is(err, ErrFaceUp) {
		t.Fatalf("expected ErrFaceUp, got %v", err)
	}
	if err := g.Flip(b); err != nil {
		t.Fatalf("flip: %v", err)
	}
	if err := g.Flip(c); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy during reveal, got %v", err)
	}

	sched.Advance(Reveal)
	if err := g.Flip(c); err != nil {
		t.Fatalf("expected flip allowed after reveal, got %v", err)
	}
}

func TestPauseKeepsFlippedCards(t *testing.T) {
	g, sched, _ := start(t, 4)
	p := pairs(g)

	matchA, matchB := p[Symbols[0]][0], p[Symbols[0]][1]
	move(t, g, sched, matchA, matchB)

	x, y := p[Symbols[1]][0], p[Symbols[2]][0]
	if err := g.Flip(x); err != nil {
		t.Fatalf("flip: %v", err)
	}
	if err := g.Flip(y); err != nil {
		t.Fatalf("flip: %v", err)
	}

	g.Pause()
	if n := sched.Pending(); n != 0 {
		t.Fatalf("expected reveal timer cancelled, %d pending", n)
	}

	sched.Advance(10 * Reveal)
	snap := g.Snapshot()
	if !snap.Cards[x].Flipped || !snap.Cards[y].Flipped {
		t.Fatal("expected flipped cards to persist across pause")
	}
	if !snap.Cards[matchA].Matched || snap.Matched != 1 {
		t.Fatal("expected matched pair to persist across pause")
	}
	if err := g.Flip(p[Symbols[3]][0]); !errors.Is(err, ErrPaused) {
		t.Fatalf("expected ErrPaused, got %v", err)
	}

	g.Resume()
	sched.Advance(Reveal)

	snap = g.Snapshot()
	if snap.Cards[x].Flipped || snap.Cards[y].Flipped {
		t.Fatal("expected mismatched pair turned back after resume")
	}
	if snap.Moves != 2 {
		t.Fatalf("expected 2 moves, got %d", snap.Moves)
	}
}
