// AngelaMos | 2026
// whackamole.go

package whackamole

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/carterperez-dev/playvault/internal/games"
)

const (
	Duration = 30
	Holes    = 9
	Tick     = time.Second
	MinSpawn = 500 * time.Millisecond
	MaxSpawn = 1500 * time.Millisecond
	noMole   = -1
)

var (
	ErrAlreadyStarted = errors.New("game already started")
	ErrNotRunning     = errors.New("game not running")
)

type Config struct {
	Scheduler games.Scheduler
	Rand      *rand.Rand
	OnFinish  func(score int)
}

// Game is one timed reaction session. The countdown and the mole spawner
// are separate timers; both are cancelled on pause and reissued on resume.
type Game struct {
	mu       sync.Mutex
	sched    games.Scheduler
	rng      *rand.Rand
	onFinish func(score int)

	timeLeft int
	score    int
	up       int
	started  bool
	active   bool
	paused   bool

	gen       uint64
	countdown games.Timer
	spawner   games.Timer
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

	return &Game{
		sched:    sched,
		rng:      rng,
		onFinish: cfg.OnFinish,
		timeLeft: Duration,
		up:       noMole,
	}
}

func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return ErrAlreadyStarted
	}

	g.started = true
	g.active = true
	g.timeLeft = Duration
	g.score = 0
	g.armCountdown()
	g.spawn()
	return nil
}

// Whack hits hole. It reports whether a mole was there.
func (g *Game) Whack(hole int) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active || g.paused {
		return false, ErrNotRunning
	}
	if hole != g.up || hole == noMole {
		return false, nil
	}

	g.score++
	g.up = noMole
	return true, nil
}

func (g *Game) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active || g.paused {
		return
	}
	g.paused = true
	g.cancelTimers()
}

func (g *Game) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active || !g.paused {
		return
	}
	g.paused = false
	g.armCountdown()
	g.armSpawner()
}

func (g *Game) cancelTimers() {
	g.gen++
	if g.countdown != nil {
		g.countdown.Stop()
		g.countdown = nil
	}
	if g.spawner != nil {
		g.spawner.Stop()
		g.spawner = nil
	}
}

func (g *Game) armCountdown() {
	gen := g.gen
	g.countdown = g.sched.AfterFunc(Tick, func() { g.tick(gen) })
}

func (g *Game) armSpawner() {
	gen := g.gen
	delay := MinSpawn + time.Duration(g.rng.Int64N(int64(MaxSpawn-MinSpawn)+1))
	g.spawner = g.sched.AfterFunc(delay, func() { g.spawnTick(gen) })
}

func (g *Game) spawn() {
	g.up = g.rng.IntN(Holes)
	g.armSpawner()
}

// tick and spawnTick ignore callbacks from a timer that was cancelled after
// it had already fired.
func (g *Game) tick(gen uint64) {
	g.mu.Lock()
	if gen != g.gen || !g.active {
		g.mu.Unlock()
		return
	}

	g.timeLeft--
	if g.timeLeft > 0 {
		g.armCountdown()
		g.mu.Unlock()
		return
	}

	g.active = false
	g.up = noMole
	g.cancelTimers()
	score := g.score
	g.mu.Unlock()

	if g.onFinish != nil {
		g.onFinish(score)
	}
}

func (g *Game) spawnTick(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if gen != g.gen || !g.active {
		return
	}
	g.spawn()
}

type Snapshot struct {
	TimeLeft int
	Score    int
	UpHole   int
	Active   bool
	Paused   bool
	Finished bool
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	return Snapshot{
		TimeLeft: g.timeLeft,
		Score:    g.score,
		UpHole:   g.up,
		Active:   g.active,
		Paused:   g.paused,
		Finished: g.started && !g.active,
	}
}
