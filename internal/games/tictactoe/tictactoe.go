// AngelaMos | 2026
// tictactoe.go

package tictactoe

import (
	"errors"
	"sync"
)

type Mark string

const (
	Empty Mark = ""
	X     Mark = "X"
	O     Mark = "O"
)

type Result int

const (
	InProgress Result = iota
	XWins
	OWins
	Draw
)

func (r Result) String() string {
	switch r {
	case XWins:
		return "X wins"
	case OWins:
		return "O wins"
	case Draw:
		return "draw"
	default:
		return "in progress"
	}
}

const (
	DrawScore    = 50
	minWinScore  = 10
	winBaseScore = 100
	perMoveCost  = 5
)

var (
	ErrOutOfRange = errors.New("cell out of range")
	ErrCellTaken  = errors.New("cell already taken")
	ErrFinished   = errors.New("game finished")
	ErrPaused     = errors.New("game paused")
)

var lines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Game is one grid game session. The zero value is not usable.
type Game struct {
	mu       sync.Mutex
	board    [9]Mark
	current  Mark
	moves    int
	result   Result
	winLine  [3]int
	paused   bool
	onFinish func(score int)
}

// New starts a game with X to move. onFinish is called once with the score
// when the game ends.
func New(onFinish func(score int)) *Game {
	return &Game{current: X, onFinish: onFinish}
}

// WinScore rewards short games: fewer moves, higher score.
func WinScore(moves int) int {
	return max(winBaseScore-moves*perMoveCost, minWinScore)
}

// Move places the current player's mark on cell 0..8.
func (g *Game) Move(cell int) error {
	g.mu.Lock()

	switch {
	case g.result != InProgress:
		g.mu.Unlock()
		return ErrFinished
	case g.paused:
		g.mu.Unlock()
		return ErrPaused
	case cell < 0 || cell >= len(g.board):
		g.mu.Unlock()
		return ErrOutOfRange
	case g.board[cell] != Empty:
		g.mu.Unlock()
		return ErrCellTaken
	}

	g.board[cell] = g.current
	g.moves++

	score, done := g.settle()
	g.mu.Unlock()

	if done && g.onFinish != nil {
		g.onFinish(score)
	}
	return nil
}

func (g *Game) settle() (int, bool) {
	for _, l := range lines {
		a, b, c := g.board[l[0]], g.board[l[1]], g.board[l[2]]
		if a != Empty && a == b && b == c {
			g.winLine = l
			if a == X {
				g.result = XWins
			} else {
				g.result = OWins
			}
			return WinScore(g.moves), true
		}
	}

	if g.moves == len(g.board) {
		g.result = Draw
		return DrawScore, true
	}

	if g.current == X {
		g.current = O
	} else {
		g.current = X
	}
	return 0, false
}

// Pause blocks input. The grid game has no timers to cancel.
func (g *Game) Pause() {
	g.mu.Lock()
	g.paused = true
	g.mu.Unlock()
}

func (g *Game) Resume() {
	g.mu.Lock()
	g.paused = false
	g.mu.Unlock()
}

type Snapshot struct {
	Board   [9]Mark
	Current Mark
	Moves   int
	Result  Result
	WinLine [3]int
	Paused  bool
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	return Snapshot{
		Board:   g.board,
		Current: g.current,
		Moves:   g.moves,
		Result:  g.result,
		WinLine: g.winLine,
		Paused:  g.paused,
	}
}
