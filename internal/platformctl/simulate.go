// AngelaMos | 2026
// simulate.go

package platformctl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/carterperez-dev/playvault/internal/games"
	"github.com/carterperez-dev/playvault/internal/games/memorymatch"
	"github.com/carterperez-dev/playvault/internal/games/tictactoe"
	"github.com/carterperez-dev/playvault/internal/games/whackamole"
	"github.com/carterperez-dev/playvault/internal/protocol"
)

const localOrigin = "http://localhost"

// player is a scripted opponent for one reference game.
type player interface {
	protocol.Controller
	Play() error
}

type ticTacToePlayer struct {
	*tictactoe.Game
}

// Play wins along the top row in five moves.
func (p ticTacToePlayer) Play() error {
	for _, cell := range []int{0, 3, 1, 4, 2} {
		if err := p.Move(cell); err != nil {
			return err
		}
	}
	return nil
}

type memoryMatchPlayer struct {
	*memorymatch.Game
	sched *games.ManualScheduler
}

// Play remembers every card and clears the board in the minimum moves.
func (p memoryMatchPlayer) Play() error {
	if err := p.Start(); err != nil {
		return err
	}

	bySymbol := map[string][]int{}
	for i, c := range p.Snapshot().Cards {
		bySymbol[c.Symbol] = append(bySymbol[c.Symbol], i)
	}

	for _, s := range memorymatch.Symbols {
		pair := bySymbol[s]
		for _, i := range pair {
			if err := p.Flip(i); err != nil {
				return err
			}
		}
		p.sched.Advance(memorymatch.Reveal)
	}
	return nil
}

type whackAMolePlayer struct {
	*whackamole.Game
	sched *games.ManualScheduler
}

// Play whacks whichever mole is up at the start of every second until the
// countdown runs out.
func (p whackAMolePlayer) Play() error {
	if err := p.Start(); err != nil {
		return err
	}

	for i := 0; i < whackamole.Duration; i++ {
		if hole := p.Snapshot().UpHole; hole >= 0 {
			if _, err := p.Whack(hole); err != nil {
				return err
			}
		}
		p.sched.Advance(whackamole.Tick)
	}
	return nil
}

func newPlayer(slug string, report func(score int)) (player, error) {
	switch slug {
	case "tic_tac_toe":
		return ticTacToePlayer{tictactoe.New(report)}, nil
	case "memory_match":
		sched := games.NewManualScheduler()
		g := memorymatch.New(memorymatch.Config{
			Scheduler: sched,
			Rand:      rand.New(rand.NewPCG(1, 2)),
			OnFinish:  report,
		})
		return memoryMatchPlayer{Game: g, sched: sched}, nil
	case "whack_a_mole":
		sched := games.NewManualScheduler()
		g := whackamole.New(whackamole.Config{
			Scheduler: sched,
			Rand:      rand.New(rand.NewPCG(3, 4)),
			OnFinish:  report,
		})
		return whackAMolePlayer{Game: g, sched: sched}, nil
	default:
		return nil, fmt.Errorf("cannot simulate %q", slug)
	}
}

type printSubmitter struct {
	out io.Writer
}

func (p printSubmitter) SubmitScore(ctx context.Context, sub protocol.Submission) error {
	fmt.Fprintf(p.out, "score %g for %s (not submitted)\n", sub.Score, sub.GameSlug)
	return nil
}

// simulate runs a reference game as embedded content against a host
// session, both in process, over the message pipe.
func simulate(ctx context.Context, cfg Config, out io.Writer, logger *slog.Logger) error {
	origin := localOrigin
	var submitter protocol.ScoreSubmitter = printSubmitter{out: out}
	if cfg.Submit {
		c, err := session(ctx, cfg)
		if err != nil {
			return err
		}
		origin = c.Origin()
		submitter = c
	}

	pipe := protocol.NewPipe(origin, origin, 16)
	defer pipe.Close()

	host := protocol.NewHostSession(protocol.HostConfig{
		Origin:    origin,
		GameSlug:  cfg.Game,
		Poster:    pipe.HostPoster(),
		Submitter: submitter,
		Logger:    logger,
	})

	var content *protocol.ContentEndpoint
	report := func(score int) {
		if err := content.ReportScore(float64(score)); err != nil {
			logger.Warn("report score failed", "error", err)
		}
	}

	p, err := newPlayer(cfg.Game, report)
	if err != nil {
		return err
	}
	content = protocol.NewContentEndpoint(origin, pipe.ContentPoster(), p, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go pipe.Run(runCtx, host, content)

	if err := host.Open(); err != nil {
		return err
	}
	if err := content.Announce(); err != nil {
		return err
	}
	if err := waitReady(ctx, content); err != nil {
		return err
	}

	if err := p.Play(); err != nil {
		return fmt.Errorf("play %s: %w", cfg.Game, err)
	}

	select {
	case <-host.Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	final, submitErr := host.Result()
	if submitErr != nil {
		return fmt.Errorf("submit score: %w", submitErr)
	}

	return write(out, cfg, final, func() {
		fmt.Fprintf(out, "%s finished with score %g\n", cfg.Game, final.Score)
	})
}

func waitReady(ctx context.Context, content *protocol.ContentEndpoint) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for !content.PlatformReady() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for platform ready: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
