// AngelaMos | 2026
// platformctl.go

// Package platformctl implements the platformctl command: a thin operator
// tool over the REST client and the in-process game protocol.
package platformctl

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/carterperez-dev/playvault/internal/client"
	"github.com/carterperez-dev/playvault/internal/document"
)

const usage = "usage: platformctl <login|upload|access|simulate> [flags]"

type Config struct {
	Command string

	APIURL       string        `env:"PLAYVAULT_API_URL"       envDefault:"http://localhost:8080"`
	Email        string        `env:"PLAYVAULT_EMAIL"`
	Password     string        `env:"PLAYVAULT_PASSWORD"`
	Timeout      time.Duration `env:"PLAYVAULT_TIMEOUT"       envDefault:"5m"`
	PollInterval time.Duration `env:"PLAYVAULT_POLL_INTERVAL" envDefault:"5s"`

	File       string
	Capability string
	Game       string
	Submit     bool
	JSONOutput bool
}

// ParseConfig reads the environment, then the subcommand and its flags.
// Flags override the environment.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if len(args) == 0 {
		return Config{}, errors.New(usage)
	}
	cfg.Command = args[0]

	fs.StringVar(&cfg.APIURL, "api", cfg.APIURL, "API base URL (default: PLAYVAULT_API_URL)")
	fs.StringVar(&cfg.Email, "email", cfg.Email, "account email (default: PLAYVAULT_EMAIL)")
	fs.StringVar(&cfg.Password, "password", cfg.Password, "account password (default: PLAYVAULT_PASSWORD)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	fs.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "document status poll interval")
	fs.StringVar(&cfg.File, "file", "", "PDF to upload")
	fs.StringVar(&cfg.Capability, "capability", "", "capability to check (game slug or feature key)")
	fs.StringVar(&cfg.Game, "game", "tic_tac_toe", "game to simulate (tic_tac_toe|memory_match|whack_a_mole)")
	fs.BoolVar(&cfg.Submit, "submit", false, "submit the simulated score to the API")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "print JSON instead of text")
	if err := fs.Parse(args[1:]); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Run executes one subcommand.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelWarn}))

	switch cfg.Command {
	case "login":
		c, err := session(ctx, cfg)
		if err != nil {
			return err
		}
		me, err := c.Me(ctx)
		if err != nil {
			return err
		}
		return write(out, cfg, me, func() {
			tier := me.Tier
			if tier == "" {
				tier = "(none)"
			}
			fmt.Fprintf(out, "logged in as %s, tier %s\n", me.Email, tier)
		})

	case "upload":
		return upload(ctx, cfg, out)

	case "access":
		if cfg.Capability == "" {
			return errors.New("-capability is required")
		}
		c, err := session(ctx, cfg)
		if err != nil {
			return err
		}
		resp, err := c.CheckAccess(ctx, cfg.Capability)
		if err != nil {
			return err
		}
		return write(out, cfg, resp, func() {
			if resp.Decision.Granted {
				fmt.Fprintf(out, "%s: granted\n", resp.Capability)
			} else {
				fmt.Fprintf(out, "%s: denied (%s) %s\n",
					resp.Capability, resp.Decision.Reason, resp.Affordance.UpgradePrompt)
			}
			if resp.Ceiling != nil {
				if resp.Ceiling.Unlimited {
					fmt.Fprintln(out, "limit: unlimited")
				} else {
					fmt.Fprintf(out, "limit: %d\n", resp.Ceiling.Limit)
				}
			}
		})

	case "simulate":
		return simulate(ctx, cfg, out, logger)

	default:
		return fmt.Errorf("unknown command %q; %s", cfg.Command, usage)
	}
}

func session(ctx context.Context, cfg Config) (*client.Client, error) {
	c, err := client.New(cfg.APIURL)
	if err != nil {
		return nil, err
	}
	if cfg.Email == "" || cfg.Password == "" {
		return nil, errors.New("-email and -password (or PLAYVAULT_EMAIL and PLAYVAULT_PASSWORD) are required")
	}
	if _, err := c.Login(ctx, cfg.Email, cfg.Password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return c, nil
}

func upload(ctx context.Context, cfg Config, out io.Writer) error {
	if cfg.File == "" {
		return errors.New("-file is required")
	}

	f, err := os.Open(cfg.File)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.File, err)
	}
	defer f.Close()

	c, err := session(ctx, cfg)
	if err != nil {
		return err
	}

	up, err := c.UploadDocument(ctx, cfg.File, f)
	if err != nil {
		return err
	}
	if !cfg.JSONOutput {
		fmt.Fprintf(out, "uploaded %s as %s\n", cfg.File, up.DocumentID)
	}

	last := document.Status("")
	doc, err := c.WatchDocument(ctx, up.DocumentID, cfg.PollInterval, func(d *document.DetailResponse) {
		if d.Status != last && !cfg.JSONOutput {
			fmt.Fprintf(out, "status: %s\n", d.Status)
		}
		last = d.Status
	})
	if err != nil {
		return err
	}

	return write(out, cfg, doc, func() {
		if doc.Status == document.StatusFailed {
			msg := ""
			if doc.ErrorMessage != nil {
				msg = *doc.ErrorMessage
			}
			fmt.Fprintf(out, "processing failed: %s\n", msg)
			return
		}
		fmt.Fprintf(out, "%d words\n", doc.WordCount)
		if doc.ExtractedText != nil {
			fmt.Fprintln(out, *doc.ExtractedText)
		}
	})
}

func write(out io.Writer, cfg Config, v any, text func()) error {
	if !cfg.JSONOutput {
		text()
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
