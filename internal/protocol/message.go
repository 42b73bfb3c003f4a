// AngelaMos | 2026
// message.go

// Package protocol implements the message exchange between a host page and
// the sandboxed game content it embeds. Every inbound message is checked
// against the host origin and decoded into a typed Message before any field
// is read.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

type Type string

const (
	TypePlatformReady Type = "PLATFORM_READY"
	TypePauseGame     Type = "PAUSE_GAME"
	TypeResumeGame    Type = "RESUME_GAME"
	TypeGameReady     Type = "GAME_READY"
	TypeGameScore     Type = "GAME_SCORE"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// Message is the tagged union of every body that may cross the boundary.
type Message interface {
	Type() Type
}

type PlatformReady struct{}

type PauseGame struct{}

type ResumeGame struct{}

type GameReady struct{}

// GameScore carries the final score of a session. Timestamp is milliseconds
// since the Unix epoch as reported by the content.
type GameScore struct {
	Score     float64
	Timestamp float64
}

func (PlatformReady) Type() Type { return TypePlatformReady }
func (PauseGame) Type() Type     { return TypePauseGame }
func (ResumeGame) Type() Type    { return TypeResumeGame }
func (GameReady) Type() Type     { return TypeGameReady }
func (GameScore) Type() Type     { return TypeGameScore }

type wireScore struct {
	Type      Type    `json:"type"`
	Score     float64 `json:"score"`
	Timestamp float64 `json:"timestamp"`
}

type wireBare struct {
	Type Type `json:"type"`
}

// Encode renders m in its exact wire shape.
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case GameScore:
		return json.Marshal(wireScore{Type: TypeGameScore, Score: v.Score, Timestamp: v.Timestamp})
	case PlatformReady, PauseGame, ResumeGame, GameReady:
		return json.Marshal(wireBare{Type: v.Type()})
	case nil:
		return nil, fmt.Errorf("%w: nil message", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, m)
	}
}

// Decode parses raw into a Message. The body must be a JSON object with a
// string type. GAME_SCORE additionally requires score and timestamp to be
// finite JSON numbers; strings, nulls and missing fields are rejected.
func Decode(raw []byte) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: body is not an object", ErrMalformed)
	}

	rawType, ok := fields["type"]
	if !ok {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	var t Type
	if err := json.Unmarshal(rawType, &t); err != nil || isNull(rawType) {
		return nil, fmt.Errorf("%w: type must be a string", ErrMalformed)
	}

	switch t {
	case TypePlatformReady:
		return PlatformReady{}, nil
	case TypePauseGame:
		return PauseGame{}, nil
	case TypeResumeGame:
		return ResumeGame{}, nil
	case TypeGameReady:
		return GameReady{}, nil
	case TypeGameScore:
		score, err := number(fields, "score")
		if err != nil {
			return nil, err
		}
		ts, err := number(fields, "timestamp")
		if err != nil {
			return nil, err
		}
		return GameScore{Score: score, Timestamp: ts}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

func number(fields map[string]json.RawMessage, key string) (float64, error) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return 0, fmt.Errorf("%w: %s is required", ErrMalformed, key)
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", ErrMalformed, key)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%w: %s must be finite", ErrMalformed, key)
	}

	return n, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
