// AngelaMos | 2026
// pipe.go

package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrPipeClosed = errors.New("pipe closed")

// Pipe connects a host and its content inside one process. Each direction
// is a FIFO queue, so per-sender order is preserved while the two
// directions are independent.
type Pipe struct {
	hostOrigin    string
	contentOrigin string

	toHost    chan Envelope
	toContent chan Envelope

	closeOnce sync.Once
	closed    chan struct{}
}

func NewPipe(hostOrigin, contentOrigin string, buffer int) *Pipe {
	if buffer <= 0 {
		buffer = 16
	}

	return &Pipe{
		hostOrigin:    hostOrigin,
		contentOrigin: contentOrigin,
		toHost:        make(chan Envelope, buffer),
		toContent:     make(chan Envelope, buffer),
		closed:        make(chan struct{}),
	}
}

// HostPoster posts from the host window into the content window.
func (p *Pipe) HostPoster() Poster {
	return &pipePoster{pipe: p, from: p.hostOrigin, to: p.contentOrigin, queue: p.toContent}
}

// ContentPoster posts from the content window into the host window.
func (p *Pipe) ContentPoster() Poster {
	return &pipePoster{pipe: p, from: p.contentOrigin, to: p.hostOrigin, queue: p.toHost}
}

func (p *Pipe) ToHost() <-chan Envelope {
	return p.toHost
}

func (p *Pipe) ToContent() <-chan Envelope {
	return p.toContent
}

func (p *Pipe) Close() {
	p.closeOnce.Do(func() { close(p.closed) })
}

// Run delivers queued envelopes to both sides until ctx is done or the pipe
// is closed. Each direction has its own goroutine.
func (p *Pipe) Run(ctx context.Context, host *HostSession, content *ContentEndpoint) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.closed:
				return
			case env := <-p.toHost:
				host.Receive(ctx, env)
			}
		}
	}()

	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.closed:
				return
			case env := <-p.toContent:
				content.Receive(env)
			}
		}
	}()

	wg.Wait()
}

type pipePoster struct {
	pipe  *Pipe
	from  string
	to    string
	queue chan Envelope
}

// Post follows window.postMessage: a wildcard target is refused, and a
// target that does not match the receiver is silently not delivered.
func (pp *pipePoster) Post(msg Message, targetOrigin string) error {
	if targetOrigin == WildcardOrigin || targetOrigin == "" {
		return ErrWildcardTarget
	}

	data, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	if targetOrigin != pp.to {
		return nil
	}

	select {
	case <-pp.pipe.closed:
		return ErrPipeClosed
	case pp.queue <- Envelope{Origin: pp.from, Data: data}:
		return nil
	}
}
