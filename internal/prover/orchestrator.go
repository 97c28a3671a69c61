// Package prover serializes requests to the external proving engine. The
// engine is a heavyweight, stateful, CPU-bound resource shared across both
// proof kinds, so at most one request is ever in flight per orchestrator and
// an orchestrator belongs to exactly one player.
package prover

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"triad/internal/ports"
)

// Status is the lifecycle of a single proof request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
	StatusStale      Status = "stale"
)

// Kind distinguishes the two proof request types sharing the queue.
type Kind string

const (
	KindHand Kind = "hand"
	KindMove Kind = "move"
)

var (
	// ErrStale resolves requests whose epoch was abandoned before completion.
	ErrStale = errors.New("proof request epoch is stale")
	// ErrClosed is returned for requests submitted after Close.
	ErrClosed = errors.New("proof orchestrator is closed")
	// ErrBusy is returned when the request queue is full.
	ErrBusy = errors.New("proof request queue is full")
)

// Pending is the future handle for one queued proof request.
type Pending struct {
	kind  Kind
	epoch uint64

	mu       sync.Mutex
	status   Status
	artifact ports.ProofArtifact
	err      error
	done     chan struct{}
}

// Kind returns the request's proof kind.
func (p *Pending) Kind() Kind {
	return p.kind
}

// Epoch returns the orchestrator epoch the request was submitted under.
func (p *Pending) Epoch() uint64 {
	return p.epoch
}

// Status returns the request's current lifecycle status.
func (p *Pending) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Done is closed once the request has resolved (ready, failed or stale).
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Result blocks until the request resolves and returns the artifact or the
// terminal error. Failed requests are never retried internally; resubmission
// is the caller's explicit decision.
func (p *Pending) Result() (ports.ProofArtifact, error) {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.artifact, p.err
}

func (p *Pending) markGenerating() {
	p.mu.Lock()
	p.status = StatusGenerating
	p.mu.Unlock()
}

func (p *Pending) resolve(artifact ports.ProofArtifact, err error) {
	p.mu.Lock()
	switch {
	case errors.Is(err, ErrStale):
		p.status = StatusStale
		p.err = ErrStale
	case err != nil:
		p.status = StatusFailed
		p.err = err
	default:
		p.status = StatusReady
		p.artifact = artifact
	}
	p.mu.Unlock()
	close(p.done)
}

type request struct {
	pending *Pending
	run     func(ctx context.Context) (ports.ProofArtifact, error)
}

// Orchestrator owns the single-concurrency FIFO queue in front of a Prover.
type Orchestrator struct {
	prover ports.Prover
	log    zerolog.Logger

	mu     sync.Mutex
	epoch  uint64
	closed bool

	queue  chan *request
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts an orchestrator with one background worker.
func New(p ports.Prover, log zerolog.Logger) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		prover: p,
		log:    log,
		queue:  make(chan *request, 32),
		ctx:    ctx,
		cancel: cancel,
	}
	o.wg.Add(1)
	go o.worker()
	return o
}

// Epoch returns the current generation token. Requests resolve normally only
// while the epoch they were submitted under is still current.
func (o *Orchestrator) Epoch() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.epoch
}

// Abandon invalidates every request submitted under the current epoch. Late
// results for stale requests are discarded rather than applied.
func (o *Orchestrator) Abandon() {
	o.mu.Lock()
	o.epoch++
	epoch := o.epoch
	o.mu.Unlock()
	o.log.Debug().Uint64("epoch", epoch).Msg("prover epoch abandoned")
}

// RequestHandProof queues a hand proof request and returns its future.
func (o *Orchestrator) RequestHandProof(w ports.HandWitness) (*Pending, error) {
	return o.enqueue(KindHand, func(ctx context.Context) (ports.ProofArtifact, error) {
		return o.prover.ProveHand(ctx, w)
	})
}

// RequestMoveProof queues a move proof request and returns its future. A move
// proof queues behind any still-pending hand proof.
func (o *Orchestrator) RequestMoveProof(w ports.MoveWitness) (*Pending, error) {
	return o.enqueue(KindMove, func(ctx context.Context) (ports.ProofArtifact, error) {
		return o.prover.ProveMove(ctx, w)
	})
}

func (o *Orchestrator) enqueue(kind Kind, run func(ctx context.Context) (ports.ProofArtifact, error)) (*Pending, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	p := &Pending{
		kind:   kind,
		epoch:  o.epoch,
		status: StatusPending,
		done:   make(chan struct{}),
	}
	req := &request{pending: p, run: run}
	select {
	case o.queue <- req:
		o.mu.Unlock()
		return p, nil
	default:
		o.mu.Unlock()
		return nil, ErrBusy
	}
}

// Close stops the worker. Queued requests resolve as stale; an in-flight
// prover call is cancelled via its context.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.epoch++
	close(o.queue)
	o.mu.Unlock()

	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for req := range o.queue {
		p := req.pending
		if p.epoch != o.Epoch() {
			p.resolve(ports.ProofArtifact{}, ErrStale)
			continue
		}

		p.markGenerating()
		o.log.Debug().Str("kind", string(p.kind)).Uint64("epoch", p.epoch).Msg("proof generation started")
		artifact, err := req.run(o.ctx)

		// The caller may have abandoned the match while the prover was
		// running; a late result for a stale epoch is dropped.
		if p.epoch != o.Epoch() {
			o.log.Debug().Str("kind", string(p.kind)).Uint64("epoch", p.epoch).Msg("discarding stale proof result")
			p.resolve(ports.ProofArtifact{}, ErrStale)
			continue
		}
		if err != nil {
			o.log.Warn().Err(err).Str("kind", string(p.kind)).Msg("proof generation failed")
		} else {
			o.log.Debug().Str("kind", string(p.kind)).Msg("proof generation finished")
		}
		p.resolve(artifact, err)
	}
}
