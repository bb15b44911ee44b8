package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/rtcbridge/internal/domain"
	"github.com/dkeye/rtcbridge/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Completion delivers the outcome of an asynchronous operation. Exactly one of its
// continuations runs, exactly once; later Succeed or Fail calls are ignored.
type Completion[T any] struct {
	once      sync.Once
	onSuccess func(T)
	onFailure func(error)
}

func NewCompletion[T any](onSuccess func(T), onFailure func(error)) *Completion[T] {
	return &Completion[T]{onSuccess: onSuccess, onFailure: onFailure}
}

// Succeed reports v. It returns false if the completion had already fired.
func (c *Completion[T]) Succeed(v T) bool {
	fired := false
	c.once.Do(func() {
		fired = true
		if c.onSuccess != nil {
			c.onSuccess(v)
		}
	})
	return fired
}

// Fail reports err. It returns false if the completion had already fired.
func (c *Completion[T]) Fail(err error) bool {
	fired := false
	c.once.Do(func() {
		fired = true
		if c.onFailure != nil {
			c.onFailure(err)
		}
	})
	return fired
}

// Negotiator runs offer/answer operations against registered connections. Every
// operation returns at once and completes on its own goroutine. Signaling state
// transitions are left entirely to the engine.
type Negotiator struct {
	Registry *Registry

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewNegotiator(reg *Registry) *Negotiator {
	return &Negotiator{Registry: reg}
}

// Close refuses new operations with ErrInvalidState and blocks until every
// in-flight operation has completed.
func (n *Negotiator) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *Negotiator) CreateOffer(id domain.ConnectionID, rawConstraints map[string]any, done *Completion[domain.SessionDescription]) {
	constraints, err := domain.ParseConstraints(rawConstraints)
	runOp(n, "createOffer", id, domain.ErrOfferFailed, err, done,
		func(ctx context.Context, conn *Connection) (domain.SessionDescription, error) {
			return conn.pc.CreateOffer(ctx, constraints)
		})
}

func (n *Negotiator) CreateAnswer(id domain.ConnectionID, rawConstraints map[string]any, done *Completion[domain.SessionDescription]) {
	constraints, err := domain.ParseConstraints(rawConstraints)
	runOp(n, "createAnswer", id, domain.ErrAnswerFailed, err, done,
		func(ctx context.Context, conn *Connection) (domain.SessionDescription, error) {
			return conn.pc.CreateAnswer(ctx, constraints)
		})
}

func (n *Negotiator) SetLocalDescription(id domain.ConnectionID, d domain.SessionDescription, done *Completion[struct{}]) {
	runOp(n, "setLocalDescription", id, domain.ErrSetLocalFailed, nil, done,
		func(ctx context.Context, conn *Connection) (struct{}, error) {
			return struct{}{}, conn.pc.SetLocalDescription(ctx, d)
		})
}

func (n *Negotiator) SetRemoteDescription(id domain.ConnectionID, d domain.SessionDescription, done *Completion[struct{}]) {
	runOp(n, "setRemoteDescription", id, domain.ErrSetRemoteFailed, nil, done,
		func(ctx context.Context, conn *Connection) (struct{}, error) {
			return struct{}{}, conn.pc.SetRemoteDescription(ctx, d)
		})
}

// AddICECandidate applies a remote candidate synchronously. Engine rejection is
// logged and not retried; only an unknown or closed connection is an error.
func (n *Negotiator) AddICECandidate(id domain.ConnectionID, c domain.ICECandidate) error {
	conn, err := n.Registry.Lookup(id)
	if err != nil {
		return err
	}
	if err := conn.pc.AddICECandidate(c); err != nil {
		log.Warn().Err(err).Str("module", "app.negotiation").Str("pc", string(id)).Str("candidate", c.Candidate).Msg("add ice candidate")
	}
	return nil
}

// runOp validates synchronously, then runs call on a new goroutine and reports through done.
// A result arriving after the connection was closed is reported as ErrNotFound.
func runOp[T any](
	n *Negotiator,
	op string,
	id domain.ConnectionID,
	kind error,
	parseErr error,
	done *Completion[T],
	call func(ctx context.Context, conn *Connection) (T, error),
) {
	fail := func(err error) {
		metrics.NegotiationFailuresTotal.WithLabelValues(op, domain.ErrorCode(err)).Inc()
		log.Warn().Err(err).Str("module", "app.negotiation").Str("pc", string(id)).Str("op", op).Msg("operation failed")
		done.Fail(err)
	}

	var conn *Connection
	err := parseErr
	if err == nil {
		conn, err = n.Registry.Lookup(id)
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		go fail(fmt.Errorf("%w: negotiator is shut down", domain.ErrInvalidState))
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()
		if err != nil {
			fail(err)
			return
		}

		v, callErr := invoke(conn, op, call)
		if !n.Registry.alive(conn) {
			fail(fmt.Errorf("%w: peer connection %s closed during %s", domain.ErrNotFound, id, op))
			return
		}
		if callErr != nil {
			if !errors.Is(callErr, domain.ErrEngineFault) {
				callErr = domain.NewNegotiationError(kind, callErr)
			}
			fail(callErr)
			return
		}
		log.Debug().Str("module", "app.negotiation").Str("pc", string(id)).Str("op", op).Msg("operation succeeded")
		done.Succeed(v)
	}()
}

func invoke[T any](conn *Connection, op string, call func(context.Context, *Connection) (T, error)) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: %v", domain.ErrEngineFault, op, p)
		}
	}()
	return call(conn.ctx, conn)
}
