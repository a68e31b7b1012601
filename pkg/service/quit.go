package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/iskaald/icecold/internal/logger"
	"github.com/iskaald/icecold/internal/telemetry"
	"github.com/iskaald/icecold/pkg/logging"
)

// QuitState is the coordinator's negotiation state.
type QuitState int32

const (
	QuitStateIdle QuitState = iota
	QuitStateNegotiating
	// QuitStateAborted is transient: the coordinator returns to
	// QuitStateIdle once the abort signal has been emitted.
	QuitStateAborted
	// QuitStateGranted is terminal.
	QuitStateGranted
)

func (s QuitState) String() string {
	switch s {
	case QuitStateIdle:
		return "idle"
	case QuitStateNegotiating:
		return "negotiating"
	case QuitStateAborted:
		return "aborted"
	case QuitStateGranted:
		return "granted"
	default:
		return fmt.Sprintf("quit_state(%d)", int32(s))
	}
}

// QuitOutcome is the result of a quit request.
type QuitOutcome int

const (
	QuitGranted QuitOutcome = iota
	QuitAborted
	// QuitIgnored means a negotiation was already in progress, or quit
	// was already granted.
	QuitIgnored
)

func (o QuitOutcome) String() string {
	switch o {
	case QuitGranted:
		return "granted"
	case QuitAborted:
		return "aborted"
	case QuitIgnored:
		return "ignored"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ErrQuitRefused is the reason recorded for a plain negative vote.
var ErrQuitRefused = errors.New("refused")

// Veto records one negative vote.
type Veto struct {
	Service string `json:"service"`
	Reason  string `json:"reason"`
	Err     error  `json:"-"`
}

// QuitResult describes a completed quit request.
type QuitResult struct {
	Outcome       QuitOutcome `json:"-"`
	NegotiationID string      `json:"negotiation_id,omitempty"`
	Consulted     int         `json:"consulted"`
	Vetoes        []Veto      `json:"vetoes,omitempty"`
	// ShutdownErr holds teardown failures after a granted quit.
	ShutdownErr error `json:"-"`
}

// Granted reports whether the quit was granted.
func (r QuitResult) Granted() bool {
	return r.Outcome == QuitGranted
}

// QuitCoordinator runs the two-phase quit protocol: notify every service,
// then ask every running QuitVoter concurrently. Teardown happens only if
// all of them agree; otherwise the coordinator re-arms.
type QuitCoordinator struct {
	state        atomic.Int32
	orchestrator *Orchestrator
	timeout      time.Duration
	log          *logging.Logger
	metrics      *Metrics

	onWillQuit    *Signal
	onQuitGranted *Signal
	onQuitAborted *Signal
}

// QuitOption configures a QuitCoordinator.
type QuitOption func(*QuitCoordinator)

// WithQuitTimeout bounds the vote phase. Voters that have not answered when
// it expires count as vetoes. Zero means no bound beyond the caller's ctx.
func WithQuitTimeout(d time.Duration) QuitOption {
	return func(q *QuitCoordinator) {
		q.timeout = d
	}
}

func WithQuitLogger(l *logging.Logger) QuitOption {
	return func(q *QuitCoordinator) {
		q.log = l
	}
}

func WithQuitMetrics(m *Metrics) QuitOption {
	return func(q *QuitCoordinator) {
		q.metrics = m
	}
}

func NewQuitCoordinator(o *Orchestrator, opts ...QuitOption) *QuitCoordinator {
	q := &QuitCoordinator{
		orchestrator:  o,
		onWillQuit:    NewSignal("will-quit"),
		onQuitGranted: NewSignal("quit-granted"),
		onQuitAborted: NewSignal("quit-aborted"),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.log == nil {
		q.log = o.log
	}
	return q
}

// State returns the current negotiation state.
func (q *QuitCoordinator) State() QuitState {
	return QuitState(q.state.Load())
}

// OnWillQuit fires at the start of every negotiation, before services are
// notified.
func (q *QuitCoordinator) OnWillQuit() *Signal { return q.onWillQuit }

// OnQuitGranted fires after teardown of a granted quit.
func (q *QuitCoordinator) OnQuitGranted() *Signal { return q.onQuitGranted }

// OnQuitAborted fires when a negotiation ends with at least one veto.
func (q *QuitCoordinator) OnQuitAborted() *Signal { return q.onQuitAborted }

// RequestQuit negotiates a quit. A request made while another is in
// progress, or after quit was granted, returns QuitIgnored without
// notifying anyone.
func (q *QuitCoordinator) RequestQuit(ctx context.Context) QuitResult {
	if !q.state.CompareAndSwap(int32(QuitStateIdle), int32(QuitStateNegotiating)) {
		q.metrics.ObserveNegotiation(QuitIgnored, 0, 0)
		logger.DebugCtx(ctx, "quit request ignored", logger.KeyState, q.State().String())
		return QuitResult{Outcome: QuitIgnored}
	}

	start := time.Now()
	id := uuid.NewString()
	ctx, span := telemetry.StartQuitSpan(ctx, id)
	defer span.End()

	lc := logger.NewLogContext(PhaseWillQuit).
		WithNegotiation(id).
		WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)

	q.notify(ctx)
	consulted, vetoes := q.vote(ctx)

	result := QuitResult{NegotiationID: id, Consulted: consulted, Vetoes: vetoes}
	span.SetAttributes(telemetry.QuitVoters(consulted), telemetry.QuitVetoes(len(vetoes)))

	if len(vetoes) == 0 {
		q.state.Store(int32(QuitStateGranted))
		result.Outcome = QuitGranted
		q.log.Infof("quit granted by %d voter(s)", consulted)

		result.ShutdownErr = q.orchestrator.Shutdown(context.WithoutCancel(ctx))
		if result.ShutdownErr != nil {
			telemetry.RecordError(ctx, result.ShutdownErr)
		}
		span.SetAttributes(telemetry.QuitOutcome(result.Outcome.String()))
		q.metrics.ObserveNegotiation(result.Outcome, 0, time.Since(start))
		logger.InfoCtx(ctx, "quit granted",
			logger.KeyOutcome, result.Outcome.String(),
			logger.KeyVoters, consulted,
			logger.KeyDurationMs, lc.DurationMs())

		q.onQuitGranted.Emit()
		return result
	}

	q.state.Store(int32(QuitStateAborted))
	result.Outcome = QuitAborted
	span.SetAttributes(telemetry.QuitOutcome(result.Outcome.String()))
	q.metrics.ObserveNegotiation(result.Outcome, len(vetoes), time.Since(start))

	names := make([]string, len(vetoes))
	for i, v := range vetoes {
		names[i] = v.Service
	}
	q.log.Warningf("quit aborted: vetoed by %v", names)
	logger.InfoCtx(ctx, "quit aborted",
		logger.KeyOutcome, result.Outcome.String(),
		logger.KeyVoters, consulted,
		logger.KeyVetoes, names,
		logger.KeyDurationMs, lc.DurationMs())

	q.onQuitAborted.Emit()
	q.state.Store(int32(QuitStateIdle))
	return result
}

// notify broadcasts will-quit and then calls OnWillQuit on every
// registered service in startup order.
func (q *QuitCoordinator) notify(ctx context.Context) {
	_, span := telemetry.StartSpan(ctx, telemetry.SpanQuitWillQuit)
	defer span.End()

	q.onWillQuit.Emit()

	reg := q.orchestrator.Registry()
	for _, d := range reg.AllOrdered(true) {
		err := safeCall(func() error {
			d.Instance.OnWillQuit()
			return nil
		})
		if err != nil {
			q.log.Exception(fmt.Errorf("will-quit notification to %s: %w", d.Name, err))
		}
	}
}

type ballot struct {
	yes bool
	err error
}

// vote asks every running QuitVoter concurrently and waits for all of them.
func (q *QuitCoordinator) vote(ctx context.Context) (int, []Veto) {
	var voters []*Descriptor
	reg := q.orchestrator.Registry()
	for _, d := range reg.AllOrdered(true) {
		if reg.StateOf(d) != StateRunning {
			continue
		}
		if _, ok := d.Instance.(QuitVoter); ok {
			voters = append(voters, d)
		}
	}
	if len(voters) == 0 {
		return 0, nil
	}

	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanQuitVote)
	defer span.End()

	ballots := make([]ballot, len(voters))
	var g errgroup.Group
	for i, d := range voters {
		voter := d.Instance.(QuitVoter)
		g.Go(func() error {
			ballots[i] = castBallot(ctx, voter)
			return nil
		})
	}
	_ = g.Wait()

	var vetoes []Veto
	for i, b := range ballots {
		if b.yes && b.err == nil {
			continue
		}
		err := b.err
		if err == nil {
			err = ErrQuitRefused
		}
		vetoes = append(vetoes, Veto{Service: voters[i].Name, Reason: err.Error(), Err: err})
		logger.DebugCtx(ctx, "quit vetoed", logger.KeyService, voters[i].Name, logger.KeyError, err.Error())
	}
	return len(voters), vetoes
}

// castBallot waits for the voter's answer or for ctx, whichever comes first.
func castBallot(ctx context.Context, voter QuitVoter) ballot {
	done := make(chan ballot, 1)
	go func() {
		var b ballot
		b.err = safeCall(func() error {
			yes, err := voter.CanQuit(ctx)
			b.yes = yes
			return err
		})
		done <- b
	}()

	select {
	case b := <-done:
		return b
	case <-ctx.Done():
		return ballot{err: fmt.Errorf("no answer: %w", ctx.Err())}
	}
}
