package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"CandleCast/internal/domain/models"
	"CandleCast/internal/domain/repository"
	"CandleCast/pkg/logger"
)

// ErrStageBusy is returned when a run is requested while another one is
// still in progress on the same stage.
var ErrStageBusy = errors.New("stage is busy")

type StageState int32

const (
	StateIdle StageState = iota
	StateProcessing
	StateDelivered
	StateDeliveryFailed
)

func (s StageState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateDelivered:
		return "delivered"
	case StateDeliveryFailed:
		return "delivery_failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type DeliveryStatus string

const (
	StatusDelivered      DeliveryStatus = "delivered"
	StatusDeliveryFailed DeliveryStatus = "delivery_failed"
)

// DeliveryResult describes one forward. A failed snapshot write does not
// fail the delivery.
type DeliveryResult struct {
	Status       DeliveryStatus `json:"status"`
	RunID        string         `json:"run_id"`
	Address      string         `json:"address"`
	SnapshotPath string         `json:"snapshot_path"`
	SnapshotErr  error          `json:"-"`
	Err          error          `json:"-"`
}

func (r DeliveryResult) Delivered() bool { return r.Status == StatusDelivered }

// StageParams wires a Stage. Failures and FailureTopic are optional; when
// set, abandoned runs are announced there.
type StageParams struct {
	Name         string
	Peer         string
	MessageType  string
	Publisher    repository.Publisher
	Snapshots    repository.SnapshotStore
	Failures     repository.Publisher
	FailureTopic string
	Metrics      repository.Metrics
	Log          *logger.Logger
	// Replay turns a persisted snapshot back into a message for Resend.
	Replay func(b []byte) models.Message
}

// Stage runs the persist-then-send contract shared by every pipeline
// stage. At most one run is in flight at a time.
type Stage struct {
	name         string
	peer         string
	msgType      string
	publisher    repository.Publisher
	snapshots    repository.SnapshotStore
	failures     repository.Publisher
	failureTopic string
	metrics      repository.Metrics
	log          *logger.Logger
	replay       func([]byte) models.Message

	mu    sync.Mutex
	state StageState
	last  *DeliveryResult
}

func NewStage(p StageParams) *Stage {
	l := p.Log
	if l == nil {
		l = logger.Nop()
	}
	return &Stage{
		name:         p.Name,
		peer:         p.Peer,
		msgType:      p.MessageType,
		publisher:    p.Publisher,
		snapshots:    p.Snapshots,
		failures:     p.Failures,
		failureTopic: p.FailureTopic,
		metrics:      p.Metrics,
		log:          l.With(logger.Stage(p.Name)),
		replay:       p.Replay,
	}
}

func (s *Stage) Name() string { return s.name }

func (s *Stage) Peer() string { return s.peer }

func (s *Stage) State() StageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastResult returns the outcome of the most recent forward, if any.
func (s *Stage) LastResult() (DeliveryResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return DeliveryResult{}, false
	}
	return *s.last, true
}

// Snapshot returns the raw payload persisted by the last forward.
func (s *Stage) Snapshot(ctx context.Context) ([]byte, error) {
	return s.snapshots.Load(ctx)
}

func (s *Stage) SnapshotPath() string { return s.snapshots.Path() }

// Begin moves the stage to Processing. The run id is taken from ctx when an
// upstream stage set one, otherwise a new one is generated.
func (s *Stage) Begin(ctx context.Context) (*Run, error) {
	s.mu.Lock()
	if s.state == StateProcessing {
		s.mu.Unlock()
		return nil, ErrStageBusy
	}
	s.state = StateProcessing
	s.mu.Unlock()
	s.recordState(StateProcessing)

	id := models.RunIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	r := &Run{
		stage: s,
		id:    id,
		ctx:   models.WithRunID(ctx, id),
		start: time.Now(),
		log:   s.log.With(logger.RunID(id)),
	}
	r.log.Info("run started")
	return r, nil
}

// Resend re-delivers the persisted snapshot to the peer as a new forward
// under a fresh run.
func (s *Stage) Resend(ctx context.Context) (DeliveryResult, error) {
	run, err := s.Begin(ctx)
	if err != nil {
		return DeliveryResult{}, err
	}
	b, err := s.snapshots.Load(run.Context())
	if err != nil {
		run.release()
		return DeliveryResult{}, err
	}
	run.log.Info("resending snapshot", logger.Path(s.snapshots.Path()), logger.Int("bytes", len(b)))
	return run.Forward(s.replayMessage(b)), nil
}

func (s *Stage) replayMessage(b []byte) models.Message {
	if s.replay != nil {
		return s.replay(b)
	}
	return models.RawMessage{Type: s.msgType, Body: b}
}

func (s *Stage) finish(state StageState, res *DeliveryResult) {
	s.mu.Lock()
	if res != nil {
		s.last = res
	}
	s.state = StateIdle
	s.mu.Unlock()
	if state != StateIdle {
		s.recordState(state)
	}
	s.recordState(StateIdle)
}

func (s *Stage) recordState(st StageState) {
	if s.metrics != nil {
		s.metrics.RecordState(s.name, int(st))
	}
}

func (s *Stage) recordRun(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordRun(s.name, outcome)
	}
}

func (s *Stage) recordError(kind string) {
	if s.metrics != nil {
		s.metrics.RecordError(kind)
	}
}

// Run is one pass through a stage. It ends with exactly one Forward or
// Abandon; later calls are ignored.
type Run struct {
	stage *Stage
	id    string
	ctx   context.Context
	start time.Time
	log   *logger.Logger
	once  sync.Once
}

func (r *Run) ID() string { return r.id }

// Context carries the run id for downstream calls.
func (r *Run) Context() context.Context { return r.ctx }

func (r *Run) Logger() *logger.Logger { return r.log }

// Forward persists msg and then sends it to the peer. The send is never
// retried here.
func (r *Run) Forward(msg models.Message) DeliveryResult {
	s := r.stage
	res := DeliveryResult{
		RunID:        r.id,
		Address:      s.peer,
		SnapshotPath: s.snapshots.Path(),
	}
	done := false
	r.once.Do(func() { done = true })
	if !done {
		res.Status = StatusDeliveryFailed
		res.Err = errors.New("run already finished")
		return res
	}

	if err := s.snapshots.Save(r.ctx, msg); err != nil {
		res.SnapshotErr = err
		s.recordError("snapshot")
		r.log.Warn("snapshot not persisted", logger.Path(res.SnapshotPath), logger.Error(err))
	} else {
		r.log.Info("snapshot persisted", logger.Path(res.SnapshotPath))
	}

	start := time.Now()
	err := s.publisher.Send(r.ctx, s.peer, r.id, msg)
	if s.metrics != nil {
		s.metrics.RecordLatency(s.name+"_send", time.Since(start).Seconds())
	}

	state := StateDelivered
	if err != nil {
		res.Status = StatusDeliveryFailed
		res.Err = err
		state = StateDeliveryFailed
		s.recordError("send")
		s.recordRun(string(StatusDeliveryFailed))
		r.log.Error("delivery failed",
			logger.Address(s.peer),
			logger.String("type", msg.MessageType()),
			logger.Duration("duration_ms", time.Since(r.start)),
			logger.Error(err),
		)
	} else {
		res.Status = StatusDelivered
		s.recordRun(string(StatusDelivered))
		r.log.Info("delivered",
			logger.Address(s.peer),
			logger.String("type", msg.MessageType()),
			logger.Duration("duration_ms", time.Since(r.start)),
		)
	}
	s.finish(state, &res)
	return res
}

// Abandon ends the run without forwarding and announces the failure on the
// failure topic when one is configured.
func (r *Run) Abandon(reason error) {
	done := false
	r.once.Do(func() { done = true })
	if !done {
		return
	}
	s := r.stage
	s.recordRun("abandoned")
	s.recordError(errorKind(reason))
	r.log.Error("run abandoned", logger.Duration("duration_ms", time.Since(r.start)), logger.Error(reason))

	if s.failures != nil && s.failureTopic != "" {
		// The run context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		notice := models.StageFailure{Stage: s.name, RunID: r.id, Reason: reason.Error(), At: time.Now().UTC()}
		if err := s.failures.Send(ctx, s.failureTopic, r.id, notice); err != nil {
			r.log.Warn("failure notice not sent", logger.Address(s.failureTopic), logger.Error(err))
		}
		cancel()
	}
	s.finish(StateIdle, nil)
}

func (r *Run) release() {
	r.once.Do(func() {
		r.stage.finish(StateIdle, nil)
	})
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, models.ErrUpstreamTimeout):
		return "upstream_timeout"
	case errors.Is(err, models.ErrEmptyNarrative):
		return "empty_narrative"
	case errors.Is(err, models.ErrCandleOrder):
		return "candle_order"
	case errors.Is(err, models.ErrUnknownInterval):
		return "unknown_interval"
	default:
		return "stage"
	}
}
