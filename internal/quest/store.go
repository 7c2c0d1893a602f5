// Package quest holds the progress of one questionnaire attempt. It turns
// quest channel events into Snapshot updates and user actions into channel
// commands. Every state change goes through Store.dispatch and the pure
// reduce function.
package quest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/traitquest/traitquest/internal/channel"
	"github.com/traitquest/traitquest/internal/domain"
	"go.uber.org/zap"
)

// Transport is the part of the quest channel the store drives.
type Transport interface {
	Connect(ctx context.Context, sessionID, token string) error
	On(event string, h channel.Handler) *channel.Subscription
	Send(event string, payload any) error
	Disconnect()
}

// Store owns the quest channel for the lifetime of an attempt.
type Store struct {
	transport     Transport
	logger        *zap.Logger
	submitTimeout time.Duration
	newSessionID  func() string

	mu    sync.Mutex
	state Snapshot
	timer *time.Timer

	// nmu serializes dispatches so subscribers see them in order.
	nmu       sync.Mutex
	subMu     sync.Mutex
	subs      map[int]func(Snapshot)
	nextSubID int

	lvMu      sync.Mutex
	onLevelUp func(domain.LevelUp)

	handlers []*channel.Subscription
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSubmitTimeout bounds the wait for a reply to each answer. Zero
// disables the deadline.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Store) { s.submitTimeout = d }
}

// WithSessionIDs replaces the session id generator.
func WithSessionIDs(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newSessionID = fn
		}
	}
}

// NewStore creates an idle store and installs its event handlers on t.
func NewStore(t Transport, opts ...Option) *Store {
	s := &Store{
		transport:     t,
		logger:        zap.NewNop(),
		submitTimeout: 90 * time.Second,
		newSessionID:  uuid.NewString,
		subs:          make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("quest")

	s.handlers = []*channel.Subscription{
		on(s, channel.EventFirstQuestion, func(u domain.QuestUpdate) action {
			return actQuestion{update: u, first: true}
		}),
		on(s, channel.EventNextQuestion, func(u domain.QuestUpdate) action {
			return actQuestion{update: u}
		}),
		on(s, channel.EventQuestComplete, func(p domain.QuestComplete) action {
			return actComplete{payload: p}
		}),
		on(s, channel.EventFinalResult, func(r domain.FinalResult) action {
			return actFinalResult{result: r}
		}),
		on(s, channel.EventError, func(e domain.QuestError) action {
			return actServerError{message: e.Message}
		}),
	}
	return s
}

// on registers a handler for event that decodes the payload into T and
// dispatches the action built from it.
func on[T any](s *Store, event string, toAction func(T) action) *channel.Subscription {
	return s.transport.On(event, func(data json.RawMessage) {
		var v T
		if len(data) > 0 {
			if err := json.Unmarshal(data, &v); err != nil {
				s.logger.Warn("dropping undecodable event", zap.String("event", event), zap.Error(err))
				return
			}
		}
		s.handleEvent(event, toAction(v))
	})
}

func (s *Store) handleEvent(event string, a action) {
	snap, err := s.dispatch(a)
	if errors.Is(err, errDropped) {
		s.logger.Debug("event ignored", zap.String("event", event), zap.Stringer("phase", snap.Phase))
		return
	}
	s.stopTimer()

	switch a := a.(type) {
	case actServerError:
		s.logger.Error("quest service error", zap.String("message", a.message), zap.String("session_id", snap.SessionID))
	case actFinalResult:
		if lu, ok := a.result.LevelUp(); ok {
			s.lvMu.Lock()
			fn := s.onLevelUp
			s.lvMu.Unlock()
			if fn != nil {
				fn(lu)
			}
		}
	}
}

// SetOnLevelUp installs fn to run when a final result carries level info.
func (s *Store) SetOnLevelUp(fn func(domain.LevelUp)) {
	s.lvMu.Lock()
	defer s.lvMu.Unlock()
	s.onLevelUp = fn
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe calls fn with a fresh snapshot after every state change. fn runs
// synchronously and must not block or call the store's mutating methods.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) dispatch(a action) (Snapshot, error) {
	// nmu is taken before mu so subscribers may call Snapshot.
	s.nmu.Lock()
	defer s.nmu.Unlock()

	s.mu.Lock()
	next, err := reduce(s.state, a)
	if err != nil {
		snap := s.state.clone()
		s.mu.Unlock()
		return snap, err
	}
	s.state = next
	s.mu.Unlock()

	snap := next.clone()
	s.logger.Debug("dispatch",
		zap.String("action", a.name()),
		zap.Stringer("phase", snap.Phase),
		zap.Bool("loading", snap.IsLoading))

	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap.clone())
	}
	return snap, nil
}

// InitQuest opens a new session for questID and asks the service to start
// it. On a failed handshake the store returns to Idle with LastError set.
func (s *Store) InitQuest(ctx context.Context, questID domain.QuestID, token string) error {
	id, err := domain.ParseQuestID(string(questID))
	if err != nil {
		return err
	}
	sessionID := s.newSessionID()
	if _, err := s.dispatch(actInit{questID: id, sessionID: sessionID}); err != nil {
		return err
	}

	log := s.logger.With(zap.String("session_id", sessionID), zap.String("quest_id", string(id)))
	if err := s.transport.Connect(ctx, sessionID, token); err != nil {
		log.Error("connecting quest channel", zap.Error(err))
		_, _ = s.dispatch(actConnectFailed{sessionID: sessionID, err: err})
		return fmt.Errorf("connecting quest channel: %w", err)
	}
	if _, err := s.dispatch(actConnected{sessionID: sessionID}); err != nil {
		log.Warn("session reset during connect")
		return err
	}

	if err := s.transport.Send(channel.CommandStartQuest, domain.StartQuest{QuestID: id}); err != nil {
		log.Error("starting quest", zap.Error(err))
		s.transport.Disconnect()
		_, _ = s.dispatch(actConnectFailed{sessionID: sessionID, err: err})
		return fmt.Errorf("starting quest: %w", err)
	}
	log.Info("quest started")
	return nil
}

// SubmitAnswer sends answer for the active question. A negative
// questionIndex uses the store's current index.
func (s *Store) SubmitAnswer(answer string, questionIndex int) error {
	snap, err := s.dispatch(actSubmit{index: questionIndex})
	if err != nil {
		return err
	}

	payload := domain.SubmitAnswer{Answer: answer, QuestionIndex: snap.QuestionIndex}
	if err := s.transport.Send(channel.CommandSubmitAnswer, payload); err != nil {
		_, _ = s.dispatch(actSendFailed{sessionID: snap.SessionID, err: err})
		return fmt.Errorf("submitting answer: %w", err)
	}
	s.startTimer(snap.SessionID, snap.Submissions)
	return nil
}

// RequestResult asks for the final result of a completed quest.
func (s *Store) RequestResult() error {
	snap, err := s.dispatch(actRequestResult{})
	if err != nil {
		return err
	}
	if err := s.transport.Send(channel.CommandRequestResult, struct{}{}); err != nil {
		_, _ = s.dispatch(actSendFailed{sessionID: snap.SessionID, err: err})
		return fmt.Errorf("requesting result: %w", err)
	}
	return nil
}

// ResetQuest closes the channel and returns to Idle. Replies to an
// abandoned submission are dropped.
func (s *Store) ResetQuest() {
	s.stopTimer()
	s.transport.Disconnect()
	_, _ = s.dispatch(actReset{})
}

// Close resets the store and removes its channel handlers.
func (s *Store) Close() {
	s.ResetQuest()
	for _, h := range s.handlers {
		h.Unsubscribe()
	}
}

func (s *Store) startTimer(sessionID string, submissions int) {
	if s.submitTimeout <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.submitTimeout, func() {
		if _, err := s.dispatch(actSubmitTimedOut{sessionID: sessionID, submissions: submissions}); err == nil {
			s.logger.Warn("submission timed out",
				zap.String("session_id", sessionID),
				zap.Duration("timeout", s.submitTimeout))
		}
	})
}

func (s *Store) stopTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
