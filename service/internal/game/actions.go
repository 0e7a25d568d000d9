// internal/game/actions.go
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/groupsolitaire/engine"
)

// ActionType names a client request.
type ActionType string

const (
	ActionDraw                ActionType = "draw"
	ActionReshuffle           ActionType = "reshuffle"
	ActionMove                ActionType = "move"
	ActionMoveStack           ActionType = "move_stack"
	ActionMoveStackFoundation ActionType = "move_stack_foundation"
	ActionHint                ActionType = "hint"
	ActionSync                ActionType = "sync"
)

// Errors returned by HandleAction for requests that never reach the rules.
var (
	ErrUnknownAction = errors.New("unknown action")
	ErrBadPayload    = errors.New("malformed action payload")
	ErrUnknownCard   = errors.New("card not in this deck")
)

// Action is a request received from a client.
type Action struct {
	Type    ActionType  `json:"type"`
	CardIDs []string    `json:"cardIds,omitempty"`
	Source  *PileTarget `json:"source,omitempty"`
	Target  *PileTarget `json:"target,omitempty"`
}

// HandleAction applies a client action. Rule violations are not errors: they
// come back as an invalid Validation and are broadcast as EventInvalidMove.
// Accepted moves are persisted when a store is configured.
func (s *Session) HandleAction(ctx context.Context, a Action) (engine.Validation, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	switch a.Type {
	case ActionSync:
		s.SendSyncState()
		return engine.Valid, nil
	case ActionHint:
		s.sendHint()
		return engine.Valid, nil
	}

	s.tick()
	before := s.engine.State().Moves

	v, err := s.apply(a)
	if err != nil {
		s.log.WithError(err).WithField("action", a.Type).Debug("game: rejected malformed action")
		return engine.Valid, err
	}
	if !v.OK() {
		s.log.WithFields(logrus.Fields{"action": a.Type, "reason": v.Reason}).Debug("game: invalid move")
		s.fireEvent(GameEvent{Type: EventInvalidMove, Reason: v.Reason})
		return v, nil
	}
	if s.engine.State().Moves != before {
		s.persist(ctx)
	}
	return v, nil
}

// apply dispatches a to the engine.
// Assumes lock is held by caller.
func (s *Session) apply(a Action) (engine.Validation, error) {
	switch a.Type {
	case ActionDraw:
		s.engine.DrawFromStock()
		return engine.Valid, nil
	case ActionReshuffle:
		s.engine.Reshuffle()
		return engine.Valid, nil
	case ActionMove, ActionMoveStack, ActionMoveStackFoundation:
	default:
		return engine.Valid, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}

	cards, err := s.resolveCards(a.CardIDs)
	if err != nil {
		return engine.Valid, err
	}
	source, err := a.Source.toRef()
	if err != nil {
		return engine.Valid, err
	}
	target, err := a.Target.toRef()
	if err != nil {
		return engine.Valid, err
	}

	switch a.Type {
	case ActionMove:
		if len(cards) != 1 {
			return engine.Valid, fmt.Errorf("%w: move takes exactly one card", ErrBadPayload)
		}
		return s.engine.Move(cards[0], source, target), nil
	case ActionMoveStack:
		return s.engine.MoveStack(cards, source, target), nil
	default:
		if !target.IsFoundation() {
			return engine.Invalid(engine.ReasonBadTarget), nil
		}
		return s.engine.MoveStackToFoundation(cards, source, target.Index), nil
	}
}
