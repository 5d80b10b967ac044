package undo

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNoActiveUndo reports that nothing is pending in the undo slot. This is a
// benign condition, distinct from a replay execution failure.
var ErrNoActiveUndo = errors.New("no active undo action")

// DefaultTTL is how many page navigations an undo action survives before it
// decays.
const DefaultTTL = 3

// Replayer executes the closed set of reversible operations. The composer
// satisfies this interface; tests substitute their own.
type Replayer interface {
	ReplaceIngredient(ctx context.Context, recipeID, toReplaceID, replaceWithID uint) error
}

// Action is one stored reversible operation. Implementations form a closed
// set of tagged variants so replay stays type-checked; adding a new
// reversible operation means adding a variant here and a method to Replayer.
type Action interface {
	// Describe names the action for logs and error messages.
	Describe() string
	// Replay executes the action against the replayer.
	Replay(ctx context.Context, r Replayer) error
}

// ReplaceIngredientAction swaps one ingredient for another in a recipe. Its
// inverse is the same operation with the two ingredient IDs exchanged, so no
// separate inverse table is needed.
type ReplaceIngredientAction struct {
	RecipeID      uint
	ToReplaceID   uint
	ReplaceWithID uint
}

// Inverse returns the action that undoes this one.
func (a ReplaceIngredientAction) Inverse() ReplaceIngredientAction {
	return ReplaceIngredientAction{
		RecipeID:      a.RecipeID,
		ToReplaceID:   a.ReplaceWithID,
		ReplaceWithID: a.ToReplaceID,
	}
}

// Describe implements Action.
func (a ReplaceIngredientAction) Describe() string {
	return fmt.Sprintf("replace ingredient %d with %d in recipe %d", a.ToReplaceID, a.ReplaceWithID, a.RecipeID)
}

// Replay implements Action.
func (a ReplaceIngredientAction) Replay(ctx context.Context, r Replayer) error {
	return r.ReplaceIngredient(ctx, a.RecipeID, a.ToReplaceID, a.ReplaceWithID)
}

type slot struct {
	action Action
	ttl    int
}

// Ledger holds at most one pending reversible action per session key. Slots
// decay after DefaultTTL navigations and are never shared across sessions.
type Ledger struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// NewLedger builds an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{slots: map[string]*slot{}}
}

// Set records action as the session's pending undo, overwriting any previous
// slot. There is no stacking; the newest action wins.
func (l *Ledger) Set(sessionKey string, action Action) {
	if sessionKey == "" || action == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.slots[sessionKey] = &slot{action: action, ttl: DefaultTTL}
}

// Tick registers one page navigation for the session, aging the pending
// action. Calling it with no pending action is a no-op.
func (l *Ledger) Tick(sessionKey string) {
	if sessionKey == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	pending, ok := l.slots[sessionKey]
	if !ok {
		return
	}
	pending.ttl--
	if pending.ttl <= 0 {
		delete(l.slots, sessionKey)
	}
}

// Pending reports the session's stored action without consuming it.
func (l *Ledger) Pending(sessionKey string) (Action, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pending, ok := l.slots[sessionKey]
	if !ok {
		return nil, false
	}
	return pending.action, true
}

// ConsumeAndReplay replays the session's pending action. The slot is cleared
// before replay runs, so the action executes at most once even when replay
// fails. With no pending action it returns ErrNoActiveUndo.
func (l *Ledger) ConsumeAndReplay(ctx context.Context, sessionKey string, r Replayer) error {
	l.mu.Lock()
	pending, ok := l.slots[sessionKey]
	if ok {
		delete(l.slots, sessionKey)
	}
	l.mu.Unlock()

	if !ok {
		return ErrNoActiveUndo
	}
	if err := pending.action.Replay(ctx, r); err != nil {
		return fmt.Errorf("replay %s: %w", pending.action.Describe(), err)
	}
	return nil
}

// Forget drops the session's slot, typically on logout.
func (l *Ledger) Forget(sessionKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.slots, sessionKey)
}
