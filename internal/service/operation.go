package service

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

type OperationState string

const (
	StateStarted         OperationState = "STARTED"
	StateCostComputed    OperationState = "COST_COMPUTED"
	StateBalanceChecked  OperationState = "BALANCE_CHECKED"
	StateBalanceRejected OperationState = "BALANCE_REJECTED"
	StateEffectInvoked   OperationState = "EFFECT_INVOKED"
	StateEffectFailed    OperationState = "EFFECT_FAILED"
	StatePersisted       OperationState = "PERSISTED"
	StatePersistQueued   OperationState = "PERSIST_QUEUED"
	StateRolledBack      OperationState = "ROLLED_BACK"
)

var operationTransitions = map[OperationState][]OperationState{
	StateStarted:         {StateCostComputed},
	StateCostComputed:    {StateBalanceChecked, StateBalanceRejected},
	StateBalanceChecked:  {StateEffectInvoked, StateEffectFailed, StateRolledBack},
	StateBalanceRejected: {StateRolledBack},
	StateEffectInvoked:   {StatePersisted, StatePersistQueued, StateRolledBack},
	StateEffectFailed:    {StateRolledBack},
}

func (s OperationState) Terminal() bool {
	return s == StatePersisted || s == StatePersistQueued || s == StateRolledBack
}

func canTransition(from, to OperationState) bool {
	for _, next := range operationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// operation tracks one metered attempt. Its ID doubles as the idempotency
// key for persistence and refunds.
type operation struct {
	ID      string
	Kind    string
	UserID  int64
	state   OperationState
	history []OperationState
	log     *zap.Logger
}

func newOperation(kind string, userID int64, log *zap.Logger) *operation {
	id := kind + "_" + gonanoid.Must(21)
	return &operation{
		ID:      id,
		Kind:    kind,
		UserID:  userID,
		state:   StateStarted,
		history: []OperationState{StateStarted},
		log:     log.With(zap.String("operation_id", id), zap.String("operation", kind), zap.Int64("user_id", userID)),
	}
}

func (o *operation) State() OperationState {
	return o.state
}

// to moves the operation forward. An illegal transition is a programming
// error and panics in development builds.
func (o *operation) to(next OperationState) {
	if !canTransition(o.state, next) {
		o.log.DPanic("illegal operation transition",
			zap.String("from", string(o.state)),
			zap.String("to", string(next)),
		)
		return
	}
	o.state = next
	o.history = append(o.history, next)
	o.log.Debug("operation state", zap.String("state", string(next)))
}

// reject walks a rejected balance check to its terminal state.
func (o *operation) reject() {
	o.to(StateBalanceRejected)
	o.to(StateRolledBack)
}

// abandon marks a failed external effect as rolled back.
func (o *operation) abandon() {
	o.to(StateEffectFailed)
	o.to(StateRolledBack)
}
