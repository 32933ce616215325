package engine

import (
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted after committed operations.

type EventCollateralDeposited struct {
	ID      string    `json:"id"`
	Account string    `json:"account"`
	Token   string    `json:"token"`
	Amount  *big.Int  `json:"amount"`
	Time    time.Time `json:"time"`
}

type EventCollateralRedeemed struct {
	ID     string    `json:"id"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Token  string    `json:"token"`
	Amount *big.Int  `json:"amount"`
	Time   time.Time `json:"time"`
}

type EventDebtMinted struct {
	ID      string    `json:"id"`
	Account string    `json:"account"`
	Amount  *big.Int  `json:"amount"`
	Time    time.Time `json:"time"`
}

type EventDebtBurned struct {
	ID         string    `json:"id"`
	OnBehalfOf string    `json:"on_behalf_of"`
	Payer      string    `json:"payer"`
	Amount     *big.Int  `json:"amount"`
	Time       time.Time `json:"time"`
}

type EventLiquidation struct {
	ID               string    `json:"id"`
	Liquidator       string    `json:"liquidator"`
	Target           string    `json:"target"`
	Token            string    `json:"token"`
	DebtCovered      *big.Int  `json:"debt_covered"`
	CollateralSeized *big.Int  `json:"collateral_seized"`
	Time             time.Time `json:"time"`
}

// EventEmitter fans committed engine events out to subscribers. Emission
// never blocks: a full subscriber channel drops the event for that
// subscriber only.
type EventEmitter struct {
	mu          sync.RWMutex
	subscribers []chan interface{}
}

// NewEventID mints a unique identifier for an event.
func NewEventID() string {
	return uuid.NewString()
}

// NewEventEmitter creates an emitter with no subscribers.
func NewEventEmitter() *EventEmitter {
	return &EventEmitter{}
}

// Subscribe returns a channel receiving every future event. Callers must
// Unsubscribe when done or the channel is retained for the emitter's
// lifetime.
func (e *EventEmitter) Subscribe() <-chan interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan interface{}, 128)
	e.subscribers = append(e.subscribers, ch)
	return ch
}

// Unsubscribe releases a subscription and closes its channel. Unknown
// channels are a no-op. Emit holds the same lock, so it never sends on a
// channel after Unsubscribe closes it.
func (e *EventEmitter) Unsubscribe(ch <-chan interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, sub := range e.subscribers {
		if sub == ch {
			last := len(e.subscribers) - 1
			e.subscribers[i] = e.subscribers[last]
			e.subscribers[last] = nil
			e.subscribers = e.subscribers[:last]
			close(sub)
			return
		}
	}
}

// Emit delivers an event to all subscribers.
func (e *EventEmitter) Emit(event interface{}) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, ch := range e.subscribers {
		select {
		case ch <- event:
		default:
			// subscriber too slow, drop
		}
	}
}
