package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterUnsubscribeReclaims(t *testing.T) {
	t.Parallel()
	em := NewEventEmitter()

	subs := make([]<-chan interface{}, 0, 100)
	for i := 0; i < 100; i++ {
		subs = append(subs, em.Subscribe())
	}
	require.Len(t, em.subscribers, 100)

	for _, ch := range subs {
		em.Unsubscribe(ch)
	}
	assert.Empty(t, em.subscribers)

	// released channels are closed so blocked readers drain out
	_, ok := <-subs[0]
	assert.False(t, ok)

	// emitting with no subscribers must not send anywhere
	em.Emit(EventDebtMinted{ID: NewEventID()})
}

func TestEmitterUnsubscribeKeepsOthers(t *testing.T) {
	t.Parallel()
	em := NewEventEmitter()

	dropped := em.Subscribe()
	kept := em.Subscribe()
	em.Unsubscribe(dropped)

	em.Emit(EventDebtMinted{ID: NewEventID(), Account: "alice"})

	select {
	case ev := <-kept:
		minted, ok := ev.(EventDebtMinted)
		require.True(t, ok)
		assert.Equal(t, "alice", minted.Account)
	default:
		t.Fatal("surviving subscriber missed the event")
	}
}

func TestEmitterUnsubscribeUnknownChannel(t *testing.T) {
	t.Parallel()
	em := NewEventEmitter()

	sub := em.Subscribe()
	stranger := make(chan interface{})
	em.Unsubscribe(stranger)
	require.Len(t, em.subscribers, 1)

	// double unsubscribe is a no-op after the first
	em.Unsubscribe(sub)
	em.Unsubscribe(sub)
	assert.Empty(t, em.subscribers)
}
