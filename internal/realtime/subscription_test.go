package realtime

import (
	"encoding/json"
	"testing"

	"shiftmarket/internal/domain"
	"shiftmarket/pkg/logger"
)

func TestRegistry_DispatchInSubscriptionOrder(t *testing.T) {
	reg := newRegistry()
	var order []string

	reg.subscribe(domain.MessageNotification, func(json.RawMessage) { order = append(order, "first") })
	reg.subscribe(domain.MessageNotification, func(json.RawMessage) { order = append(order, "second") })
	reg.subscribe(domain.MessageNotification, func(json.RawMessage) { order = append(order, "third") })

	reg.dispatch(domain.MessageNotification, nil, logger.NewNop())

	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Fatalf("dispatch order = %v, want [first second third]", order)
	}
}

func TestRegistry_UnsubscribedHandlerNeverFires(t *testing.T) {
	reg := newRegistry()
	fired := 0

	unsubscribe := reg.subscribe(domain.MessageShiftUpdate, func(json.RawMessage) { fired++ })
	unsubscribe()

	reg.dispatch(domain.MessageShiftUpdate, nil, logger.NewNop())
	if fired != 0 {
		t.Fatalf("handler fired %d times after unsubscribe", fired)
	}

	// Unsubscribing twice must be harmless.
	unsubscribe()
}

func TestRegistry_UnsubscribeDuringDispatchTakesEffectImmediately(t *testing.T) {
	reg := newRegistry()
	secondFired := 0

	var unsubscribeSecond func()
	reg.subscribe(domain.MessageNotification, func(json.RawMessage) {
		// The earlier handler removes the later one mid-dispatch; the later
		// one must not run for this same message.
		unsubscribeSecond()
	})
	unsubscribeSecond = reg.subscribe(domain.MessageNotification, func(json.RawMessage) { secondFired++ })

	reg.dispatch(domain.MessageNotification, nil, logger.NewNop())
	reg.dispatch(domain.MessageNotification, nil, logger.NewNop())

	if secondFired != 0 {
		t.Fatalf("unsubscribed handler fired %d times", secondFired)
	}
}

func TestRegistry_PanickingSubscriberIsIsolated(t *testing.T) {
	reg := newRegistry()
	delivered := false

	reg.subscribe(domain.MessagePaymentUpdate, func(json.RawMessage) { panic("bad handler") })
	reg.subscribe(domain.MessagePaymentUpdate, func(json.RawMessage) { delivered = true })

	reg.dispatch(domain.MessagePaymentUpdate, nil, logger.NewNop())

	if !delivered {
		t.Fatal("handler after a panicking subscriber did not receive the message")
	}
}

func TestRegistry_TypesAreIndependent(t *testing.T) {
	reg := newRegistry()
	var got []string

	reg.subscribe(domain.MessageShiftUpdate, func(json.RawMessage) { got = append(got, "shift") })
	reg.subscribe(domain.MessagePaymentUpdate, func(json.RawMessage) { got = append(got, "payment") })

	reg.dispatch(domain.MessageShiftUpdate, nil, logger.NewNop())

	if len(got) != 1 || got[0] != "shift" {
		t.Fatalf("dispatch crossed message types: %v", got)
	}
}
