package events

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestPublishRunsAllHandlersDespiteFailure(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventInventoryLow, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventInventoryLow, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketExpired, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), New(EventInventoryLow, 1, InventoryLowPayload{ItemID: 1}))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("Publish error = %v, want joined boom", err)
	}
	if strings.Join(calls, ",") != "first,second" {
		t.Errorf("calls = %v, want [first second]", calls)
	}
}

func TestPublishWithoutHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	if err := d.Publish(context.Background(), New(EventTicketExpired, 3, TicketExpiredPayload{})); err != nil {
		t.Fatalf("Publish = %v, want nil", err)
	}
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	d := NewInMemoryDispatcher()
	reached := false
	d.Subscribe(EventTicketExpired, func(context.Context, Event) error { panic("nil map") })
	d.Subscribe(EventTicketExpired, func(context.Context, Event) error {
		reached = true
		return nil
	})

	err := d.Publish(context.Background(), New(EventTicketExpired, 5, TicketExpiredPayload{TicketID: 5}))
	if !errors.Is(err, ErrHandlerPanic) {
		t.Fatalf("Publish = %v, want ErrHandlerPanic", err)
	}
	if !reached {
		t.Error("handler after the panicking one was skipped")
	}
}
