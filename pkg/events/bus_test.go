package events

import (
	"testing"

	"github.com/slowverb/slowverb/api"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(api.EventTrackLoaded)
	bus.Publish(api.Event{Type: api.EventTrackLoaded, Payload: "x"})

	select {
	case event := <-ch:
		if event.Payload != "x" {
			t.Errorf("payload = %v, want x", event.Payload)
		}
	default:
		t.Fatal("no event delivered")
	}
}

func TestSubscribeFiltersTypes(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(api.EventTrackEnded)
	bus.Publish(api.Event{Type: api.EventTrackLoaded})

	select {
	case event := <-ch:
		t.Fatalf("received event of wrong type: %v", event.Type)
	default:
	}
}

func TestSubscribeAllReceivesEverything(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.SubscribeAll()
	types := []api.EventType{
		api.EventTrackLoaded,
		api.EventStateChange,
		api.EventExportProgress,
		api.EventError,
	}
	for _, typ := range types {
		bus.Publish(api.Event{Type: typ})
	}

	for _, want := range types {
		select {
		case event := <-ch:
			if event.Type != want {
				t.Errorf("got type %v, want %v", event.Type, want)
			}
		default:
			t.Fatalf("missing event %v", want)
		}
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	bus.Subscribe(api.EventPositionUpdate)
	// A slow consumer must not stall the publisher.
	for i := 0; i < 100; i++ {
		bus.Publish(api.Event{Type: api.EventPositionUpdate, Payload: i})
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	defer bus.Close()

	ch := bus.Subscribe(api.EventTrackLoaded)
	bus.Unsubscribe(ch)
	bus.Publish(api.Event{Type: api.EventTrackLoaded})

	select {
	case <-ch:
		t.Fatal("received event after unsubscribe")
	default:
	}
}
