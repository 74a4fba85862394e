package hooks

import "testing"

func TestFanoutDeliversToAllSubscribers(t *testing.T) {
	var f Fanout
	var got []Event
	f.Subscribe(func(e Event) { got = append(got, e) })
	f.Subscribe(func(e Event) { got = append(got, e) })

	f.Notify(Event{Threshold: 4, Reclaimed: 9})

	if len(got) != 2 {
		t.Fatalf("delivered to %d subscribers, want 2", len(got))
	}
	for _, e := range got {
		if e.Threshold != 4 || e.Reclaimed != 9 {
			t.Fatalf("event = %+v, want {4 9}", e)
		}
	}
}

func TestFanoutSurvivesPanickingSubscriber(t *testing.T) {
	var f Fanout
	ran := false
	f.Subscribe(func(Event) { panic("boom") })
	f.Subscribe(func(Event) { ran = true })

	f.Notify(Event{})

	if !ran {
		t.Fatal("second subscriber should still run after the first panics")
	}
}

func TestZeroValueFanoutIsUsable(t *testing.T) {
	var f Fanout
	f.Notify(Event{}) // must not panic with no subscribers
}
