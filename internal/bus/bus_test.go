package bus

import "testing"

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New[string]()

	var got1, got2 []string
	b.Subscribe(func(v string) { got1 = append(got1, v) })
	b.Subscribe(func(v string) { got2 = append(got2, v) })

	b.Publish("a")
	b.Publish("b")

	if len(got1) != 2 || len(got2) != 2 {
		t.Fatalf("got1=%v got2=%v", got1, got2)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New[int]()

	var got []int
	unsubscribe := b.Subscribe(func(v int) { got = append(got, v) })

	b.Publish(1)
	unsubscribe()
	b.Publish(2)

	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got = %v, want [1]", got)
	}
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	b := New[int]()

	b.Publish(1)

	var got []int
	b.Subscribe(func(v int) { got = append(got, v) })

	if len(got) != 0 {
		t.Fatalf("late subscriber saw a backlog: %v", got)
	}
}

func TestPublishWithNoSubscribers(t *testing.T) {
	b := New[int]()
	b.Publish(42) // must not panic
}
