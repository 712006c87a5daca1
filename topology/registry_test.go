package topology

import (
	"sync"
	"testing"

	"github.com/jonwraymond/resilientmq/resilience"
)

type fakeDecl struct {
	name string
}

func (d *fakeDecl) Invoke(ch string) (string, error) { return d.name, nil }

func TestRegistry_AddAndReadExchanges(t *testing.T) {
	r := NewRegistry[string]()
	r.AddExchange("orders", &fakeDecl{name: "orders"})
	r.AddExchange("events", &fakeDecl{name: "events"})

	got := r.Exchanges()
	if len(got) != 2 {
		t.Fatalf("Exchanges() = %v, want 2 entries", got)
	}
	if got[0].Name != "orders" || got[1].Name != "events" {
		t.Errorf("Exchanges() = %+v, want insertion order preserved", got)
	}
}

func TestRegistry_AddAndReadQueues(t *testing.T) {
	r := NewRegistry[string]()
	decl := &fakeQueueDeclTopology{name: "orders"}
	r.AddQueue(decl)

	got := r.Queues()
	if len(got) != 1 || got[0].CurrentName() != "orders" {
		t.Fatalf("Queues() = %v, want one entry named orders", got)
	}
}

func TestRegistry_BindingArgumentsSurviveTheSnapshot(t *testing.T) {
	r := NewRegistry[string]()
	args := map[string]any{"x-match": "all", "type": "pdf"}
	r.AddExchangeBinding(resilience.Binding{Source: "a", Destination: "b", Arguments: args})

	var got map[string]any
	r.ExchangeBindings()(func(b resilience.Binding) bool {
		got = b.Arguments
		return true
	})

	if got["x-match"] != "all" || got["type"] != "pdf" {
		t.Errorf("Arguments = %v, want %v", got, args)
	}
}

func TestRegistry_BindingsSnapshotIsIndependentOfLaterMutation(t *testing.T) {
	r := NewRegistry[string]()
	r.AddExchangeBinding(resilience.Binding{Source: "a", Destination: "b"})

	it := r.ExchangeBindings()
	r.AddExchangeBinding(resilience.Binding{Source: "c", Destination: "d"})

	var seen []string
	it(func(b resilience.Binding) bool {
		seen = append(seen, b.Source)
		return true
	})

	if len(seen) != 1 || seen[0] != "a" {
		t.Errorf("iterator saw %v, want only the binding present at snapshot time", seen)
	}
	if got := r.ExchangeBindings(); !bindingSourcesEqual(got, []string{"a", "c"}) {
		t.Error("a fresh iterator should observe both bindings")
	}
}

func TestRegistry_BindingIteratorStopsEarly(t *testing.T) {
	r := NewRegistry[string]()
	r.AddQueueBinding(resilience.Binding{Source: "a"})
	r.AddQueueBinding(resilience.Binding{Source: "b"})
	r.AddQueueBinding(resilience.Binding{Source: "c"})

	var visited []string
	r.QueueBindings()(func(b resilience.Binding) bool {
		visited = append(visited, b.Source)
		return b.Source != "b"
	})

	if len(visited) != 2 {
		t.Errorf("visited %v, want iteration to stop after the second binding", visited)
	}
}

func TestRegistry_ConcurrentAddAndIterateIsRaceFree(t *testing.T) {
	r := NewRegistry[string]()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.AddExchangeBinding(resilience.Binding{Source: "s"})
		}(i)
		go func() {
			defer wg.Done()
			r.ExchangeBindings()(func(resilience.Binding) bool { return true })
		}()
	}
	wg.Wait()

	if len(r.Exchanges()) != 0 {
		t.Error("no exchanges were added, want empty")
	}
}

type fakeQueueDeclTopology struct {
	name string
}

func (d *fakeQueueDeclTopology) Invoke(ch string) (string, error) { return d.name, nil }
func (d *fakeQueueDeclTopology) CurrentName() string              { return d.name }
func (d *fakeQueueDeclTopology) SetName(name string)              { d.name = name }

func bindingSourcesEqual(it resilience.BindingIterator, want []string) bool {
	var got []string
	it(func(b resilience.Binding) bool {
		got = append(got, b.Source)
		return true
	})
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
