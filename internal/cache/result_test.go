package cache

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/flightboard/flight"
)

func TestResultCache_StartsEmpty(t *testing.T) {
	c := New()

	batch, ok := c.Current()
	if ok {
		t.Error("Current() populated = true on new cache")
	}
	if batch.Len() != 0 {
		t.Errorf("Current() = %d flights, want 0", batch.Len())
	}
	if !c.UpdatedAt().IsZero() {
		t.Error("UpdatedAt() not zero on new cache")
	}
}

func TestResultCache_ZeroValueUsable(t *testing.T) {
	var c ResultCache
	if _, ok := c.Current(); ok {
		t.Error("zero-value cache reports populated")
	}
	c.Update(flight.Batch{})
	if _, ok := c.Current(); !ok {
		t.Error("zero-value cache not populated after Update")
	}
}

// TestResultCache_EmptyBatchIsPopulated separates "never populated" from
// "populated with zero flights".
func TestResultCache_EmptyBatchIsPopulated(t *testing.T) {
	c := New()
	c.Update(flight.Batch{CapturedAt: time.Now()})

	batch, ok := c.Current()
	if !ok {
		t.Fatal("Current() populated = false after empty Update")
	}
	if batch.Len() != 0 {
		t.Errorf("Current() = %d flights, want 0", batch.Len())
	}
}

func TestResultCache_UpdateReplaces(t *testing.T) {
	c := New()
	c.Update(flight.Batch{Flights: []flight.Flight{{ID: "a"}, {ID: "b"}}})
	c.Update(flight.Batch{Flights: []flight.Flight{{ID: "c"}}})

	batch, _ := c.Current()
	if batch.Len() != 1 || batch.Flights[0].ID != "c" {
		t.Errorf("Current() = %+v, want only c", batch.Flights)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestResultCache_CopiesOnUpdateAndRead(t *testing.T) {
	c := New()
	flights := []flight.Flight{{ID: "a"}}
	c.Update(flight.Batch{Flights: flights})

	flights[0].ID = "mutated"
	got, _ := c.Current()
	if got.Flights[0].ID != "a" {
		t.Errorf("cache affected by caller mutation: %q", got.Flights[0].ID)
	}

	got.Flights[0].ID = "mutated-again"
	again, _ := c.Current()
	if again.Flights[0].ID != "a" {
		t.Errorf("cache affected by reader mutation: %q", again.Flights[0].ID)
	}
}

func TestResultCache_CurrentStableWithoutUpdate(t *testing.T) {
	c := New()
	c.Update(flight.Batch{Flights: []flight.Flight{{ID: "a", Altitude: 1000}}, CapturedAt: time.Unix(5, 0)})

	before, _ := c.Current()
	after, _ := c.Current()
	if !reflect.DeepEqual(before, after) {
		t.Errorf("Current() changed without Update: %+v vs %+v", before, after)
	}
}

// TestResultCache_NoTornReads checks that concurrent readers only ever see
// whole batches.
func TestResultCache_NoTornReads(t *testing.T) {
	c := New()

	makeBatch := func(id string, n int) flight.Batch {
		fs := make([]flight.Flight, n)
		for i := range fs {
			fs[i] = flight.Flight{ID: id}
		}
		return flight.Batch{Flights: fs}
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				c.Update(makeBatch("even", 10))
			} else {
				c.Update(makeBatch("odd", 20))
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		batch, ok := c.Current()
		if !ok {
			continue
		}
		id := batch.Flights[0].ID
		want := 10
		if id == "odd" {
			want = 20
		}
		if batch.Len() != want {
			t.Fatalf("torn read: id %s with %d flights", id, batch.Len())
		}
		for _, f := range batch.Flights {
			if f.ID != id {
				t.Fatalf("torn read: mixed ids %s and %s", id, f.ID)
			}
		}
	}

	close(stop)
	wg.Wait()
}
