package token

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

// =============================================================================
// Generator
// =============================================================================

func TestNextIsMonotonic(t *testing.T) {
	g := NewGenerator(1)

	prev := int64(-1)
	for i := 0; i < 100; i++ {
		n := g.Next()
		if n <= prev {
			t.Fatalf("Next() = %d after %d, want strictly increasing", n, prev)
		}
		prev = n
	}
}

func TestCommandPairFormat(t *testing.T) {
	g := NewGenerator(7)

	p := g.CommandPair()
	if p.Begin != "<gnuplotting-7-0>" {
		t.Errorf("Begin = %q, want %q", p.Begin, "<gnuplotting-7-0>")
	}
	if p.Done != "<gnuplotting-7-0-done>" {
		t.Errorf("Done = %q, want %q", p.Done, "<gnuplotting-7-0-done>")
	}

	p2 := g.CommandPair()
	if p2.Begin != "<gnuplotting-7-1>" {
		t.Errorf("second Begin = %q, want %q", p2.Begin, "<gnuplotting-7-1>")
	}
}

func TestEventFormat(t *testing.T) {
	g := NewGenerator(3)

	tok := g.Event("Close")
	if tok != "<gnuplotting-3-Close-0>" {
		t.Errorf("Event = %q, want %q", tok, "<gnuplotting-3-Close-0>")
	}
	if !strings.Contains(tok, "Close") {
		t.Errorf("Event token %q does not embed the event name", tok)
	}
}

func TestCommandPairUniqueUnderConcurrency(t *testing.T) {
	const (
		goroutines = 16
		perG       = 200
	)

	g := NewGenerator(1)

	var (
		mu   sync.Mutex
		seen = make(map[string]bool, goroutines*perG)
		wg   sync.WaitGroup
	)

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			local := make([]Pair, 0, perG)
			for j := 0; j < perG; j++ {
				local = append(local, g.CommandPair())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, p := range local {
				if seen[p.Begin] {
					t.Errorf("duplicate begin token %q", p.Begin)
				}
				seen[p.Begin] = true
			}
		}()
	}
	wg.Wait()

	if len(seen) != goroutines*perG {
		t.Errorf("got %d unique tokens, want %d", len(seen), goroutines*perG)
	}
}

func TestInstanceIDsDistinct(t *testing.T) {
	a := NextInstanceID()
	b := NextInstanceID()
	if a == b {
		t.Fatalf("NextInstanceID returned %d twice", a)
	}

	ga := NewGenerator(a)
	gb := NewGenerator(b)
	pa := ga.CommandPair()
	pb := gb.CommandPair()
	if pa.Begin == pb.Begin {
		t.Errorf("tokens collide across instances: %q", pa.Begin)
	}
}

func TestGeneratorSeparateCounters(t *testing.T) {
	// Two generators do not share a counter; uniqueness comes from the
	// instance id embedded in the token.
	g1 := NewGenerator(1)
	g2 := NewGenerator(2)

	for i := 0; i < 5; i++ {
		want1 := fmt.Sprintf("<gnuplotting-1-%d>", i)
		want2 := fmt.Sprintf("<gnuplotting-2-%d>", i)
		if got := g1.CommandPair().Begin; got != want1 {
			t.Errorf("g1 pair %d = %q, want %q", i, got, want1)
		}
		if got := g2.CommandPair().Begin; got != want2 {
			t.Errorf("g2 pair %d = %q, want %q", i, got, want2)
		}
	}
}
