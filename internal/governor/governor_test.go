package governor

import (
	"fmt"
	"sync"
	"testing"
)

func TestShouldAttemptBoundary(t *testing.T) {
	g := New(3)

	// First three attempts allowed, fourth refused.
	for i := 0; i < 3; i++ {
		if !g.ShouldAttempt("src/Main.java") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if g.ShouldAttempt("src/Main.java") {
		t.Error("attempt 4 should be refused with max=3")
	}

	// Other files are independent.
	if !g.ShouldAttempt("src/Other.java") {
		t.Error("fresh file should be allowed")
	}
}

func TestResetOnSuccess(t *testing.T) {
	g := New(2)

	g.ShouldAttempt("a.go")
	g.ShouldAttempt("a.go")
	if g.ShouldAttempt("a.go") {
		t.Fatal("budget should be exhausted")
	}

	g.ResetOnSuccess("a.go")

	if g.Attempts("a.go") != 0 {
		t.Errorf("attempts after reset = %d, want 0", g.Attempts("a.go"))
	}
	if !g.ShouldAttempt("a.go") {
		t.Error("attempt after reset should be allowed")
	}
}

func TestDefaultMax(t *testing.T) {
	g := New(0)
	if g.Max() != DefaultMaxAttempts {
		t.Errorf("Max() = %d, want %d", g.Max(), DefaultMaxAttempts)
	}
}

func TestExhausted(t *testing.T) {
	g := New(1)
	g.ShouldAttempt("a.go")
	g.ShouldAttempt("b.go")
	g.ResetOnSuccess("b.go")

	exhausted := g.Exhausted()
	if len(exhausted) != 1 || exhausted[0] != "a.go" {
		t.Errorf("Exhausted() = %v, want [a.go]", exhausted)
	}
}

// Concurrent callers must never over-count: exactly max attempts are
// granted per file regardless of interleaving.
func TestConcurrentAttempts(t *testing.T) {
	const max = 5
	const goroutines = 50
	g := New(max)

	var wg sync.WaitGroup
	granted := make(chan struct{}, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.ShouldAttempt("hot.go") {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for range granted {
		count++
	}
	if count != max {
		t.Errorf("granted %d attempts, want exactly %d", count, max)
	}
}

// Attempt counts never exceed observers' expectations across many files.
func TestManyFilesIndependent(t *testing.T) {
	g := New(2)
	for i := 0; i < 20; i++ {
		file := fmt.Sprintf("f%d.go", i)
		if !g.ShouldAttempt(file) || !g.ShouldAttempt(file) {
			t.Fatalf("file %s should get two attempts", file)
		}
		if g.ShouldAttempt(file) {
			t.Fatalf("file %s should be refused a third attempt", file)
		}
	}
}
