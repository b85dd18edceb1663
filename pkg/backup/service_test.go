package backup

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newServiceFixture wires a service over an endlessly cycling library
// so the crawl loop only stops when its lease lapses
func newServiceFixture(t *testing.T, ttl, poll, wait time.Duration) *Service {
	t.Helper()

	fx := newEngineFixture(t, twoAlbumLibrary())
	fx.engine.cooldown = 5 * time.Millisecond

	lease := NewLease(ttl)
	fx.engine.lease = lease
	return NewService(fx.engine, lease, fx.bus, poll, wait, nil)
}

func collect(ch <-chan string) []string {
	var lines []string
	for line := range ch {
		lines = append(lines, line)
	}
	return lines
}

func TestRunStreamsProgressAndStops(t *testing.T) {
	svc := newServiceFixture(t, 200*time.Millisecond, 10*time.Millisecond, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	ch := svc.Run(ctx)

	var lines []string
	deadline := time.After(2 * time.Second)
	for len(lines) < 5 {
		select {
		case line, ok := <-ch:
			if !ok {
				t.Fatalf("stream closed early, got %v", lines)
			}
			lines = append(lines, line)
		case <-deadline:
			t.Fatalf("timed out waiting for progress, got %v", lines)
		}
	}

	assert.Equal(t, "backup started", lines[0])
	cancel()

	// drain until close; the loop must wind down on its own
	for range ch {
	}
}

func TestSecondCallerWaitsThenAcquires(t *testing.T) {
	svc := newServiceFixture(t, 150*time.Millisecond, 25*time.Millisecond, 20*time.Millisecond)

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer func() {
		if cancel1 != nil {
			cancel1()
		}
	}()
	first := svc.Run(ctx1)

	// first caller is running
	line, ok := <-first
	require.True(t, ok)
	require.Equal(t, "backup started", line)
	go func() {
		for range first {
		}
	}()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel2()
	second := svc.Run(ctx2)

	// the second caller only sees heartbeats while the lease is held
	sawWaiting := false
	var started bool
	timeout := time.After(3 * time.Second)

	var secondLines []string
loop:
	for {
		select {
		case line, ok := <-second:
			if !ok {
				break loop
			}
			secondLines = append(secondLines, line)
			if strings.HasPrefix(line, "waiting") {
				sawWaiting = true
				if cancel1 != nil {
					// let the first caller's lease lapse
					cancel1()
					cancel1 = nil
				}
				continue
			}
			if line == "backup started" {
				started = true
				cancel2()
			}
		case <-timeout:
			t.Fatalf("second caller never progressed, got %v", secondLines)
		}
	}

	assert.True(t, sawWaiting, "second caller must see waiting heartbeats first")
	assert.True(t, started, "second caller must acquire after the first releases")

	for _, l := range secondLines {
		if l == "backup started" {
			break
		}
		assert.Truef(t, strings.HasPrefix(l, "waiting"),
			"before acquiring, second caller saw non-waiting line %q", l)
	}
}
