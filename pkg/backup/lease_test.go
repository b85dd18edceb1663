package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseSingleFlight(t *testing.T) {
	lease := NewLease(time.Minute)

	gen, ok := lease.TryAcquire()
	require.True(t, ok)

	_, ok = lease.TryAcquire()
	assert.False(t, ok, "a held lease must not be acquired twice")

	lease.Release(gen)

	gen2, ok := lease.TryAcquire()
	require.True(t, ok)
	assert.NotEqual(t, gen, gen2, "re-acquisition must advance the generation")
}

func TestLeaseStaleGenerationCannotInterfere(t *testing.T) {
	lease := NewLease(time.Minute)

	gen1, ok := lease.TryAcquire()
	require.True(t, ok)
	lease.Release(gen1)

	gen2, ok := lease.TryAcquire()
	require.True(t, ok)

	assert.False(t, lease.Extend(gen1), "a stale holder must not extend")
	lease.Release(gen1) // must be a no-op
	assert.False(t, lease.Expired(gen2))
	assert.True(t, lease.Expired(gen1))
}

func TestLeaseExpiresWithoutExtension(t *testing.T) {
	lease := NewLease(20 * time.Millisecond)

	gen, ok := lease.TryAcquire()
	require.True(t, ok)
	assert.False(t, lease.Expired(gen))

	time.Sleep(40 * time.Millisecond)
	assert.True(t, lease.Expired(gen))
}

func TestLeaseExtendKeepsItAlive(t *testing.T) {
	lease := NewLease(50 * time.Millisecond)

	gen, ok := lease.TryAcquire()
	require.True(t, ok)

	for i := 0; i < 4; i++ {
		time.Sleep(25 * time.Millisecond)
		require.True(t, lease.Extend(gen))
	}
	assert.False(t, lease.Expired(gen))
}

func TestBusDrainReturnsAllInOrder(t *testing.T) {
	bus := NewBus()

	assert.Nil(t, bus.Drain())

	bus.Publish("one")
	bus.Publish("two")
	bus.Publish("three")

	assert.Equal(t, []string{"one", "two", "three"}, bus.Drain())
	assert.Nil(t, bus.Drain(), "drain must empty the queue")

	bus.Publish("four")
	assert.Equal(t, []string{"four"}, bus.Drain())
}
