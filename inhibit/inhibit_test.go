package inhibit_test

import (
	"math/rand"
	"testing"

	"deedles.dev/cascade/inhibit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	clientA inhibit.ClientID = iota + 1
	clientB
)

type recorder struct {
	states []inhibit.State
}

func (r *recorder) record(s inhibit.State) {
	r.states = append(r.states, s)
}

func newRecorded() (*inhibit.Controller, *recorder) {
	c := inhibit.New()
	var r recorder
	c.OnChange(r.record)
	return c, &r
}

func TestInitialState(t *testing.T) {
	c := inhibit.New()
	assert.False(t, c.IsInhibited())

	holder, ok := c.Holder()
	assert.False(t, ok)
	assert.Zero(t, holder)
	assert.Equal(t, inhibit.State{}, c.State())
}

func TestAcquire(t *testing.T) {
	t.Run("free", func(t *testing.T) {
		c, r := newRecorded()
		require.NoError(t, c.Acquire(clientA))

		holder, ok := c.Holder()
		assert.True(t, ok)
		assert.Equal(t, clientA, holder)
		assert.Equal(t, []inhibit.State{{Holder: clientA, Inhibited: true}}, r.states)
	})

	t.Run("idempotent", func(t *testing.T) {
		c, r := newRecorded()
		require.NoError(t, c.Acquire(clientA))
		require.NoError(t, c.Acquire(clientA))

		holder, _ := c.Holder()
		assert.Equal(t, clientA, holder)
		assert.Len(t, r.states, 1, "no-op acquire must not notify")
	})

	t.Run("conflict", func(t *testing.T) {
		c, r := newRecorded()
		require.NoError(t, c.Acquire(clientA))

		err := c.Acquire(clientB)
		require.ErrorIs(t, err, inhibit.ErrAlreadyInhibited)

		var ierr *inhibit.Error
		require.ErrorAs(t, err, &ierr)
		assert.Equal(t, clientB, ierr.Client)
		assert.Equal(t, clientA, ierr.Holder)

		holder, _ := c.Holder()
		assert.Equal(t, clientA, holder)
		assert.Len(t, r.states, 1)
	})
}

func TestRelease(t *testing.T) {
	t.Run("holder", func(t *testing.T) {
		c, r := newRecorded()
		require.NoError(t, c.Acquire(clientA))
		require.NoError(t, c.Release(clientA))

		assert.False(t, c.IsInhibited())
		assert.Equal(t, []inhibit.State{{Holder: clientA, Inhibited: true}, {}}, r.states)
	})

	t.Run("not holder", func(t *testing.T) {
		c, r := newRecorded()
		require.NoError(t, c.Acquire(clientA))

		err := c.Release(clientB)
		assert.ErrorIs(t, err, inhibit.ErrNotHolder)
		assert.True(t, c.IsInhibited())

		holder, _ := c.Holder()
		assert.Equal(t, clientA, holder)
		assert.Len(t, r.states, 1)
	})

	t.Run("free", func(t *testing.T) {
		c, r := newRecorded()
		err := c.Release(clientA)
		assert.ErrorIs(t, err, inhibit.ErrNotHolder)
		assert.Contains(t, err.Error(), "not inhibited")
		assert.Empty(t, r.states)
	})
}

func TestReleaseIfHolder(t *testing.T) {
	tests := []struct {
		name      string
		acquire   []inhibit.ClientID
		release   inhibit.ClientID
		inhibited bool
		notified  int
	}{
		{name: "free", release: clientA, notified: 0},
		{name: "holder", acquire: []inhibit.ClientID{clientA}, release: clientA, notified: 2},
		{name: "other", acquire: []inhibit.ClientID{clientA}, release: clientB, inhibited: true, notified: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, r := newRecorded()
			for _, id := range tt.acquire {
				require.NoError(t, c.Acquire(id))
			}

			c.ReleaseIfHolder(tt.release)
			assert.Equal(t, tt.inhibited, c.IsInhibited())
			assert.Len(t, r.states, tt.notified)
		})
	}
}

func TestAllows(t *testing.T) {
	c := inhibit.New()
	assert.True(t, c.Allows(clientA))
	assert.True(t, c.Allows(clientB))

	require.NoError(t, c.Acquire(clientA))
	assert.True(t, c.Allows(clientA))
	assert.False(t, c.Allows(clientB))
}

func TestOnChangeRemove(t *testing.T) {
	c := inhibit.New()

	var first, second int
	removeFirst := c.OnChange(func(inhibit.State) { first++ })
	c.OnChange(func(inhibit.State) { second++ })

	require.NoError(t, c.Acquire(clientA))
	removeFirst()
	removeFirst()
	require.NoError(t, c.Release(clientA))

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestMutualExclusion(t *testing.T) {
	c, r := newRecorded()
	rng := rand.New(rand.NewSource(1))

	var holder inhibit.ClientID
	for i := 0; i < 1000; i++ {
		id := inhibit.ClientID(rng.Intn(4) + 1)
		before := len(r.states)

		switch rng.Intn(3) {
		case 0:
			err := c.Acquire(id)
			switch {
			case holder == 0:
				require.NoError(t, err)
				holder = id
				assert.Len(t, r.states, before+1)
			case holder == id:
				require.NoError(t, err)
				assert.Len(t, r.states, before)
			default:
				require.ErrorIs(t, err, inhibit.ErrAlreadyInhibited)
				assert.Len(t, r.states, before)
			}
		case 1:
			err := c.Release(id)
			if holder == id {
				require.NoError(t, err)
				holder = 0
				assert.Len(t, r.states, before+1)
			} else {
				require.ErrorIs(t, err, inhibit.ErrNotHolder)
				assert.Len(t, r.states, before)
			}
		case 2:
			c.ReleaseIfHolder(id)
			if holder == id {
				holder = 0
				assert.Len(t, r.states, before+1)
			} else {
				assert.Len(t, r.states, before)
			}
		}

		got, ok := c.Holder()
		assert.Equal(t, holder != 0, ok)
		assert.Equal(t, holder, got)
		assert.Equal(t, ok, c.IsInhibited())
	}
}
