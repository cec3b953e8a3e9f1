package seat_test

import (
	"testing"

	"deedles.dev/cascade/inhibit"
	"deedles.dev/cascade/pointer"
	"deedles.dev/cascade/seat"
	"deedles.dev/cascade/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	to inhibit.ClientID
	ev seat.Event
}

type recorder []delivery

func (r *recorder) Deliver(to inhibit.ClientID, ev seat.Event) {
	*r = append(*r, delivery{to: to, ev: ev})
}

func TestRouting(t *testing.T) {
	tests := []struct {
		name    string
		focus   inhibit.ClientID
		holder  inhibit.ClientID
		to      inhibit.ClientID
		deliver bool
	}{
		{name: "nobody"},
		{name: "focused", focus: 1, to: 1, deliver: true},
		{name: "focused holder", focus: 1, holder: 1, to: 1, deliver: true},
		{name: "other holder", focus: 1, holder: 2, to: 2, deliver: true},
		{name: "holder without focus", holder: 2, to: 2, deliver: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := inhibit.New()
			var r recorder
			s := seat.New(ctrl, &r)

			if tt.focus != 0 {
				s.Focus(tt.focus)
			}
			if tt.holder != 0 {
				require.NoError(t, ctrl.Acquire(tt.holder))
			}

			to, ok := s.Button(pointer.ButtonLeft, true)
			assert.Equal(t, tt.deliver, ok)
			assert.Equal(t, tt.to, to)

			to, ok = s.Key(30, true)
			assert.Equal(t, tt.deliver, ok)
			assert.Equal(t, tt.to, to)

			if !tt.deliver {
				assert.Empty(t, r)
				return
			}
			require.Len(t, r, 2)
			assert.Equal(t, tt.to, r[0].to)
			assert.Equal(t, seat.KindButton, r[0].ev.Kind)
			assert.Equal(t, seat.KindKey, r[1].ev.Kind)
			assert.Less(t, r[0].ev.Serial, r[1].ev.Serial)
		})
	}
}

func TestInhibitionLifecycle(t *testing.T) {
	ctrl := inhibit.New()
	var got []inhibit.ClientID
	s := seat.New(ctrl, seat.SinkFunc(func(to inhibit.ClientID, ev seat.Event) {
		got = append(got, to)
	}))

	s.Focus(1)
	s.Motion(wire.FixedInt(1), wire.FixedInt(2))

	require.NoError(t, ctrl.Acquire(2))
	s.Motion(wire.FixedInt(3), wire.FixedInt(4))

	ctrl.ReleaseIfHolder(2)
	s.Motion(wire.FixedInt(5), wire.FixedInt(6))

	assert.Equal(t, []inhibit.ClientID{1, 2, 1}, got)
}

func TestRoutingDuringRelease(t *testing.T) {
	ctrl := inhibit.New()
	s := seat.New(ctrl, seat.SinkFunc(func(inhibit.ClientID, seat.Event) {}))
	s.Focus(1)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				ctrl.Acquire(2)
				ctrl.ReleaseIfHolder(2)
			}
		}
	}()
	defer func() {
		close(stop)
		<-done
	}()

	// Someone always gets the event, whichever side of a release it
	// lands on.
	for i := 0; i < 10000; i++ {
		to, ok := s.Button(pointer.ButtonLeft, i%2 == 0)
		require.True(t, ok, "event %v dropped", i)
		require.Contains(t, []inhibit.ClientID{1, 2}, to)
	}
}

func TestPressedState(t *testing.T) {
	s := seat.New(inhibit.New(), seat.SinkFunc(func(inhibit.ClientID, seat.Event) {}))

	s.Button(pointer.ButtonRight, true)
	s.Key(42, true)
	assert.True(t, s.ButtonPressed(pointer.ButtonRight))
	assert.True(t, s.KeyPressed(42))

	s.Button(pointer.ButtonRight, false)
	s.Key(42, false)
	assert.False(t, s.ButtonPressed(pointer.ButtonRight))
	assert.False(t, s.KeyPressed(42))
}

func TestFocus(t *testing.T) {
	s := seat.New(inhibit.New(), seat.SinkFunc(func(inhibit.ClientID, seat.Event) {}))

	_, ok := s.Focused()
	assert.False(t, ok)

	s.Focus(3)
	id, ok := s.Focused()
	assert.True(t, ok)
	assert.Equal(t, inhibit.ClientID(3), id)

	s.Unfocus()
	_, ok = s.Recipient()
	assert.False(t, ok)
}

func TestEventString(t *testing.T) {
	ev := seat.Event{Kind: seat.KindButton, Button: pointer.ButtonMiddle, Pressed: true}
	assert.Equal(t, "button(middle, true)", ev.String())
}
