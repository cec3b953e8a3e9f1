package cq_test

import (
	"errors"
	"testing"
	"time"

	"deedles.dev/cascade/internal/cq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue(t *testing.T) {
	q := cq.New[int]()
	defer q.Stop()

	assert.Nil(t, q.TryGet())

	for i := 0; i < 3; i++ {
		require.True(t, q.Push(i))
	}
	q.Add() <- 3

	select {
	case got := <-q.Get():
		assert.Equal(t, []int{0, 1, 2, 3}, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for queue")
	}

	assert.Nil(t, q.TryGet())
}

func TestQueueStop(t *testing.T) {
	q := cq.New[int]()
	q.Stop()
	q.Stop()

	<-q.Done()
	assert.False(t, q.Push(1))
}

func TestFlush(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")

	var calls int
	err := cq.Flush([]func() error{
		func() error { calls++; return errA },
		func() error { calls++; return nil },
		func() error { calls++; return errB },
	})
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.NoError(t, cq.Flush(nil))
}
