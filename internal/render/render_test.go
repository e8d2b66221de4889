package render

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ridealong/internal/camera"
)

func stateAt(x float64) State {
	s := ResetState()
	s.Camera.Position.X = x
	return s
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_, ok := r.Last()
	assert.False(t, ok)

	r.Push(stateAt(1))
	r.Push(stateAt(2))

	last, ok := r.Last()
	require.True(t, ok)
	assert.Equal(t, 2.0, last.Camera.Position.X)
	assert.Equal(t, 2, r.Count())
	assert.Len(t, r.History(), 2)
}

func TestResetState(t *testing.T) {
	s := ResetState()
	assert.Nil(t, s.ClippingPlane)
	assert.False(t, s.Grid.Enabled)
	assert.Equal(t, camera.Pinhole, s.Camera.Mode)
	assert.Equal(t, 1.0, s.Camera.Rotation.Real)
}

func TestMulti(t *testing.T) {
	var a, b Recorder
	Multi(&a, &b, Discard).Push(stateAt(3))
	assert.Equal(t, 1, a.Count())
	assert.Equal(t, 1, b.Count())
}

func TestFanout_LatestWinsForSlowSubscriber(t *testing.T) {
	f := NewFanout()
	sub := f.Subscribe("viewer")
	defer sub.Close()

	for i := 1; i <= 5; i++ {
		f.Push(stateAt(float64(i)))
	}

	got := <-sub.C()
	assert.Equal(t, 5.0, got.Camera.Position.X)
	select {
	case s := <-sub.C():
		t.Fatalf("unexpected extra state %v", s)
	default:
	}

	stats := f.Stats()
	assert.Equal(t, uint64(5), stats.Pushes)
	assert.Equal(t, uint64(4), stats.Replaced)
	assert.Equal(t, 1, stats.Subscribers)
}

func TestFanout_SubscribeReceivesLatest(t *testing.T) {
	f := NewFanout()
	_, ok := f.Latest()
	assert.False(t, ok)

	f.Push(stateAt(7))
	sub := f.Subscribe("late")
	got := <-sub.C()
	assert.Equal(t, 7.0, got.Camera.Position.X)

	sub.Close()
	<-sub.Done()
	assert.Equal(t, 0, f.Stats().Subscribers)
	sub.Close()
}

func TestFanout_ResubscribeClosesPrevious(t *testing.T) {
	f := NewFanout()
	first := f.Subscribe("same")
	second := f.Subscribe("same")

	<-first.Done()
	first.Close()
	assert.Equal(t, 1, f.Stats().Subscribers, "closing a replaced subscription keeps the new one")
	second.Close()
}

func TestFanout_ConcurrentPush(t *testing.T) {
	f := NewFanout()
	sub := f.Subscribe("c")
	defer sub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f.Push(stateAt(float64(i)))
		}(i)
	}
	wg.Wait()

	<-sub.C()
	assert.Equal(t, uint64(8), f.Stats().Pushes)
}
