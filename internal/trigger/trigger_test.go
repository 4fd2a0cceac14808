package trigger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMessage struct {
	confidence float64
	timestamp  time.Time
}

// fakeCounter replays stored classifications the way the message store
// counts them.
type fakeCounter struct {
	messages []recordedMessage
	err      error
}

func (f *fakeCounter) CountHighConfidenceSince(_ context.Context, _ int64, since time.Time, threshold float64) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	count := 0
	for _, msg := range f.messages {
		if msg.confidence >= threshold && !msg.timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

func newTestEngine(counter *fakeCounter) *Engine {
	return NewEngine(counter, 0.7, 10*time.Minute, 3, time.Minute)
}

func technicalBurst(confidences []float64, age time.Duration) []recordedMessage {
	var out []recordedMessage
	for _, c := range confidences {
		out = append(out, recordedMessage{confidence: c, timestamp: time.Now().Add(-age)})
	}
	return out
}

func TestShouldGenerate(t *testing.T) {
	tests := []struct {
		name        string
		confidences []float64
		age         time.Duration
		want        bool
	}{
		{"three high confidence fire", []float64{0.8, 0.85, 0.9}, time.Minute, true},
		{"low confidence never fires", []float64{0.5, 0.6, 0.65}, time.Minute, false},
		{"two high confidence not enough", []float64{0.9, 0.95}, time.Minute, false},
		{"threshold is inclusive", []float64{0.7, 0.7, 0.7}, time.Minute, true},
		{"stale messages outside window", []float64{0.8, 0.85, 0.9}, 15 * time.Minute, false},
		{"mixed confidences", []float64{0.9, 0.4, 0.8, 0.3, 0.75}, time.Minute, true},
		{"empty conversation", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := &fakeCounter{messages: technicalBurst(tt.confidences, tt.age)}
			engine := newTestEngine(counter)

			fire, err := engine.ShouldGenerate(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fire)
		})
	}
}

func TestShouldGenerate_Idempotent(t *testing.T) {
	counter := &fakeCounter{messages: technicalBurst([]float64{0.8, 0.85, 0.9}, time.Minute)}
	engine := newTestEngine(counter)

	for i := 0; i < 5; i++ {
		fire, err := engine.ShouldGenerate(context.Background(), 1)
		require.NoError(t, err)
		assert.True(t, fire, "evaluation %d", i)
	}
}

func TestShouldGenerate_StoreError(t *testing.T) {
	engine := newTestEngine(&fakeCounter{err: errors.New("connection refused")})

	fire, err := engine.ShouldGenerate(context.Background(), 1)
	assert.Error(t, err)
	assert.False(t, fire)
}

func TestTryAcquire_Debounce(t *testing.T) {
	engine := newTestEngine(&fakeCounter{})

	now := time.Now()
	engine.now = func() time.Time { return now }

	require.True(t, engine.TryAcquire(1))
	assert.False(t, engine.TryAcquire(1), "second acquire inside debounce must fail")

	// a different conversation is independent
	assert.True(t, engine.TryAcquire(2))

	now = now.Add(30 * time.Second)
	assert.False(t, engine.TryAcquire(1))

	now = now.Add(31 * time.Second)
	assert.True(t, engine.TryAcquire(1), "acquire after debounce interval must succeed")
}

func TestRelease_ClearsGate(t *testing.T) {
	engine := newTestEngine(&fakeCounter{})

	require.True(t, engine.TryAcquire(1))
	engine.Release(1)
	assert.True(t, engine.TryAcquire(1))
}
