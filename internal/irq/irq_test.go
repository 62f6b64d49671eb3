package irq

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinePendCoalesces(t *testing.T) {
	t.Parallel()

	l := NewLine()
	assert.False(t, l.Take())

	l.Pend()
	l.Pend()
	l.Pend()

	assert.True(t, l.Take())
	assert.False(t, l.Take(), "repeated pends must coalesce into one wake")
}

func TestSignalsRaiseLatches(t *testing.T) {
	t.Parallel()

	line := NewLine()
	s := NewSignals(line)

	s.Raise(3)
	assert.True(t, line.Take(), "raise must pend the wake line")
	assert.True(t, s.Pending().Has(3))

	// still set: nothing consumed it
	assert.False(t, line.Take())
	assert.True(t, s.Pending().Has(3))
}

func TestSignalsTakeOnlyMasked(t *testing.T) {
	t.Parallel()

	s := NewSignals(nil)
	s.Raise(1)
	s.Raise(4)

	got := s.Take(SignalID(4).Mask() | SignalID(7).Mask())
	assert.Equal(t, SignalID(4).Mask(), got)
	assert.True(t, s.Pending().Has(1), "unmasked flags stay latched")
	assert.False(t, s.Pending().Has(4))

	assert.Equal(t, SignalSet(0), s.Take(SignalID(4).Mask()), "taking a clear flag is a no-op")
	assert.Equal(t, SignalID(1).Mask(), s.Pending())
}

func TestSignalsConcurrentRaiseNotLost(t *testing.T) {
	t.Parallel()

	s := NewSignals(nil)
	var wg sync.WaitGroup
	wg.Add(MaxSignals)
	for i := 0; i < MaxSignals; i++ {
		go func(id SignalID) {
			defer wg.Done()
			s.Raise(id)
		}(SignalID(i))
	}
	wg.Wait()

	require.Equal(t, MaxSignals, s.Pending().Len())
	require.Equal(t, MaxSignals, s.Take(^SignalSet(0)).Len())
	require.Equal(t, SignalSet(0), s.Pending())
}

func TestSignalIDOutOfRange(t *testing.T) {
	t.Parallel()

	assert.True(t, SignalID(MaxSignals-1).Valid())
	assert.False(t, SignalID(MaxSignals).Valid())
	assert.Equal(t, SignalSet(0), SignalID(MaxSignals).Mask(), "must not alias signal 0")
	assert.False(t, SignalID(0).Mask().Has(MaxSignals))

	line := NewLine()
	s := NewSignals(line)
	s.Raise(MaxSignals)
	assert.Equal(t, SignalSet(0), s.Pending())
	assert.False(t, line.Take())
}

func TestSignalSetString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "{}", SignalSet(0).String())
	assert.Equal(t, "{0,5,31}", (SignalID(0).Mask() | SignalID(5).Mask() | SignalID(31).Mask()).String())
}

func TestFreeSerializes(t *testing.T) {
	t.Parallel()

	var (
		wg sync.WaitGroup
		n  int
	)
	wg.Add(8)
	for i := 0; i < 8; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				Free(func() { n++ })
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 4000, n)
}
