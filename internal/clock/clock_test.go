package clock_test

import (
	"math"
	"testing"
	"time"

	"codeberg.org/mutker/sensornode/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestElapsed(t *testing.T) {
	tests := []struct {
		name  string
		now   uint32
		since uint32
		want  uint32
	}{
		{"no time passed", 100, 100, 0},
		{"forward", 1500, 1000, 500},
		{"wrap from max to zero", 0, math.MaxUint32, 1},
		{"wrap across boundary", 99, math.MaxUint32 - 400, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clock.Elapsed(tt.now, tt.since))
		})
	}
}

func TestManualAdvanceWraps(t *testing.T) {
	c := clock.NewManual(math.MaxUint32 - 9)

	assert.Equal(t, uint32(math.MaxUint32-9), c.NowMs())
	assert.Equal(t, uint32(10), c.Advance(20))
	assert.Equal(t, uint32(10), c.NowMs())

	c.Set(42)
	assert.Equal(t, uint32(42), c.NowMs())
}

func TestHostClockStartsAtOffset(t *testing.T) {
	c := clock.NewHost(1000)

	first := c.NowMs()
	assert.GreaterOrEqual(t, first, uint32(1000))

	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, clock.Elapsed(c.NowMs(), first), uint32(5))
}
