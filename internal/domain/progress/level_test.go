package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveLevel_Boundaries(t *testing.T) {
	cases := []struct {
		xp        int
		level     int
		toNextLvl int
	}{
		{0, 1, 100},
		{99, 1, 1},
		{100, 2, 200},
		{299, 2, 1},
		{300, 3, 300},
		{4499, 9, 1},
		{4500, 10, 1000},
		{5499, 10, 1},
		{5500, 11, 1000},
		{12345, 17, 155},
	}

	for _, tc := range cases {
		info := ResolveLevel(tc.xp)
		assert.Equal(t, tc.level, info.Level, "xp=%d", tc.xp)
		assert.Equal(t, tc.toNextLvl, info.ExperienceToNextLevel, "xp=%d", tc.xp)
	}
}

func TestResolveLevel_NegativeClampsToZero(t *testing.T) {
	assert.Equal(t, ResolveLevel(0), ResolveLevel(-50))
}

func TestResolveLevel_Monotonic(t *testing.T) {
	prev := 1
	for xp := 0; xp <= 20000; xp += 7 {
		lvl := ResolveLevel(xp).Level
		assert.GreaterOrEqual(t, lvl, prev, "xp=%d", xp)
		prev = lvl
	}
}

func TestMinXPForLevel_RoundTrips(t *testing.T) {
	for level := 1; level <= 25; level++ {
		assert.Equal(t, level, ResolveLevel(MinXPForLevel(level)).Level)
		if level > 1 {
			assert.Equal(t, level-1, ResolveLevel(MinXPForLevel(level)-1).Level)
		}
	}
}
