package progress

// levelThresholds[i] is the minimum experience for level i+1.
var levelThresholds = []int{0, 100, 300, 600, 1000, 1500, 2100, 2800, 3600, 4500}

// XPPerLevelBeyondTable is the fixed cost of each level past the last
// tabulated one.
const XPPerLevelBeyondTable = 1000

// LevelInfo describes where an experience total sits on the level curve.
type LevelInfo struct {
	Level                 int
	LevelStartXP          int
	NextLevelXP           int
	ExperienceToNextLevel int
}

// ResolveLevel maps cumulative experience to a level. Total and monotonic
// over all inputs; negative experience is treated as zero.
func ResolveLevel(xp int) LevelInfo {
	if xp < 0 {
		xp = 0
	}

	last := levelThresholds[len(levelThresholds)-1]
	if xp >= last {
		extra := (xp - last) / XPPerLevelBeyondTable
		level := len(levelThresholds) + extra
		start := last + extra*XPPerLevelBeyondTable
		next := start + XPPerLevelBeyondTable
		return LevelInfo{
			Level:                 level,
			LevelStartXP:          start,
			NextLevelXP:           next,
			ExperienceToNextLevel: next - xp,
		}
	}

	level := 1
	for i := len(levelThresholds) - 1; i >= 0; i-- {
		if xp >= levelThresholds[i] {
			level = i + 1
			break
		}
	}

	next := levelThresholds[level]
	return LevelInfo{
		Level:                 level,
		LevelStartXP:          levelThresholds[level-1],
		NextLevelXP:           next,
		ExperienceToNextLevel: next - xp,
	}
}

// MinXPForLevel returns the experience at which a level starts.
func MinXPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	if level <= len(levelThresholds) {
		return levelThresholds[level-1]
	}
	return levelThresholds[len(levelThresholds)-1] + (level-len(levelThresholds))*XPPerLevelBeyondTable
}
