package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_user_progress",
			UpSQL:   migration001Up,
		},
		{
			Version: 2,
			Name:    "create_badges",
			UpSQL:   migration002Up,
		},
		{
			Version: 3,
			Name:    "create_weekly_challenges",
			UpSQL:   migration003Up,
		},
		{
			Version: 4,
			Name:    "create_user_activity_log",
			UpSQL:   migration004Up,
		},
		{
			Version: 5,
			Name:    "create_leaderboard_entries",
			UpSQL:   migration005Up,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: USER PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS user_progress (
    user_id TEXT PRIMARY KEY,
    total_meals_saved INTEGER NOT NULL DEFAULT 0,
    total_co2_saved DOUBLE PRECISION NOT NULL DEFAULT 0,
    total_money_saved NUMERIC(14,2) NOT NULL DEFAULT 0,
    total_water_saved DOUBLE PRECISION NOT NULL DEFAULT 0,
    experience_points INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    experience_to_next_level INTEGER NOT NULL DEFAULT 100,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_activity_at TIMESTAMP WITH TIME ZONE,
    version BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_counters CHECK (
        total_meals_saved >= 0 AND total_co2_saved >= 0 AND
        total_money_saved >= 0 AND total_water_saved >= 0 AND
        experience_points >= 0
    ),
    CONSTRAINT valid_level CHECK (level >= 1),
    CONSTRAINT valid_streaks CHECK (current_streak >= 0 AND longest_streak >= current_streak)
);

CREATE INDEX IF NOT EXISTS idx_user_progress_meals ON user_progress(total_meals_saved DESC, user_id);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: BADGE CATALOG AND AWARDS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS badges (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    requirement_type TEXT NOT NULL,
    requirement_value DOUBLE PRECISION NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,

    CONSTRAINT valid_requirement_type CHECK (
        requirement_type IN ('meals_saved', 'co2_saved', 'money_saved', 'streak', 'level')
    )
);

CREATE TABLE IF NOT EXISTS user_badges (
    user_id TEXT NOT NULL,
    badge_id TEXT NOT NULL REFERENCES badges(id),
    earned_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_user_badges UNIQUE (user_id, badge_id)
);

CREATE INDEX IF NOT EXISTS idx_user_badges_user ON user_badges(user_id, earned_at);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: WEEKLY CHALLENGES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS weekly_challenges (
    id UUID PRIMARY KEY,
    user_id TEXT NOT NULL,
    challenge_type TEXT NOT NULL,
    week_start_date DATE NOT NULL,
    goal_value DOUBLE PRECISION NOT NULL,
    current_value DOUBLE PRECISION NOT NULL DEFAULT 0,
    is_completed BOOLEAN NOT NULL DEFAULT FALSE,
    completed_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_weekly_challenges UNIQUE (user_id, challenge_type, week_start_date),
    CONSTRAINT valid_current_value CHECK (current_value >= 0),
    CONSTRAINT completed_has_time CHECK (NOT is_completed OR completed_at IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS idx_weekly_challenges_week
    ON weekly_challenges(challenge_type, week_start_date, current_value DESC);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: ACTIVITY LOG
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
CREATE TABLE IF NOT EXISTS user_activity_log (
    id UUID PRIMARY KEY,
    event_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    activity_type TEXT NOT NULL,
    activity_data JSONB NOT NULL DEFAULT '{}'::jsonb,
    points_earned INTEGER NOT NULL DEFAULT 0,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT uq_user_activity_log_event UNIQUE (event_id)
);

CREATE INDEX IF NOT EXISTS idx_user_activity_log_user ON user_activity_log(user_id, recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_user_activity_log_recorded ON user_activity_log(recorded_at);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 005: MATERIALIZED LEADERBOARDS
// ══════════════════════════════════════════════════════════════════════════════

const migration005Up = `
CREATE TABLE IF NOT EXISTS leaderboard_entries (
    period_type TEXT NOT NULL,
    period_start DATE NOT NULL,
    user_id TEXT NOT NULL,
    rank INTEGER NOT NULL,
    meals_saved INTEGER NOT NULL,
    compiled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (period_type, period_start, user_id),
    CONSTRAINT valid_period_type CHECK (period_type IN ('weekly', 'monthly', 'all_time')),
    CONSTRAINT valid_rank CHECK (rank >= 1)
);

CREATE INDEX IF NOT EXISTS idx_leaderboard_entries_rank
    ON leaderboard_entries(period_type, period_start, rank);
`
