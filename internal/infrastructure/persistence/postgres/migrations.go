package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: LEDGER SCHEMA
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Members and their lifetime badge counters
CREATE TABLE IF NOT EXISTS members (
    member_id     TEXT PRIMARY KEY,
    nickname      TEXT NOT NULL DEFAULT '',
    badge_weekly  INTEGER NOT NULL DEFAULT 0 CHECK (badge_weekly >= 0),
    badge_monthly INTEGER NOT NULL DEFAULT 0 CHECK (badge_monthly >= 0),
    badge_bikini  INTEGER NOT NULL DEFAULT 0 CHECK (badge_bikini >= 0),
    created_at    TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- Goal history; at most one active row per (member, kind)
CREATE TABLE IF NOT EXISTS goals (
    id             BIGSERIAL PRIMARY KEY,
    member_id      TEXT NOT NULL REFERENCES members(member_id) ON DELETE CASCADE,
    kind           TEXT NOT NULL CHECK (kind IN ('weight', 'freq_exercise', 'freq_diet')),
    start_date     DATE NOT NULL,
    end_date       DATE,
    start_weight   DOUBLE PRECISION,
    target_weight  DOUBLE PRECISION,
    current_weight DOUBLE PRECISION,
    freq_per_week  INTEGER CHECK (freq_per_week BETWEEN 1 AND 7),
    active         BOOLEAN NOT NULL DEFAULT TRUE,
    last_modified  TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS ix_goals_member_kind ON goals(member_id, kind);
CREATE UNIQUE INDEX IF NOT EXISTS ux_goals_one_active ON goals(member_id, kind) WHERE active;

-- Daily counters
CREATE TABLE IF NOT EXISTS exercise_log (
    member_id TEXT NOT NULL,
    date      DATE NOT NULL,
    count     INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
    PRIMARY KEY (member_id, date)
);

CREATE TABLE IF NOT EXISTS diet_log (
    member_id TEXT NOT NULL,
    date      DATE NOT NULL,
    count     INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
    PRIMARY KEY (member_id, date)
);

-- Reconciliation results
CREATE TABLE IF NOT EXISTS weekly_status (
    member_id         TEXT NOT NULL REFERENCES members(member_id) ON DELETE CASCADE,
    week_start        DATE NOT NULL,
    achieved_exercise BOOLEAN NOT NULL,
    achieved_diet     BOOLEAN NOT NULL,
    achieved_weight   BOOLEAN NOT NULL,
    weight_updated    BOOLEAN NOT NULL,
    recorded_at       TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    PRIMARY KEY (member_id, week_start)
);

CREATE TABLE IF NOT EXISTS monthly_trophy (
    member_id  TEXT NOT NULL REFERENCES members(member_id) ON DELETE CASCADE,
    year_month TEXT NOT NULL,
    won        BOOLEAN NOT NULL,
    awarded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    PRIMARY KEY (member_id, year_month)
);

-- Scheduler markers
CREATE TABLE IF NOT EXISTS job_runs (
    job    TEXT PRIMARY KEY,
    period TEXT NOT NULL,
    ran_at TIMESTAMP WITH TIME ZONE NOT NULL
);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: RANKING INDEXES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE INDEX IF NOT EXISTS ix_exercise_log_date ON exercise_log(date);
CREATE INDEX IF NOT EXISTS ix_diet_log_date ON diet_log(date);
CREATE INDEX IF NOT EXISTS ix_members_badge_total
    ON members((badge_weekly + badge_monthly + badge_bikini) DESC, member_id);
`

// GetMigrations returns all migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "ledger_schema", UpSQL: migration001Up},
		{Version: 2, Name: "ranking_indexes", UpSQL: migration002Up},
	}
}
