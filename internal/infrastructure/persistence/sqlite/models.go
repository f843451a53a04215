package sqlite

import "time"

// Row models. Dates are stored as YYYY-MM-DD text so range filters are
// plain string comparisons.

type memberModel struct {
	MemberID     string    `gorm:"column:member_id;primaryKey"`
	Nickname     string    `gorm:"column:nickname;not null"`
	BadgeWeekly  int       `gorm:"column:badge_weekly;not null"`
	BadgeMonthly int       `gorm:"column:badge_monthly;not null"`
	BadgeBikini  int       `gorm:"column:badge_bikini;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (memberModel) TableName() string { return "members" }

type goalModel struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement"`
	MemberID      string    `gorm:"column:member_id;not null;index:ix_goals_member_kind,priority:1"`
	Kind          string    `gorm:"column:kind;not null;index:ix_goals_member_kind,priority:2"`
	StartDate     string    `gorm:"column:start_date;not null"`
	EndDate       *string   `gorm:"column:end_date"`
	StartWeight   *float64  `gorm:"column:start_weight"`
	TargetWeight  *float64  `gorm:"column:target_weight"`
	CurrentWeight *float64  `gorm:"column:current_weight"`
	FreqPerWeek   *int      `gorm:"column:freq_per_week"`
	Active        bool      `gorm:"column:active;not null"`
	LastModified  time.Time `gorm:"column:last_modified;not null"`
}

func (goalModel) TableName() string { return "goals" }

type exerciseLogModel struct {
	MemberID string `gorm:"column:member_id;primaryKey"`
	Date     string `gorm:"column:date;primaryKey"`
	Count    int    `gorm:"column:count;not null"`
}

func (exerciseLogModel) TableName() string { return "exercise_log" }

type dietLogModel struct {
	MemberID string `gorm:"column:member_id;primaryKey"`
	Date     string `gorm:"column:date;primaryKey"`
	Count    int    `gorm:"column:count;not null"`
}

func (dietLogModel) TableName() string { return "diet_log" }

type weeklyStatusModel struct {
	MemberID         string    `gorm:"column:member_id;primaryKey"`
	WeekStart        string    `gorm:"column:week_start;primaryKey"`
	AchievedExercise bool      `gorm:"column:achieved_exercise;not null"`
	AchievedDiet     bool      `gorm:"column:achieved_diet;not null"`
	AchievedWeight   bool      `gorm:"column:achieved_weight;not null"`
	WeightUpdated    bool      `gorm:"column:weight_updated;not null"`
	RecordedAt       time.Time `gorm:"column:recorded_at;not null"`
}

func (weeklyStatusModel) TableName() string { return "weekly_status" }

type monthlyTrophyModel struct {
	MemberID  string    `gorm:"column:member_id;primaryKey"`
	YearMonth string    `gorm:"column:year_month;primaryKey"`
	Won       bool      `gorm:"column:won;not null"`
	AwardedAt time.Time `gorm:"column:awarded_at;not null"`
}

func (monthlyTrophyModel) TableName() string { return "monthly_trophy" }

type jobRunModel struct {
	Job    string    `gorm:"column:job;primaryKey"`
	Period string    `gorm:"column:period;not null"`
	RanAt  time.Time `gorm:"column:ran_at;not null"`
}

func (jobRunModel) TableName() string { return "job_runs" }
