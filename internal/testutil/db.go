// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/fitcrew/trainer-hub/internal/infrastructure/persistence/sqlite"
	"github.com/fitcrew/trainer-hub/pkg/calendar"
)

// KST is the fixed +09:00 zone the fixtures use.
var KST = time.FixedZone("KST", 9*3600)

// OpenTestDB opens a migrated in-memory sqlite database, closed with the test.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := sqlite.Open(sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewStore returns a sqlite store over a fresh in-memory database.
func NewStore(t *testing.T) *sqlite.Store {
	t.Helper()
	return sqlite.NewStore(OpenTestDB(t))
}

// At returns the instant y-m-d h:min in KST.
func At(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, KST)
}

// Calendar returns a KST calendar driven by a manual clock set to now.
func Calendar(now time.Time) (*calendar.Calendar, *calendar.ManualClock) {
	clock := calendar.NewManualClock(now)
	return calendar.New(KST, clock), clock
}

// Date parses a YYYY-MM-DD literal.
func Date(s string) calendar.Date {
	return calendar.MustParseDate(s)
}
