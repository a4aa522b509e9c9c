package testutil

import (
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/spec-kit/support-assistant/internal/config"
	"github.com/spec-kit/support-assistant/internal/persistence"
	"github.com/spec-kit/support-assistant/internal/repository"
)

var dbSeq atomic.Int64

// OpenGormDB opens a migrated, named in-memory SQLite database. Each call gets
// its own database even when tests share a name.
func OpenGormDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := "file:" + name + "_" + time.Now().Format("150405.000000000") + "_" +
		strconv.FormatInt(dbSeq.Add(1), 10) + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := persistence.OpenGorm(config.StoreConfig{Driver: config.StoreDriverSQLite, DSN: dsn}, zap.NewNop())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { persistence.CloseGorm(db) })
	if err := persistence.AutoMigrate(db, zap.NewNop(), repository.GormModels()...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// OpenStore returns a TicketStore over a fresh in-memory database.
func OpenStore(t *testing.T, name string, opts ...repository.StoreOption) repository.TicketStore {
	t.Helper()
	return repository.NewGormTicketStore(OpenGormDB(t, name), opts...)
}

// StepClock returns a clock that advances by step on every call, starting at start.
func StepClock(start time.Time, step time.Duration) func() time.Time {
	var calls atomic.Int64
	return func() time.Time {
		n := calls.Add(1) - 1
		return start.Add(time.Duration(n) * step)
	}
}
