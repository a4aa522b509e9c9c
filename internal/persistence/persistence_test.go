package persistence

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/config"
)

func TestSQLiteDSN(t *testing.T) {
	dsn := SQLiteDSN(config.StoreConfig{SQLitePath: "cs.db"})
	if !strings.HasPrefix(dsn, "file:cs.db?") || !strings.Contains(dsn, "_foreign_keys=on") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	explicit := "file:x?mode=memory"
	if got := SQLiteDSN(config.StoreConfig{DSN: explicit, SQLitePath: "cs.db"}); got != explicit {
		t.Fatalf("explicit dsn ignored: %q", got)
	}
}

func TestOpenGorm_SQLiteInMemory(t *testing.T) {
	db, err := OpenGorm(config.StoreConfig{
		Driver: config.StoreDriverSQLite,
		DSN:    "file:persistence_open?mode=memory&cache=shared&_foreign_keys=on",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("OpenGorm: %v", err)
	}
	t.Cleanup(func() { CloseGorm(db) })

	var fk int
	if err := db.Raw("PRAGMA foreign_keys").Scan(&fk).Error; err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if fk != 1 {
		t.Fatalf("foreign keys should be enabled, got %d", fk)
	}
}

func TestOpenGorm_RejectsUnknownDriver(t *testing.T) {
	if _, err := OpenGorm(config.StoreConfig{Driver: config.StoreDriverPostgres}, zap.NewNop()); err == nil {
		t.Fatal("postgres is served by pgx, not gorm")
	}
	if _, err := OpenGorm(config.StoreConfig{Driver: config.StoreDriverMySQL}, zap.NewNop()); err == nil {
		t.Fatal("mysql without a DSN should fail")
	}
}

func TestMigrationFilesOrdered(t *testing.T) {
	files, err := migrationFiles()
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	if len(files) == 0 || files[0] != "0001_init.sql" {
		t.Fatalf("unexpected migrations %v", files)
	}
}

func TestNewRedis_DisabledWithoutAddr(t *testing.T) {
	r := NewRedis(config.RedisConfig{}, zap.NewNop())
	if r != nil {
		t.Fatal("expected nil redis when address is empty")
	}
	if r.ClientHandle() != nil {
		t.Fatal("nil redis should expose a nil client")
	}
	r.Close()
}
