package repository

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go-pos-invoice/internal/config"
	"go-pos-invoice/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqlRecorder keeps every statement gorm would have sent, with the bind
// variables inlined by the postgres dialector.
type sqlRecorder struct {
	mu    sync.Mutex
	stmts []string
}

func (r *sqlRecorder) LogMode(logger.LogLevel) logger.Interface { return r }
func (r *sqlRecorder) Info(context.Context, string, ...interface{}) {}
func (r *sqlRecorder) Warn(context.Context, string, ...interface{}) {}
func (r *sqlRecorder) Error(context.Context, string, ...interface{}) {}

func (r *sqlRecorder) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	sql, _ := fc()
	r.mu.Lock()
	r.stmts = append(r.stmts, sql)
	r.mu.Unlock()
}

// statement returns the first recorded statement containing marker.
func (r *sqlRecorder) statement(t *testing.T, marker string) string {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stmts {
		if strings.Contains(s, marker) {
			return s
		}
	}
	t.Fatalf("no statement containing %q in %q", marker, r.stmts)
	return ""
}

func assertSQL(t *testing.T, sql string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		if !strings.Contains(sql, f) {
			t.Errorf("sql %q\nmissing %q", sql, f)
		}
	}
}

// dryRunDB builds statements against the postgres dialector without a server.
func dryRunDB(t *testing.T) (*gorm.DB, *sqlRecorder) {
	t.Helper()
	rec := &sqlRecorder{}
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=pos dbname=pos sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               rec,
	})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	return db, rec
}

// postgresDB connects to TEST_DATABASE_URL and migrates it. Tests that need a
// live server skip when the variable is unset.
func postgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Open(config.Database{URL: url}, zap.NewNop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// uniqueTag keeps rows from separate runs against a shared database apart.
func uniqueTag() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}
