package user

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/novaluna/payment-engine/internal/model"
)

// sqlRecorder captures every statement gorm executes.
type sqlRecorder struct {
	statements []string
}

func (r *sqlRecorder) LogMode(gormlogger.LogLevel) gormlogger.Interface { return r }
func (r *sqlRecorder) Info(context.Context, string, ...interface{})    {}
func (r *sqlRecorder) Warn(context.Context, string, ...interface{})    {}
func (r *sqlRecorder) Error(context.Context, string, ...interface{})   {}

func (r *sqlRecorder) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	sql, _ := fc()
	r.statements = append(r.statements, sql)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}))
	return db
}

func TestStore_Credit_CreatesUserOnFirstDeposit(t *testing.T) {
	db := newTestDB(t)
	s := New()

	require.NoError(t, s.Credit(db, 42, decimal.RequireFromString("10.50")))

	u, err := s.Get(db, 42)
	require.NoError(t, err)
	assert.True(t, u.Balance.Equal(decimal.RequireFromString("10.50")))
	assert.True(t, u.TotalDeposits.Equal(decimal.RequireFromString("10.50")))
	assert.NotNil(t, u.LastDepositAt)
}

func TestStore_Credit_AccumulatesBalance(t *testing.T) {
	db := newTestDB(t)
	s := New()

	require.NoError(t, s.Credit(db, 42, decimal.RequireFromString("10.50")))
	require.NoError(t, s.Credit(db, 42, decimal.RequireFromString("0.25")))

	u, err := s.Get(db, 42)
	require.NoError(t, err)
	assert.True(t, u.Balance.Equal(decimal.RequireFromString("10.75")))
	assert.True(t, u.TotalDeposits.Equal(decimal.RequireFromString("10.75")))
}

func TestStore_Credit_IncrementsInSQL(t *testing.T) {
	db := newTestDB(t)
	s := New()
	require.NoError(t, s.Credit(db, 42, decimal.RequireFromString("10.50")))

	// The increment must be computed by the database, not read into Go and
	// written back, or concurrent credits for different references lose
	// updates.
	recorder := &sqlRecorder{}
	session := db.Session(&gorm.Session{Logger: recorder})
	require.NoError(t, s.Credit(session, 42, decimal.RequireFromString("0.25")))

	all := strings.Join(recorder.statements, "\n")
	assert.Contains(t, all, "users.balance + ")
	assert.Contains(t, all, "users.total_deposits + ")
}
