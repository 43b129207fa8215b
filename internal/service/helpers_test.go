package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/richardliu001/celebrity-wallet/internal/logger"
	"github.com/richardliu001/celebrity-wallet/internal/model"
	"github.com/richardliu001/celebrity-wallet/internal/repo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var fixedNow = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	ctx  context.Context
	db   *gorm.DB
	repo *repo.Repository
	svc  *Services
}

// newTestEnv builds services on a private in-memory SQLite database. One
// open connection serialises transactions the way row locks would.
func newTestEnv(t *testing.T, fx Effects) *testEnv {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	r := repo.NewRepository(db, nil, nil, logger.NewNop())
	require.NoError(t, r.Migrate())

	svc := NewServices(r, fx, logger.NewNop())
	svc.Memberships.now = func() time.Time { return fixedNow }
	svc.Deposits.now = func() time.Time { return fixedNow }
	return &testEnv{ctx: context.Background(), db: db, repo: r, svc: svc}
}

func (e *testEnv) seedUser(t *testing.T, balance int64) *model.User {
	t.Helper()
	id := uuid.NewString()
	u := &model.User{ID: id, Email: id + "@example.com", Name: "Fan " + id[:4], Balance: decimal.NewFromInt(balance)}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) seedCelebrity(t *testing.T, active bool, price int64, typeActive bool) (*model.Celebrity, *model.BookingType) {
	t.Helper()
	id := uuid.NewString()
	c := &model.Celebrity{ID: id, Name: "Star " + id[:4], Slug: "star-" + id, Active: active}
	require.NoError(t, e.db.Create(c).Error)
	bt := &model.BookingType{ID: uuid.NewString(), CelebrityID: c.ID, Name: "Shoutout", Price: decimal.NewFromInt(price), Active: typeActive}
	require.NoError(t, e.db.Create(bt).Error)
	return c, bt
}

func (e *testEnv) seedEvent(t *testing.T, active bool, price int64, total int) (*model.Event, *model.TicketType) {
	t.Helper()
	id := uuid.NewString()
	ev := &model.Event{ID: id, Name: "Gala " + id[:4], Slug: "gala-" + id, Active: active}
	require.NoError(t, e.db.Create(ev).Error)
	tt := &model.TicketType{ID: uuid.NewString(), EventID: ev.ID, Name: "VIP", Price: decimal.NewFromInt(price), Total: total}
	require.NoError(t, e.db.Create(tt).Error)
	return ev, tt
}

func (e *testEnv) seedPlan(t *testing.T, price int64, period model.BillingPeriod, customDays int) *model.Plan {
	t.Helper()
	id := uuid.NewString()
	p := &model.Plan{
		ID: id, Name: "Plan " + id[:4], Slug: "plan-" + id, Price: decimal.NewFromInt(price),
		BillingPeriod: period, CustomDays: customDays, Active: true,
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func (e *testEnv) user(t *testing.T, id string) *model.User {
	t.Helper()
	u, err := e.repo.GetUser(e.ctx, nil, id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) balance(t *testing.T, id string) string {
	t.Helper()
	return e.user(t, id).Balance.StringFixed(0)
}

func (e *testEnv) countTx(t *testing.T, userID string, purpose model.Purpose) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.Transaction{}).
		Where("user_id = ? AND purpose = ?", userID, purpose).Count(&n).Error)
	return n
}

func (e *testEnv) countEvents(t *testing.T, eventType string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func (e *testEnv) requireConsistent(t *testing.T, userID string) {
	t.Helper()
	rec, err := e.svc.Ledger.Reconcile(e.ctx, userID)
	require.NoError(t, err)
	require.True(t, rec.Consistent, "ledger out of step: %+v", rec)
}

// lockedReads records the table of every query issued with FOR UPDATE. SQLite
// ignores the clause, but the statement still carries it.
func (e *testEnv) lockedReads(t *testing.T) func() []string {
	t.Helper()
	var (
		mu     sync.Mutex
		tables []string
	)
	err := e.db.Callback().Query().After("gorm:query").Register("test:locked_reads", func(d *gorm.DB) {
		if _, ok := d.Statement.Clauses["FOR"]; !ok {
			return
		}
		mu.Lock()
		tables = append(tables, d.Statement.Table)
		mu.Unlock()
	})
	require.NoError(t, err)
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), tables...)
	}
}

// twice runs fn from two goroutines at once and returns both errors.
func twice(fn func() error) [2]error {
	var (
		wg   sync.WaitGroup
		errs [2]error
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = fn()
		}(i)
	}
	wg.Wait()
	return errs
}
