package repo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/google/uuid"
	"github.com/richardliu001/celebrity-wallet/internal/logger"
	"github.com/richardliu001/celebrity-wallet/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	r := NewRepository(db, nil, nil, logger.NewNop())
	require.NoError(t, r.Migrate())
	return r, db
}

func seedUser(t *testing.T, db *gorm.DB, balance int64) *model.User {
	t.Helper()
	id := uuid.NewString()
	u := &model.User{ID: id, Email: id + "@example.com", Balance: decimal.NewFromInt(balance)}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestDebitBalance_Conditional(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, db, 50)

	ok, err := r.DebitBalance(ctx, nil, u.ID, decimal.NewFromInt(60))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.DebitBalance(ctx, nil, u.ID, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := r.GetUser(ctx, nil, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "0", got.Balance.StringFixed(0))
	assert.Equal(t, "50", got.TotalSpent.StringFixed(0))

	ok, err = r.DebitBalance(ctx, nil, "ghost", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDebitBalance_ConcurrentTransactions(t *testing.T) {
	r, db := newTestRepo(t)
	u := seedUser(t, db, 100)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = db.Transaction(func(tx *gorm.DB) error {
				ok, err := r.DebitBalance(context.Background(), tx, u.ID, decimal.NewFromInt(40))
				if err != nil || !ok {
					return errors.New("rejected")
				}
				mu.Lock()
				success++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	bal, err := r.GetBalance(context.Background(), nil, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, success, "only floor(100/40) debits may pass")
	assert.Equal(t, "20", bal.StringFixed(0))
}

func TestCreditBalance(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, db, 1)

	ok, err := r.CreditBalance(ctx, nil, u.ID, decimal.NewFromInt(9))
	require.NoError(t, err)
	assert.True(t, ok)
	bal, err := r.GetBalance(ctx, nil, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "10", bal.StringFixed(0))

	ok, err = r.CreditBalance(ctx, nil, "ghost", decimal.NewFromInt(9))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.GetBalance(ctx, nil, "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestReserveAndReleaseTickets(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()
	tt := &model.TicketType{ID: uuid.NewString(), EventID: uuid.NewString(), Name: "GA", Price: decimal.NewFromInt(5), Total: 3}
	require.NoError(t, db.Create(tt).Error)

	ok, err := r.ReserveTickets(ctx, nil, tt.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.ReserveTickets(ctx, nil, tt.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = r.ReserveTickets(ctx, nil, tt.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, r.ReleaseTickets(ctx, nil, tt.ID, 3))
	assert.Error(t, r.ReleaseTickets(ctx, nil, tt.ID, 1))

	got, err := r.GetTicketType(ctx, nil, tt.EventID, tt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Sold)

	_, err = r.GetTicketType(ctx, nil, "other-event", tt.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFindByReference(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, db, 0)
	ref := "booking-1"

	got, err := r.FindByReference(ctx, nil, ref, model.PurposeBookingRefund)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, r.CreateTransaction(ctx, nil, &model.Transaction{
		ID: uuid.NewString(), UserID: u.ID, Type: model.TxCredit, Purpose: model.PurposeBookingRefund,
		Amount: decimal.NewFromInt(5), PreviousBalance: decimal.Zero, NewBalance: decimal.NewFromInt(5), ReferenceID: &ref,
	}))

	got, err = r.FindByReference(ctx, nil, ref, model.PurposeBookingRefund)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "5", got.Amount.StringFixed(0))

	got, err = r.FindByReference(ctx, nil, ref, model.PurposeBookingPayment)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListBookings_Paginates(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, db, 0)
	other := seedUser(t, db, 0)

	for i := 0; i < 5; i++ {
		owner := u.ID
		if i == 4 {
			owner = other.ID
		}
		require.NoError(t, r.CreateBooking(ctx, nil, &model.Booking{
			ID: uuid.NewString(), UserID: owner, CelebrityID: "c", BookingTypeID: "bt",
			UnitPrice: decimal.NewFromInt(1), Quantity: 1, TotalAmount: decimal.NewFromInt(1), Status: model.BookingPending,
		}))
	}

	items, total, err := r.ListBookings(ctx, u.ID, model.Pagination{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, items, 1)

	_, total, err = r.ListBookings(ctx, "", model.Pagination{})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
}

func TestOutbox_PollAndMark(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	for _, typ := range []string{"booking.created", "transaction.posted"} {
		require.NoError(t, r.CreateOutboxEvent(ctx, nil, &model.OutboxEvent{Aggregate: "Booking", AggregateID: "b-1", EventType: typ, Payload: "{}"}))
	}
	evts, err := r.PollOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, "booking.created", evts[0].EventType)

	require.NoError(t, r.MarkOutboxProcessed(ctx, evts[0].ID))
	evts, err = r.PollOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, "transaction.posted", evts[0].EventType)

	assert.Error(t, r.PublishEvent(ctx, evts[0]), "no writer configured")
}

func TestBalanceCache(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	r := NewRepository(nil, rdb, nil, logger.NewNop())
	ctx := context.Background()

	mock.ExpectSet("balance:u1", "12.5", balanceTTL).SetVal("OK")
	require.NoError(t, r.CacheBalance(ctx, "u1", decimal.RequireFromString("12.5")))

	mock.ExpectGet("balance:u1").SetVal("12.5")
	bal, err := r.GetCachedBalance(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "12.5", bal.String())

	mock.ExpectGet("balance:u2").RedisNil()
	_, err = r.GetCachedBalance(ctx, "u2")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceCache_Disabled(t *testing.T) {
	r := NewRepository(nil, nil, nil, logger.NewNop())
	ctx := context.Background()

	assert.NoError(t, r.CacheBalance(ctx, "u1", decimal.NewFromInt(1)))
	_, err := r.GetCachedBalance(ctx, "u1")
	assert.ErrorIs(t, err, ErrCacheDisabled)
}

// statementLog collects the SQL gorm sends through db.
type statementLog struct {
	mu   sync.Mutex
	sqls []string
}

func (l *statementLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.sqls...)
}

func captureStatements(t *testing.T, db *gorm.DB) *statementLog {
	t.Helper()
	l := &statementLog{}
	record := func(d *gorm.DB) {
		l.mu.Lock()
		l.sqls = append(l.sqls, d.Statement.SQL.String())
		l.mu.Unlock()
	}
	cb := db.Callback()
	require.NoError(t, cb.Query().After("gorm:query").Register("test:capture_query", record))
	require.NoError(t, cb.Update().After("gorm:update").Register("test:capture_update", record))
	require.NoError(t, cb.Create().After("gorm:create").Register("test:capture_create", record))
	require.NoError(t, cb.Row().After("gorm:row").Register("test:capture_row", record))
	require.NoError(t, cb.Raw().After("gorm:raw").Register("test:capture_raw", record))
	return l
}

func TestDebitBalance_IsOneConditionalUpdate(t *testing.T) {
	r, db := newTestRepo(t)
	u := seedUser(t, db, 100)
	stmts := captureStatements(t, db)

	ok, err := r.DebitBalance(context.Background(), nil, u.ID, decimal.NewFromInt(30))
	require.NoError(t, err)
	require.True(t, ok)

	sqls := stmts.all()
	require.Len(t, sqls, 1, "debit must not read the balance before decrementing it")
	assert.True(t, strings.HasPrefix(sqls[0], "UPDATE"), sqls[0])
	assert.Contains(t, sqls[0], "balance >= ?")
	assert.Contains(t, sqls[0], "balance - ?")
}

// Status changes must read their row with FOR UPDATE. SQLite drops the
// clause, so render the statements with the postgres dialect instead.
func TestStatusReads_TakeRowLocks(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=wallet dbname=wallet sslmode=disable"}),
		&gorm.Config{DryRun: true, DisableAutomaticPing: true, Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	stmts := captureStatements(t, db)
	r := NewRepository(db, nil, nil, logger.NewNop())
	ctx := context.Background()

	_, _ = r.GetBookingForUpdate(ctx, nil, "b1")
	_, _ = r.GetTicketForUpdate(ctx, nil, "t1")
	_, _ = r.GetMembershipForUpdate(ctx, nil, "m1")
	_, _ = r.GetDepositForUpdate(ctx, nil, "d1")
	_, _ = r.GetDeposit(ctx, nil, "d1")

	sqls := stmts.all()
	require.Len(t, sqls, 5)
	for i, table := range []string{"booking", "ticket", "membership", "deposit"} {
		assert.Contains(t, sqls[i], `"`+table+`"`)
		assert.Contains(t, sqls[i], "FOR UPDATE")
	}
	assert.NotContains(t, sqls[4], "FOR UPDATE")
}

func TestTransactionReference_OneRecordPerPurpose(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, db, 0)
	ref := "deposit-1"
	row := func(seq int64, ref *string, purpose model.Purpose) *model.Transaction {
		return &model.Transaction{
			ID: uuid.NewString(), UserID: u.ID, Seq: seq, Type: model.TxCredit, Purpose: purpose,
			Amount: decimal.NewFromInt(5), PreviousBalance: decimal.Zero, NewBalance: decimal.NewFromInt(5), ReferenceID: ref,
		}
	}

	require.NoError(t, r.CreateTransaction(ctx, nil, row(1, &ref, model.PurposeTopup)))
	assert.Error(t, r.CreateTransaction(ctx, nil, row(2, &ref, model.PurposeTopup)))
	require.NoError(t, r.CreateTransaction(ctx, nil, row(3, &ref, model.PurposeAdjustment)))

	// unreferenced records never collide
	require.NoError(t, r.CreateTransaction(ctx, nil, row(4, nil, model.PurposeAdjustment)))
	require.NoError(t, r.CreateTransaction(ctx, nil, row(5, nil, model.PurposeAdjustment)))

	var n int64
	require.NoError(t, db.Model(&model.Transaction{}).Where("user_id = ?", u.ID).Count(&n).Error)
	assert.EqualValues(t, 4, n)
}

func TestNextLedgerSeq(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, db, 0)

	for want := int64(1); want <= 3; want++ {
		seq, err := r.NextLedgerSeq(ctx, nil, u.ID)
		require.NoError(t, err)
		assert.Equal(t, want, seq)
	}

	_, err := r.NextLedgerSeq(ctx, nil, "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUserTransactions_OrderedBySeq(t *testing.T) {
	r, db := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, db, 0)
	at := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	// later postings stamped earlier than their predecessors
	for seq := int64(1); seq <= 3; seq++ {
		require.NoError(t, r.CreateTransaction(ctx, nil, &model.Transaction{
			ID: uuid.NewString(), UserID: u.ID, Seq: seq, Type: model.TxCredit, Purpose: model.PurposeAdjustment,
			Amount: decimal.NewFromInt(1), PreviousBalance: decimal.NewFromInt(seq - 1), NewBalance: decimal.NewFromInt(seq),
			CreatedAt: at.Add(-time.Duration(seq) * time.Second),
		}))
	}

	txs, err := r.UserTransactions(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	for i, tx := range txs {
		assert.EqualValues(t, i+1, tx.Seq)
	}
}
