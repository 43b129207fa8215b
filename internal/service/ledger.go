package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/richardliu001/celebrity-wallet/internal/metrics"
	"github.com/richardliu001/celebrity-wallet/internal/model"
	"github.com/richardliu001/celebrity-wallet/internal/repo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PostingRequest describes one balance movement.
type PostingRequest struct {
	UserID      string
	Amount      decimal.Decimal
	Purpose     model.Purpose
	Description string
	ReferenceID string
	Meta        map[string]interface{}
}

// RecordRequest writes history for a balance change made elsewhere.
type RecordRequest struct {
	PostingRequest
	Type            model.TxType
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
}

// LedgerService is the only writer of user balances. Every balance change it
// makes is paired with an immutable Transaction in the same unit of work.
type LedgerService struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
}

// NewLedgerService returns LedgerService.
func NewLedgerService(r repo.RepositoryInterface, logger *zap.SugaredLogger) *LedgerService {
	return &LedgerService{repo: r, log: logger}
}

// inTx runs fn on tx, or on a fresh transaction when tx is nil. The balance
// cache is refreshed only when this call owned the transaction.
func (s *LedgerService) inTx(ctx context.Context, tx *gorm.DB, userID string, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	if err := s.repo.DB(ctx).Transaction(fn); err != nil {
		return err
	}
	s.RefreshCache(ctx, userID)
	return nil
}

// Debit decrements the balance iff it covers the amount, then writes a DEBIT
// record. Nothing is written when the balance is short.
func (s *LedgerService) Debit(ctx context.Context, tx *gorm.DB, req PostingRequest) (*model.Transaction, error) {
	if !req.Amount.IsPositive() {
		metrics.LedgerRejections.WithLabelValues(model.ErrInvalidAmount.Code).Inc()
		return nil, model.ErrInvalidAmount
	}
	var out *model.Transaction
	err := s.inTx(ctx, tx, req.UserID, func(tx *gorm.DB) error {
		ok, err := s.repo.DebitBalance(ctx, tx, req.UserID, req.Amount)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := s.repo.GetUser(ctx, tx, req.UserID); err != nil {
				return err
			}
			metrics.LedgerRejections.WithLabelValues(model.ErrInsufficientBalance.Code).Inc()
			return model.ErrInsufficientBalance
		}
		newBal, err := s.repo.GetBalance(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		out, err = s.post(ctx, tx, req, model.TxDebit, newBal.Add(req.Amount), newBal)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("debit: %w", err)
	}
	return out, nil
}

// Credit increments the balance unconditionally and writes a CREDIT record.
func (s *LedgerService) Credit(ctx context.Context, tx *gorm.DB, req PostingRequest) (*model.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, model.ErrInvalidAmount
	}
	var out *model.Transaction
	err := s.inTx(ctx, tx, req.UserID, func(tx *gorm.DB) error {
		ok, err := s.repo.CreditBalance(ctx, tx, req.UserID, req.Amount)
		if err != nil {
			return err
		}
		if !ok {
			return model.NotFound("user", req.UserID)
		}
		newBal, err := s.repo.GetBalance(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		out, err = s.post(ctx, tx, req, model.TxCredit, newBal.Sub(req.Amount), newBal)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("credit: %w", err)
	}
	return out, nil
}

// Record writes a transaction for a balance change the caller already applied.
// Prefer Debit/Credit, which make the mutation and the record atomic.
func (s *LedgerService) Record(ctx context.Context, tx *gorm.DB, req RecordRequest) (*model.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, model.ErrInvalidAmount
	}
	if req.Type != model.TxDebit && req.Type != model.TxCredit {
		return nil, model.Validation(fmt.Sprintf("unknown transaction type %q", req.Type))
	}
	probe := model.Transaction{Type: req.Type, Amount: req.Amount, PreviousBalance: req.PreviousBalance, NewBalance: req.NewBalance}
	if !probe.Consistent() {
		return nil, model.Validation("new balance does not match previous balance and amount")
	}
	var out *model.Transaction
	err := s.inTx(ctx, tx, req.UserID, func(tx *gorm.DB) error {
		if _, err := s.repo.GetUser(ctx, tx, req.UserID); err != nil {
			return err
		}
		var err error
		out, err = s.post(ctx, tx, req.PostingRequest, req.Type, req.PreviousBalance, req.NewBalance)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	return out, nil
}

func (s *LedgerService) post(ctx context.Context, tx *gorm.DB, req PostingRequest, typ model.TxType, prev, next decimal.Decimal) (*model.Transaction, error) {
	seq, err := s.repo.NextLedgerSeq(ctx, tx, req.UserID)
	if err != nil {
		return nil, err
	}
	t := &model.Transaction{
		ID:              uuid.NewString(),
		Seq:             seq,
		UserID:          req.UserID,
		Type:            typ,
		Purpose:         req.Purpose,
		Amount:          req.Amount,
		PreviousBalance: prev,
		NewBalance:      next,
		Description:     req.Description,
	}
	if req.ReferenceID != "" {
		ref := req.ReferenceID
		t.ReferenceID = &ref
	}
	if req.Meta != nil {
		meta, err := json.Marshal(req.Meta)
		if err != nil {
			return nil, fmt.Errorf("marshal meta: %w", err)
		}
		t.Meta = datatypes.JSON(meta)
	}
	if err := s.repo.CreateTransaction(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	err = emit(ctx, s.repo, tx, "Transaction", t.ID, "transaction.posted", map[string]interface{}{
		"transaction_id": t.ID,
		"user_id":        t.UserID,
		"type":           t.Type,
		"purpose":        t.Purpose,
		"amount":         t.Amount,
		"new_balance":    t.NewBalance,
		"seq":            t.Seq,
		"reference_id":   t.ReferenceID,
	})
	if err != nil {
		return nil, err
	}
	metrics.LedgerPostings.WithLabelValues(string(typ), string(req.Purpose)).Inc()
	return t, nil
}

// FindCompensation returns the existing record for (referenceID, purpose), or nil.
func (s *LedgerService) FindCompensation(ctx context.Context, tx *gorm.DB, referenceID string, purpose model.Purpose) (*model.Transaction, error) {
	t, err := s.repo.FindByReference(ctx, tx, referenceID, purpose)
	if err != nil {
		return nil, fmt.Errorf("find %s for %s: %w", purpose, referenceID, err)
	}
	return t, nil
}

// ListForUser returns one user's transactions, newest first.
func (s *LedgerService) ListForUser(ctx context.Context, userID string, f model.TransactionFilter, p model.Pagination) (*model.Page[model.Transaction], error) {
	f.UserID = userID
	return s.ListAll(ctx, f, p)
}

// ListAll returns transactions across users matching f, newest first.
func (s *LedgerService) ListAll(ctx context.Context, f model.TransactionFilter, p model.Pagination) (*model.Page[model.Transaction], error) {
	items, total, err := s.repo.ListTransactions(ctx, f, p)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return toPage(items, total, p), nil
}

// GetBalance serves from the cache and falls back to the database.
func (s *LedgerService) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	bal, err := s.repo.GetCachedBalance(ctx, userID)
	if err == nil {
		return bal, nil
	}
	bal, err = s.repo.GetBalance(ctx, nil, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.repo.CacheBalance(ctx, userID, bal); err != nil {
		s.log.Warnw("cache balance", "user_id", userID, "error", err)
	}
	return bal, nil
}

// RefreshCache rewrites the cached balance after a commit.
func (s *LedgerService) RefreshCache(ctx context.Context, userID string) {
	bal, err := s.repo.GetBalance(ctx, nil, userID)
	if err != nil {
		s.log.Warnw("refresh balance cache", "user_id", userID, "error", err)
		return
	}
	if err := s.repo.CacheBalance(ctx, userID, bal); err != nil {
		s.log.Warnw("cache balance", "user_id", userID, "error", err)
	}
}

// Reconciliation compares a user's stored balance with their ledger history.
type Reconciliation struct {
	UserID         string          `json:"userId"`
	Balance        decimal.Decimal `json:"balance"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	LedgerSum      decimal.Decimal `json:"ledgerSum"`
	Transactions   int             `json:"transactions"`
	Inconsistent   []string        `json:"inconsistent,omitempty"`
	Consistent     bool            `json:"consistent"`
}

// Reconcile checks that balance - opening balance equals the signed sum of
// every record, that each record's snapshot adds up, and that the newest
// record ends at the stored balance.
func (s *LedgerService) Reconcile(ctx context.Context, userID string) (*Reconciliation, error) {
	bal, err := s.repo.GetBalance(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.UserTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	rec := &Reconciliation{UserID: userID, Balance: bal, OpeningBalance: bal, LedgerSum: decimal.Zero, Transactions: len(txs)}
	if len(txs) > 0 {
		rec.OpeningBalance = txs[0].PreviousBalance
	}
	for _, t := range txs {
		rec.LedgerSum = rec.LedgerSum.Add(t.Signed())
		if !t.Consistent() {
			rec.Inconsistent = append(rec.Inconsistent, t.ID)
		}
	}
	rec.Consistent = len(rec.Inconsistent) == 0 && bal.Sub(rec.OpeningBalance).Equal(rec.LedgerSum)
	if n := len(txs); n > 0 && !txs[n-1].NewBalance.Equal(bal) {
		rec.Consistent = false
	}
	if !rec.Consistent {
		s.log.Errorw("ledger mismatch", "user_id", userID, "balance", bal, "ledger_sum", rec.LedgerSum, "opening", rec.OpeningBalance)
	}
	return rec, nil
}

// isBusiness reports whether err is a domain failure rather than a fault.
func isBusiness(err error) bool {
	var appErr *model.AppError
	return errors.As(err, &appErr)
}
