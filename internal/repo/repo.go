package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/richardliu001/celebrity-wallet/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const balanceTTL = 5 * time.Minute

// ErrCacheDisabled is returned by cache reads when no Redis client is configured.
var ErrCacheDisabled = errors.New("balance cache disabled")

// Repository implements RepositoryInterface on gorm, with an optional Redis
// balance cache and Kafka writer for the outbox.
type Repository struct {
	db     *gorm.DB
	rdb    *redis.Client
	writer *kafka.Writer
	log    *zap.SugaredLogger
}

// NewRepository constructs repo. rdb and w may be nil.
func NewRepository(db *gorm.DB, rdb *redis.Client, w *kafka.Writer, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, writer: w, log: logger}
}

var _ RepositoryInterface = (*Repository)(nil)

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// Migrate creates or updates every table.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(model.AllModels()...)
}

func (r *Repository) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db.WithContext(ctx)
	}
	return tx.WithContext(ctx)
}

// locked adds FOR UPDATE; the row stays locked until tx ends.
func locked(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// first loads one row by primary key, mapping a miss to model.NotFound.
func first(db *gorm.DB, dest interface{}, entity, id string) error {
	err := db.Where("id = ?", id).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.NotFound(entity, id)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", entity, err)
	}
	return nil
}

// paginate runs the count and the page query on separate statements built by query.
func paginate[T any](query func() *gorm.DB, p model.Pagination) ([]T, int64, error) {
	p = p.Normalize()
	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	items := make([]T, 0, p.Limit)
	err := query().Order("created_at desc").Offset(p.Offset()).Limit(p.Limit).Find(&items).Error
	return items, total, err
}

// CreateOutboxEvent writes event.
func (r *Repository) CreateOutboxEvent(ctx context.Context, tx *gorm.DB, evt *model.OutboxEvent) error {
	return r.conn(ctx, tx).Create(evt).Error
}

// PollOutbox pulls unprocessed events.
func (r *Repository) PollOutbox(ctx context.Context, limit int) ([]model.OutboxEvent, error) {
	var evts []model.OutboxEvent
	err := r.db.WithContext(ctx).Where("processed = ?", false).Order("id").Limit(limit).Find(&evts).Error
	return evts, err
}

// MarkOutboxProcessed sets processed flag.
func (r *Repository) MarkOutboxProcessed(ctx context.Context, id uint64) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{"processed": true, "processed_at": &now}).Error
}

// PublishEvent sends to Kafka, keyed by aggregate so one entity's events stay ordered.
func (r *Repository) PublishEvent(ctx context.Context, evt model.OutboxEvent) error {
	if r.writer == nil {
		return errors.New("kafka writer not configured")
	}
	msg := kafka.Message{
		Key:   []byte(evt.AggregateID),
		Value: []byte(evt.Payload),
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType)},
			{Key: "aggregate", Value: []byte(evt.Aggregate)},
		},
	}
	return r.writer.WriteMessages(ctx, msg)
}

func balanceKey(userID string) string { return fmt.Sprintf("balance:%s", userID) }

// CacheBalance writes Redis.
func (r *Repository) CacheBalance(ctx context.Context, userID string, bal decimal.Decimal) error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Set(ctx, balanceKey(userID), bal.String(), balanceTTL).Err()
}

// GetCachedBalance reads Redis.
func (r *Repository) GetCachedBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if r.rdb == nil {
		return decimal.Zero, ErrCacheDisabled
	}
	str, err := r.rdb.Get(ctx, balanceKey(userID)).Result()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(str)
}
