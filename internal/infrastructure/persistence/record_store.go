package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/commercedash/backend/internal/domain/commerce"
	"github.com/commercedash/backend/internal/infrastructure/persistence/models"
)

// defaultUpsertWorkers bounds the per-batch write concurrency when the
// caller does not configure one.
const defaultUpsertWorkers = 5

// GormRecordStore implements commerce.RecordStore on a relational store.
// Each record upserts independently on its natural key; one record's
// failure is collected and the rest of the batch proceeds.
type GormRecordStore struct {
	db      *gorm.DB
	logger  *zap.Logger
	workers int
}

// NewGormRecordStore creates a record store writing through db with at most
// workers concurrent upserts per batch.
func NewGormRecordStore(db *gorm.DB, workers int, logger *zap.Logger) *GormRecordStore {
	if workers <= 0 {
		workers = defaultUpsertWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormRecordStore{db: db, logger: logger, workers: workers}
}

// UpsertOrders writes a batch of canonical orders.
func (s *GormRecordStore) UpsertOrders(ctx context.Context, orders []commerce.Order) (int, []error) {
	return s.upsertBatch(ctx, len(orders), func(i int) error {
		order := &orders[i]
		if order.Key.IsZero() {
			return fmt.Errorf("order %q: incomplete record key", order.Key.NativeID)
		}

		var model models.OrderModel
		model.FromDomain(order)
		model.ID = uuid.New()
		model.SyncedAt = time.Now().UTC()

		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   recordKeyColumns(),
			DoUpdates: clause.AssignmentColumns(models.OrderUpsertColumns()),
		}).Create(&model).Error
		if err != nil {
			return fmt.Errorf("order %s: %w", order.Key.NativeID, err)
		}
		return nil
	})
}

// UpsertProducts writes a batch of canonical products.
func (s *GormRecordStore) UpsertProducts(ctx context.Context, products []commerce.Product) (int, []error) {
	return s.upsertBatch(ctx, len(products), func(i int) error {
		product := &products[i]
		if product.Key.IsZero() {
			return fmt.Errorf("product %q: incomplete record key", product.Key.NativeID)
		}

		var model models.ProductModel
		model.FromDomain(product)
		model.ID = uuid.New()
		model.SyncedAt = time.Now().UTC()

		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   recordKeyColumns(),
			DoUpdates: clause.AssignmentColumns(models.ProductUpsertColumns()),
		}).Create(&model).Error
		if err != nil {
			return fmt.Errorf("product %s: %w", product.Key.NativeID, err)
		}
		return nil
	})
}

// UpsertCustomers writes a batch of canonical customers.
func (s *GormRecordStore) UpsertCustomers(ctx context.Context, customers []commerce.Customer) (int, []error) {
	return s.upsertBatch(ctx, len(customers), func(i int) error {
		customer := &customers[i]
		if customer.Key.IsZero() {
			return fmt.Errorf("customer %q: incomplete record key", customer.Key.NativeID)
		}

		var model models.CustomerModel
		model.FromDomain(customer)
		model.ID = uuid.New()
		model.SyncedAt = time.Now().UTC()

		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   recordKeyColumns(),
			DoUpdates: clause.AssignmentColumns(models.CustomerUpsertColumns()),
		}).Create(&model).Error
		if err != nil {
			return fmt.Errorf("customer %s: %w", customer.Key.NativeID, err)
		}
		return nil
	})
}

// recordKeyColumns is the conflict target shared by the three record
// tables.
func recordKeyColumns() []clause.Column {
	return []clause.Column{
		{Name: "platform_type"},
		{Name: "store_name"},
		{Name: "native_id"},
	}
}

// upsertBatch fans n upserts out over the worker pool. Failures are
// collected per record; indices not attempted after cancellation count as
// failures too, so the returned count only covers durable writes.
func (s *GormRecordStore) upsertBatch(ctx context.Context, n int, upsertOne func(i int) error) (int, []error) {
	if n == 0 {
		return 0, nil
	}

	workers := s.workers
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var mu sync.Mutex
	written := 0
	var errs []error

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				var err error
				if err = ctx.Err(); err == nil {
					err = upsertOne(i)
				}

				mu.Lock()
				if err != nil {
					errs = append(errs, err)
				} else {
					written++
				}
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if len(errs) > 0 {
		s.logger.Warn("batch upsert finished with failures",
			zap.Int("written", written),
			zap.Int("failed", len(errs)),
		)
	}
	return written, errs
}

var _ commerce.RecordStore = (*GormRecordStore)(nil)
