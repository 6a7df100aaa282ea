// interfaces.go defines the store interface and the record operations.
package datastore

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pcbaoi/aoi-go/internal/conf"
	"github.com/pcbaoi/aoi-go/internal/errors"
	"github.com/pcbaoi/aoi-go/internal/observability/metrics"
)

// Metrics is a type alias for the observability datastore metrics, letting
// the store record metrics without importing the metrics package everywhere.
type Metrics = metrics.DatastoreMetrics

// Interface abstracts the underlying database implementation and defines the
// operations the inspection line performs against it.
type Interface interface {
	Open() error
	Close() error

	// Record store
	Save(ctx context.Context, rec *Inspection, details []DefectDetail) error
	SaveWithRouting(ctx context.Context, rec *Inspection, details []DefectDetail) error
	Get(ctx context.Context, id uint) (*Inspection, error)
	Search(ctx context.Context, filters *SearchFilters, page, pageSize int) ([]Inspection, error)
	Count(ctx context.Context, filters *SearchFilters) (int64, error)

	// Aggregation
	StatisticsRange(ctx context.Context, start, end time.Time) (*StatisticsSnapshot, error)
	DailyStatsForYear(ctx context.Context, year int) ([]DailyStat, error)
	HourlyStatsRange(ctx context.Context, start, end time.Time) ([]HourlyStat, error)
	TopDefectClasses(ctx context.Context, start, end time.Time, topN int) ([]DefectClassSummary, error)
	DefectRateHistoryRange(ctx context.Context, start, end time.Time) ([]DefectRateHistory, error)

	// Box slot tracker
	GetAllBoxStatus(ctx context.Context) ([]BoxStatus, error)
	GetBoxStatus(ctx context.Context, boxID string) (*BoxStatus, error)
	AdvanceBoxSlot(ctx context.Context, boxID string) (*BoxStatus, error)
	ResetBoxSlot(ctx context.Context, boxID string) (*BoxStatus, error)
	BoxHistoryRange(ctx context.Context, boxID string, start, end time.Time) ([]BoxStatusHistory, error)

	// Users
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	TouchLastLogin(ctx context.Context, userID uint, at time.Time) error

	SetMetrics(m *Metrics)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB

	metrics *Metrics
	log     *slog.Logger

	// boxLocks serializes slot advancement per box category so concurrent
	// routing events cannot lose increments.
	boxMu    sync.Mutex
	boxLocks map[string]*sync.Mutex

	rollupOnce  sync.Once
	rollupCache *cache.Cache
}

// New creates a store for the backend selected in settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// SetMetrics attaches Prometheus metrics to the store. Optional; all
// recording is nil-safe.
func (ds *DataStore) SetMetrics(m *Metrics) {
	ds.metrics = m
}

// SetLogger attaches a structured logger to the store.
func (ds *DataStore) SetLogger(l *slog.Logger) {
	ds.log = l
}

func (ds *DataStore) logger() *slog.Logger {
	if ds.log != nil {
		return ds.log
	}
	return slog.Default()
}

// observe records operation metrics for a completed call.
func (ds *DataStore) observe(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ds.metrics.RecordOperation(operation, status)
	ds.metrics.RecordOperationDuration(operation, time.Since(start).Seconds())
}

// validateInspection rejects malformed records before any query is issued.
func validateInspection(rec *Inspection) error {
	if rec == nil {
		return validationError("inspection record is required", "record", nil)
	}
	if rec.InspectedAt.IsZero() {
		return validationError("inspection timestamp is required", "inspected_at", rec.InspectedAt)
	}
	if rec.Camera == "" {
		return validationError("camera identifier is required", "camera", rec.Camera)
	}
	if !ValidDefect(rec.Defect) {
		return validationError("unknown defect classification", "defect", rec.Defect)
	}
	return nil
}

// Save persists an inspection record and its defect details as a single
// transaction.
func (ds *DataStore) Save(ctx context.Context, rec *Inspection, details []DefectDetail) (err error) {
	defer func(start time.Time) { ds.observe("save", start, err) }(time.Now())

	if err = validateInspection(rec); err != nil {
		return err
	}

	err = ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveInspectionTx(tx, rec, details)
	})
	if err != nil {
		return storageError(err, "save", "camera", rec.Camera)
	}

	ds.metrics.RecordInspectionSaved(rec.Defect)
	return nil
}

// saveInspectionTx creates the record and its children inside tx.
func saveInspectionTx(tx *gorm.DB, rec *Inspection, details []DefectDetail) error {
	if err := tx.Create(rec).Error; err != nil {
		return err
	}
	for i := range details {
		details[i].InspectionID = rec.ID
		if err := tx.Create(&details[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves an inspection record by its ID, including defect details.
// Returns ErrInspectionNotFound when no row matches, distinct from storage
// failures.
func (ds *DataStore) Get(ctx context.Context, id uint) (rec *Inspection, err error) {
	defer func(start time.Time) { ds.observe("get", start, err) }(time.Now())

	var found Inspection
	err = ds.DB.WithContext(ctx).Preload("Details").First(&found, id).Error
	switch {
	case err == nil:
		return &found, nil
	case gormNotFound(err):
		err = notFoundError(ErrInspectionNotFound, "inspection", strconv.FormatUint(uint64(id), 10))
		return nil, err
	default:
		err = storageError(err, "get", "id", id)
		return nil, err
	}
}

// Search returns one page of inspection records matching the filters,
// ordered by inspection time descending with ties broken by id descending so
// pagination is stable. Page numbering is 1-based. No snapshot isolation is
// promised across page fetches.
func (ds *DataStore) Search(ctx context.Context, filters *SearchFilters, page, pageSize int) (recs []Inspection, err error) {
	defer func(start time.Time) { ds.observe("search", start, err) }(time.Now())

	if page < 1 {
		err = validationError("page must be at least 1", "page", page)
		return nil, err
	}
	if pageSize < 1 {
		err = validationError("pageSize must be at least 1", "page_size", pageSize)
		return nil, err
	}

	query := filters.apply(ds.DB.WithContext(ctx).Model(&Inspection{}))
	query = query.Order("inspected_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize)

	if err = query.Find(&recs).Error; err != nil {
		err = storageError(err, "search")
		return nil, err
	}
	return recs, nil
}

// Count returns the number of records matching the filters. Shares the
// predicate path with Search so count and listing cannot diverge.
func (ds *DataStore) Count(ctx context.Context, filters *SearchFilters) (total int64, err error) {
	defer func(start time.Time) { ds.observe("count", start, err) }(time.Now())

	query := filters.apply(ds.DB.WithContext(ctx).Model(&Inspection{}))
	if err = query.Count(&total).Error; err != nil {
		err = storageError(err, "count")
		return 0, err
	}
	return total, nil
}

// gormNotFound reports whether err is GORM's empty-result error.
func gormNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// performAutoMigration creates or updates the schema for all store tables.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(
		&Inspection{},
		&DefectDetail{},
		&HourlyStat{},
		&DailyStat{},
		&DefectRateHistory{},
		&BoxStatus{},
		&BoxStatusHistory{},
		&User{},
	); err != nil {
		return storageError(err, "migrate", "db_type", dbType)
	}

	if debug {
		slog.Debug("database connection initialized", "db_type", dbType, "connection", connectionInfo)
	}
	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Warn,
			Colorful:      false,
		},
	)
}
