package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/extmarket/modgate/models"
	"github.com/extmarket/modgate/moderation/schema"
)

// Open connects to the database named by a URL: "sqlite://<path>" or a
// "postgres://" DSN.
func Open(dburl string, maxConnections int) (*gorm.DB, error) {
	var dial gorm.Dialector
	isSqlite := false
	openConns := maxConnections
	if strings.HasPrefix(dburl, "sqlite://") {
		sqlitePath := dburl[len("sqlite://"):]
		// ensure the directory exists when the db file is being initialized
		if !strings.Contains(sqlitePath, ":?") && sqlitePath != ":memory:" {
			os.MkdirAll(filepath.Dir(sqlitePath), os.ModePerm)
		}
		dial = sqlite.Open(sqlitePath)
		openConns = 1
		isSqlite = true
	} else if strings.HasPrefix(dburl, "postgresql://") || strings.HasPrefix(dburl, "postgres://") {
		dial = postgres.Open(dburl)
	} else {
		return nil, fmt.Errorf("unsupported or unrecognized database URL")
	}

	db, err := gorm.Open(dial, &gorm.Config{
		TranslateError: true,
		Logger:         slogGorm.New(),
	})
	if err != nil {
		return nil, err
	}

	sqldb, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxIdleConns(40)
	sqldb.SetMaxOpenConns(openConns)
	sqldb.SetConnMaxIdleTime(time.Hour)

	if isSqlite {
		if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			return nil, err
		}
		if err := db.Exec("PRAGMA synchronous=normal;").Error; err != nil {
			return nil, err
		}
	}
	return db, nil
}

// EnableTracing registers the otel instrumentation plugin on an open
// connection.
func EnableTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin())
}

// GormStores is the production Stores implementation. Subjects are
// materialized through the type registry and must be gorm-mapped structs
// with their primary key in an ID column.
type GormStores struct {
	db    *gorm.DB
	types *schema.Types
}

var _ Stores = (*GormStores)(nil)

func NewGormStores(db *gorm.DB, types *schema.Types) *GormStores {
	return &GormStores{db: db, types: types}
}

func (s *GormStores) Migrate() error {
	return s.db.AutoMigrate(&models.ModerationRecord{})
}

func (s *GormStores) Subjects() SubjectStore {
	return &gormSubjectStore{db: s.db, types: s.types}
}

func (s *GormStores) Records() RecordStore {
	return &gormRecordStore{db: s.db}
}

func (s *GormStores) Transact(ctx context.Context, fn func(tx Stores) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStores{db: tx, types: s.types})
	})
}

type gormSubjectStore struct {
	db    *gorm.DB
	types *schema.Types
}

func (s *gormSubjectStore) GetByTypeAndID(ctx context.Context, subjectType, id string) (schema.Subject, error) {
	subj, ok := s.types.New(subjectType)
	if !ok {
		return nil, fmt.Errorf("unregistered subject type %q", subjectType)
	}
	err := s.db.WithContext(ctx).First(subj, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("subject %s/%s: %w", subjectType, id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return subj, nil
}

func (s *gormSubjectStore) Save(ctx context.Context, subj schema.Subject) error {
	return s.db.WithContext(ctx).Save(subj).Error
}

type gormRecordStore struct {
	db *gorm.DB
}

func (s *gormRecordStore) Get(ctx context.Context, id uint64) (*models.ModerationRecord, error) {
	var rec models.ModerationRecord
	err := s.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("moderation record %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *gormRecordStore) GetForSubject(ctx context.Context, subjectType, subjectID string) (*models.ModerationRecord, error) {
	var rec models.ModerationRecord
	err := s.db.WithContext(ctx).
		First(&rec, "subject_type = ? AND subject_id = ?", subjectType, subjectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("moderation record for %s/%s: %w", subjectType, subjectID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *gormRecordStore) Upsert(ctx context.Context, rec *models.ModerationRecord) error {
	existing, err := s.GetForSubject(ctx, rec.SubjectType, rec.SubjectID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	}
	rec.DecisionStatus = models.DecisionPending
	rec.DecidedBy = nil
	rec.DecidedAt = nil
	rec.DecisionReason = nil
	return s.db.WithContext(ctx).Save(rec).Error
}

func (s *gormRecordStore) Update(ctx context.Context, rec *models.ModerationRecord) error {
	return s.db.WithContext(ctx).Save(rec).Error
}

func (s *gormRecordStore) Queue(ctx context.Context, q QueueQuery) ([]models.ModerationRecord, error) {
	query := s.db.WithContext(ctx).Model(&models.ModerationRecord{})
	if q.SubjectType != "" {
		query = query.Where("subject_type = ?", q.SubjectType)
	}
	if len(q.Statuses) > 0 {
		query = query.Where("decision_status IN ?", q.Statuses)
	}
	if !q.IncludeDrafts {
		query = query.Where("lifecycle_state <> ?", models.LifecycleDraft)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}
	var recs []models.ModerationRecord
	if err := query.Order("decision_status, created_at").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
