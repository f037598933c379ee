package history

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hairizuan-noorazman/phone-patrol/logger"
	"github.com/hairizuan-noorazman/phone-patrol/patrol"
)

// GormStore implements the Store interface using GORM over SQLite or MySQL.
// SQLite is the default for a single operator machine; MySQL serves shared
// deployments where several patrol hosts report into one database.
type GormStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewStore opens the configured history database and runs migrations.
func NewStore(opts patrol.HistoryOptions, log logger.Logger) (*GormStore, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(opts.DSN)
	case "mysql":
		dialector = mysql.Open(opts.DSN)
	default:
		return nil, ErrUnsupportedDriver
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return NewGormStore(db, log), nil
}

// NewGormStore creates a history store over an already opened database.
func NewGormStore(db *gorm.DB, log logger.Logger) *GormStore {
	return &GormStore{
		db:     db,
		logger: log,
	}
}

// Record stores a completed patrol run with all of its task outcomes.
func (s *GormStore) Record(ctx context.Context, result *patrol.Result) error {
	run, err := newRun(result)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		s.logger.Error(ctx, "failed to record patrol run", logger.Fields{
			"error":       err.Error(),
			"run_id":      run.ID,
			"patrol_name": run.PatrolName,
		})
		return err
	}

	s.logger.Info(ctx, "patrol run recorded", logger.Fields{
		"run_id":      run.ID,
		"patrol_name": run.PatrolName,
	})

	return nil
}

// ListRuns returns a page of runs for a patrol, newest first.
func (s *GormStore) ListRuns(ctx context.Context, patrolName string, limit, offset int) ([]*Run, error) {
	var runs []*Run
	err := s.db.WithContext(ctx).
		Where("patrol_name = ?", patrolName).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list patrol runs", logger.Fields{
			"error":       err.Error(),
			"patrol_name": patrolName,
			"limit":       limit,
			"offset":      offset,
		})
		return nil, err
	}

	return runs, nil
}

// GetRun retrieves one recorded run with its task outcomes.
func (s *GormStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).
		Preload("Tasks").
		Where("id = ?", id).
		First(&run).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		s.logger.Error(ctx, "failed to get patrol run", logger.Fields{
			"error":  err.Error(),
			"run_id": id,
		})
		return nil, err
	}

	return &run, nil
}
