package repository

import (
	"context"
	"time"

	"travelcms/internal/model"

	"gorm.io/gorm"
)

// LogFilter holds the optional predicates of an audit log search. Zero fields
// impose no constraint. The date range applies only when both ends are set.
type LogFilter struct {
	UserID   *uint
	Category model.LogCategory
	Start    *time.Time
	End      *time.Time
}

// HasDateRange reports whether both ends of the range were given
func (f LogFilter) HasDateRange() bool {
	return f.Start != nil && f.End != nil
}

// Apply ANDs the set predicates onto q. End is inclusive of the whole day.
func (f LogFilter) Apply(q *gorm.DB) *gorm.DB {
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Category != "" {
		q = q.Where("category = ?", string(f.Category))
	}
	if f.HasDateRange() {
		from := truncateDay(*f.Start)
		until := truncateDay(*f.End).AddDate(0, 0, 1)
		q = q.Where(`"timestamp" >= ? AND "timestamp" < ?`, from, until)
	}
	return q
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

type LogRepository interface {
	Create(ctx context.Context, entry *model.Log) error
	List(ctx context.Context, offset, limit int) ([]model.Log, int64, error)
	Filter(ctx context.Context, filter LogFilter) ([]model.Log, error)
	Recent(ctx context.Context, limit int) ([]model.Log, error)
}

type logRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) LogRepository {
	return &logRepository{db: db}
}

func (r *logRepository) Create(ctx context.Context, entry *model.Log) error {
	return translateError(GetDB(ctx, r.db).Create(entry).Error)
}

// List returns entries newest first. A non-positive limit returns every entry.
func (r *logRepository) List(ctx context.Context, offset, limit int) ([]model.Log, int64, error) {
	var logs []model.Log
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Log{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := db.Preload("User").Order(`"timestamp" desc, id desc`)
	if limit > 0 {
		query = query.Offset(offset).Limit(limit)
	}
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *logRepository) Filter(ctx context.Context, filter LogFilter) ([]model.Log, error) {
	var logs []model.Log
	query := filter.Apply(GetDB(ctx, r.db).Model(&model.Log{}))
	if err := query.Preload("User").Order(`"timestamp" desc, id desc`).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *logRepository) Recent(ctx context.Context, limit int) ([]model.Log, error) {
	logs, _, err := r.List(ctx, 0, limit)
	return logs, err
}
