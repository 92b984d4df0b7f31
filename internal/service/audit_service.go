package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"travelcms/internal/metrics"
	"travelcms/internal/model"
	"travelcms/internal/repository"
	"travelcms/pkg/pagination"
)

// Publisher fans audit events out to live subscribers
type Publisher interface {
	Publish(v interface{})
}

// AuditEntry describes one privileged action before it is stored
type AuditEntry struct {
	UserID   uint
	Username string
	Category model.LogCategory
	Action   string
	Details  map[string]interface{}
}

// LogEvent is a stored audit entry as pushed to the live feed
type LogEvent struct {
	ID        uint              `json:"id"`
	UserID    uint              `json:"user_id"`
	Username  string            `json:"username"`
	Category  model.LogCategory `json:"category"`
	Action    string            `json:"action"`
	Timestamp time.Time         `json:"timestamp"`
	Details   json.RawMessage   `json:"details,omitempty"`
}

type AuditService interface {
	// Record stores the entry using ctx, so it joins the caller's transaction
	Record(ctx context.Context, entry AuditEntry) (LogEvent, error)
	// Announce publishes a recorded entry. Call it after the transaction commits.
	Announce(event LogEvent)
	ListLogs(ctx context.Context, page *pagination.Params) ([]model.Log, int64, error)
	FilterLogs(ctx context.Context, filter repository.LogFilter) ([]model.Log, error)
	RecentLogs(ctx context.Context, limit int) ([]model.Log, error)
}

type auditService struct {
	logRepo   repository.LogRepository
	publisher Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewAuditService(logRepo repository.LogRepository, publisher Publisher, m *metrics.Metrics, log *zap.Logger) AuditService {
	return &auditService{logRepo: logRepo, publisher: publisher, metrics: m, log: log}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) (LogEvent, error) {
	if !entry.Category.IsValid() {
		return LogEvent{}, fmt.Errorf("%w: unknown log category %q", ErrInvalidInput, entry.Category)
	}

	var details []byte
	if len(entry.Details) > 0 {
		var err error
		if details, err = json.Marshal(entry.Details); err != nil {
			return LogEvent{}, fmt.Errorf("failed to encode audit details: %w", err)
		}
	}

	row := &model.Log{
		UserID:   entry.UserID,
		Category: entry.Category,
		Action:   entry.Action,
		Details:  string(details),
	}
	if err := s.logRepo.Create(ctx, row); err != nil {
		return LogEvent{}, fmt.Errorf("failed to write audit log: %w", err)
	}

	return LogEvent{
		ID:        row.ID,
		UserID:    row.UserID,
		Username:  entry.Username,
		Category:  row.Category,
		Action:    row.Action,
		Timestamp: row.Timestamp,
		Details:   json.RawMessage(details),
	}, nil
}

func (s *auditService) Announce(event LogEvent) {
	s.metrics.AuditEntries.WithLabelValues(string(event.Category), event.Action).Inc()
	s.log.Info("audit",
		zap.Uint("log_id", event.ID),
		zap.Uint("user_id", event.UserID),
		zap.String("category", string(event.Category)),
		zap.String("action", event.Action),
	)
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

// ListLogs returns entries newest first. A nil page returns every entry.
func (s *auditService) ListLogs(ctx context.Context, page *pagination.Params) ([]model.Log, int64, error) {
	offset, limit := 0, 0
	if page != nil {
		offset, limit = page.Offset, page.Limit
	}
	logs, total, err := s.logRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list logs: %w", err)
	}
	return logs, total, nil
}

func (s *auditService) FilterLogs(ctx context.Context, filter repository.LogFilter) ([]model.Log, error) {
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, fmt.Errorf("%w: unknown log category %q", ErrInvalidInput, filter.Category)
	}
	logs, err := s.logRepo.Filter(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to filter logs: %w", err)
	}
	return logs, nil
}

func (s *auditService) RecentLogs(ctx context.Context, limit int) ([]model.Log, error) {
	logs, err := s.logRepo.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent logs: %w", err)
	}
	return logs, nil
}
