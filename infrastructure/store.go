package infrastructure

import (
	"context"
	"errors"

	"call-filter/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

// Store wraps the gorm connection with the queries the service needs.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// --- Calls ---

func (s *Store) CreateCall(ctx context.Context, call *domain.Call) error {
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(call).Error
}

// CreateCallBySid inserts call unless a call with the same CallSid exists, and
// returns whichever row is stored. Concurrent webhooks for a new call end up
// sharing one row.
func (s *Store) CreateCallBySid(ctx context.Context, call *domain.Call) (*domain.Call, error) {
	if call.CallSid == nil {
		return nil, errors.New("call sid is required")
	}
	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "call_sid"}}, DoNothing: true}).
		Create(call)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 1 {
		return call, nil
	}
	return s.GetCallBySid(ctx, *call.CallSid)
}

func (s *Store) SaveCall(ctx context.Context, call *domain.Call) error {
	return s.db.WithContext(ctx).Save(call).Error
}

func (s *Store) GetCall(ctx context.Context, id string) (*domain.Call, error) {
	var call domain.Call
	if err := s.db.WithContext(ctx).First(&call, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &call, nil
}

func (s *Store) GetCallBySid(ctx context.Context, sid string) (*domain.Call, error) {
	var call domain.Call
	if err := s.db.WithContext(ctx).First(&call, "call_sid = ?", sid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &call, nil
}

// ListCalls returns the most recent calls first.
func (s *Store) ListCalls(ctx context.Context, limit int) ([]*domain.Call, error) {
	var calls []*domain.Call
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&calls).Error
	return calls, err
}

// DeleteCall removes the call together with its notifications.
func (s *Store) DeleteCall(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("call_id = ?", id).Delete(&domain.Notification{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Call{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *Store) Statistics(ctx context.Context) (*domain.Statistics, error) {
	stats := &domain.Statistics{}
	db := s.db.WithContext(ctx).Model(&domain.Call{})
	if err := db.Count(&stats.TotalCalls).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&domain.Call{}).Where("scam_is_scam = ?", true).Count(&stats.SpamCalls).Error; err != nil {
		return nil, err
	}
	stats.FilteredCalls = stats.TotalCalls - stats.SpamCalls
	return stats, nil
}

// --- Profiles ---

func (s *Store) GetProfileByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	var profile domain.Profile
	if err := s.db.WithContext(ctx).First(&profile, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// SaveProfile creates the profile or replaces the password of an existing one.
func (s *Store) SaveProfile(ctx context.Context, profile *domain.Profile) error {
	existing, err := s.GetProfileByUsername(ctx, profile.Username)
	switch {
	case errors.Is(err, ErrNotFound):
		return s.db.WithContext(ctx).Create(profile).Error
	case err != nil:
		return err
	}
	profile.ID = existing.ID
	profile.CreatedAt = existing.CreatedAt
	return s.db.WithContext(ctx).Save(profile).Error
}

// --- Notifications ---

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *Store) ListNotifications(ctx context.Context, callID string) ([]*domain.Notification, error) {
	var out []*domain.Notification
	err := s.db.WithContext(ctx).Where("call_id = ?", callID).Order("id").Find(&out).Error
	return out, err
}
