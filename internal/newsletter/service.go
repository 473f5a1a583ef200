package newsletter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/meritan/go-curator/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrAlreadySubscribed = errors.New("email already subscribed")
	ErrNotSubscribed     = errors.New("email not subscribed")
	ErrDisposableEmail   = errors.New("disposable email addresses are not accepted")
)

type Service struct {
	db         *gorm.DB
	disposable *DisposableList
	logger     *slog.Logger
}

func NewService(db *gorm.DB, disposable *DisposableList, logger *slog.Logger) *Service {
	return &Service{db: db, disposable: disposable, logger: logger}
}

// Subscribe records an address. Disposable domains are rejected; an address
// that previously unsubscribed is reactivated.
func (s *Service) Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	if s.disposable.IsDisposable(email) {
		return nil, ErrDisposableEmail
	}

	var existing models.NewsletterSubscriber
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		if existing.UnsubscribedAt == nil {
			return nil, ErrAlreadySubscribed
		}
		updates := map[string]interface{}{
			"unsubscribed_at": nil,
			"subscribed_at":   time.Now(),
		}
		if err := s.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
			return nil, err
		}
		existing.UnsubscribedAt = nil
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub := models.NewsletterSubscriber{
		Email:        email,
		SubscribedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, err
	}

	s.logger.Info("newsletter subscription", "email", email)
	return &sub, nil
}

// Unsubscribe marks an address as unsubscribed.
func (s *Service) Unsubscribe(ctx context.Context, email string) error {
	var sub models.NewsletterSubscriber
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotSubscribed
		}
		return err
	}
	if sub.UnsubscribedAt != nil {
		return ErrNotSubscribed
	}

	now := time.Now()
	return s.db.WithContext(ctx).Model(&sub).Update("unsubscribed_at", &now).Error
}
