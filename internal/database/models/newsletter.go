package models

import "time"

type NewsletterSubscriber struct {
	Base
	Email          string     `gorm:"uniqueIndex;not null" json:"email"`
	SubscribedAt   time.Time  `json:"subscribed_at"`
	UnsubscribedAt *time.Time `json:"unsubscribed_at,omitempty"`
}

func (NewsletterSubscriber) TableName() string {
	return "newsletter_subscribers"
}
