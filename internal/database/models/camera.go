package models

import "github.com/google/uuid"

// Camera is a remote capture device owned by a user. The device API key and
// any extra auth headers are stored as age ciphertext; liveness is never
// persisted, it is queried from the device on each interaction.
type Camera struct {
	Base
	OwnerID       uuid.UUID `gorm:"type:uuid;index;not null" json:"owner_id"`
	Name          string    `gorm:"not null" json:"name"`
	ConnectionURL string    `gorm:"not null" json:"connection_url"`

	EncryptedAPIKey      []byte `gorm:"not null" json:"-"`
	EncryptedAuthHeaders []byte `json:"-"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relationships
	Owner *User `gorm:"foreignKey:OwnerID" json:"-"`
}

func (Camera) TableName() string {
	return "cameras"
}

// OwnedBy implements ownership.Owned.
func (c *Camera) OwnedBy() uuid.UUID {
	return c.OwnerID
}
