package models

// Role values for users within an organization. Only one owner per
// organization is expected; the rule is enforced by the auth service when
// roles change, not by a storage constraint.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

type Organization struct {
	Base
	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	// Relationships
	Users []User `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}
