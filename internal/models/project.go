package models

import "gorm.io/datatypes"

// Project groups connected data sources for a set of member users.
// The connection flags are flipped only once the remote OAuth gateway reports
// a completed token exchange for the provider.
type Project struct {
	BaseModel

	Name    string `gorm:"column:project_name;not null" json:"project_name"`
	OwnerID string `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Owner   *User  `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`

	GoogleAnalytics bool `gorm:"default:false" json:"google_analytics"`
	Stripe          bool `gorm:"default:false" json:"stripe"`

	Settings datatypes.JSON `json:"settings"`

	Members []User `gorm:"many2many:project_members;" json:"members,omitempty"`
}
