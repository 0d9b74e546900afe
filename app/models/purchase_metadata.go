package models

import "time"

// PurchaseMetadata holds one custom_data entry of the originating transaction.
// Structured values are stored as their JSON encoding.
type PurchaseMetadata struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PurchaseID uint      `gorm:"not null;index" json:"purchase_id"`
	Key        string    `gorm:"column:key;type:varchar(191);not null" json:"key"`
	Value      string    `gorm:"column:value;type:text" json:"value"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName keeps the singular table name used by the migrations.
func (PurchaseMetadata) TableName() string {
	return "purchase_metadata"
}
