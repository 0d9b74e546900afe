package models

import "time"

const PurchaseStatusCompleted = "completed"

// Purchase is created exactly once per Paddle transaction. Customer and
// Product are referenced, Metadata rows are owned and cascade on delete.
type Purchase struct {
	ID                  uint               `gorm:"primaryKey" json:"id"`
	CustomerID          uint               `gorm:"not null;index" json:"customer_id"`
	Customer            Customer           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"customer"`
	ProductID           uint               `gorm:"not null;index" json:"product_id"`
	Product             Product            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"product"`
	PaddleTransactionID string             `gorm:"type:varchar(191);not null;uniqueIndex:ux_purchases_paddle_transaction_id" json:"paddle_transaction_id"`
	Status              string             `gorm:"type:varchar(32);not null;default:'completed'" json:"status"`
	InvoiceURL          *string            `gorm:"type:varchar(2048)" json:"invoice_url,omitempty"`
	Metadata            []PurchaseMetadata `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE" json:"metadata,omitempty"`
	CreatedAt           time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

// MetadataValue returns the stored value for key and whether it exists.
func (p *Purchase) MetadataValue(key string) (string, bool) {
	for _, m := range p.Metadata {
		if m.Key == key {
			return m.Value, true
		}
	}
	return "", false
}
