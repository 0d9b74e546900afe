package models

import "time"

const DefaultCurrency = "USD"

// Product mirrors a Paddle price. Price is stored in minor units (cents).
type Product struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PaddlePriceID string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_products_paddle_price_id" json:"paddle_price_id"`
	Name          string    `gorm:"type:varchar(255);not null;default:''" json:"name"`
	Description   *string   `gorm:"type:text" json:"description,omitempty"`
	Price         int64     `gorm:"not null;default:0" json:"price"`
	Currency      string    `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
