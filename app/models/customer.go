package models

import "time"

// Customer is the local copy of a Paddle customer. Email and name are
// refreshed whenever a new purchase by the same customer is reconciled.
type Customer struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	PaddleCustomerID string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_customers_paddle_customer_id" json:"paddle_customer_id"`
	Email            string    `gorm:"type:varchar(255);not null;default:''" json:"email"`
	Name             string    `gorm:"type:varchar(255);not null;default:''" json:"name"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
