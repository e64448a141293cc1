package models

import "gorm.io/gorm"

// Product represents a single catalog entry. Owner is the ID of the user who
// created the record; it is fixed at creation and never accepted from a
// request body.
type Product struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	ProductName string  `json:"product_name" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Owner       string  `json:"owner" gorm:"type:varchar(36);index"`
	gorm.Model          // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
