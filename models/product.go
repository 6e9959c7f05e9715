package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the catalog record carts buy from.
type Product struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Price       float64        `gorm:"not null" json:"price"` // unit price, tax exclusive
	Description string         `json:"description"`
	Stock       int            `gorm:"default:0" json:"stock"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Buyable implementation: a product can be placed in a cart directly.

func (p *Product) BuyableID() string {
	return p.ID.String()
}

func (p *Product) BuyableName() string {
	return p.Name
}

func (p *Product) BuyablePrice() float64 {
	return p.Price
}
