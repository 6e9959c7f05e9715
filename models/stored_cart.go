package models

import "time"

// StoredCart is one named durable snapshot of a cart instance. Identifier is
// deliberately not unique at the schema level: store is delete-then-insert,
// so the last store wins.
type StoredCart struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Identifier string    `gorm:"index;not null" json:"identifier"`
	Instance   string    `gorm:"not null" json:"instance"`
	Content    []byte    `gorm:"not null" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
