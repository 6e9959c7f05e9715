package database

import (
	"errors"

	"tallycart-backend/cart"
	"tallycart-backend/models"

	"gorm.io/gorm"
)

// CartStore persists named cart snapshots through gorm. The table name is
// configurable so several deployments can share one database.
type CartStore struct {
	db    *gorm.DB
	table string
}

func NewCartStore(db *gorm.DB, table string) *CartStore {
	if table == "" {
		table = "stored_carts"
	}
	return &CartStore{db: db, table: table}
}

func (s *CartStore) Find(identifier string) (*cart.StoredCart, error) {
	var record models.StoredCart
	err := s.db.Table(s.table).Where("identifier = ?", identifier).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &cart.StoredCart{
		Identifier: record.Identifier,
		Instance:   record.Instance,
		Content:    record.Content,
		CreatedAt:  record.CreatedAt,
	}, nil
}

func (s *CartStore) Delete(identifier string) error {
	return s.db.Table(s.table).Where("identifier = ?", identifier).Delete(&models.StoredCart{}).Error
}

func (s *CartStore) Insert(record *cart.StoredCart) error {
	return s.db.Table(s.table).Create(&models.StoredCart{
		Identifier: record.Identifier,
		Instance:   record.Instance,
		Content:    record.Content,
		CreatedAt:  record.CreatedAt,
	}).Error
}
