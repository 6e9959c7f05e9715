package cart

import "time"

// SessionStore is the live key-value store holding the cart between
// requests. One key per instance; the value is an encoded snapshot. The
// store never hands out references into cart state: values cross this
// boundary as bytes.
type SessionStore interface {
	Has(key string) bool
	Get(key string) ([]byte, bool)
	Put(key string, value []byte)
	Remove(key string)
}

// StoredCart is one named durable snapshot of a cart instance.
type StoredCart struct {
	Identifier string
	Instance   string
	Content    []byte
	CreatedAt  time.Time
}

// StoredCartRepository is the durable store for save-for-later snapshots.
// Find returns (nil, nil) when no record exists for the identifier.
type StoredCartRepository interface {
	Find(identifier string) (*StoredCart, error)
	Delete(identifier string) error
	Insert(record *StoredCart) error
}
