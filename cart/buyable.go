package cart

// Buyable is a catalog record that can be placed in a cart. The cart only
// needs the identifier, a display name and the tax-exclusive unit price.
type Buyable interface {
	BuyableID() string
	BuyableName() string
	BuyablePrice() float64
}

// EntityResolver re-resolves an associated external record by its id. It is
// invoked lazily, only when a caller asks for the entity behind a row.
type EntityResolver func(id string) (any, error)
