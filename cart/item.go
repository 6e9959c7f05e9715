package cart

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"math"

	"tallycart-backend/money"
)

// Item is one priced, quantified row in a cart instance. Its RowID is a
// content fingerprint over id and options, so the same product with the same
// options always lands on the same row.
type Item struct {
	RowID   string
	ID      string
	Name    string
	Qty     float64
	Price   float64 // unit price, tax exclusive
	Options Options

	taxRate       float64 // percent
	taxIncluded   bool
	taxConfigured bool // caller set the tax fields; cart defaults no longer apply
	isSaved       bool
	associated    string // registered entity type name
	nonce         string // non-empty only in duplicate-identity mode

	fmtr *money.Formatter
}

// ItemAttributes is a partial attribute record. Nil fields are left
// untouched on update; on creation ID, Name, Qty and Price are required.
type ItemAttributes struct {
	ID      *string
	Name    *string
	Qty     *float64
	Price   *float64
	Options Options
}

// NewItem validates the identifying attributes and computes the RowID.
func NewItem(id, name string, price float64, options Options) (*Item, error) {
	if id == "" {
		return nil, &InvalidAttributeError{Attribute: "id", Reason: "please supply a valid identifier"}
	}
	if name == "" {
		return nil, &InvalidAttributeError{Attribute: "name", Reason: "please supply a valid name"}
	}
	if math.IsNaN(price) || price < 0 {
		return nil, &InvalidAttributeError{Attribute: "price", Reason: "please supply a valid price"}
	}

	item := &Item{
		ID:      id,
		Name:    name,
		Price:   price,
		Options: options.Clone(),
	}
	item.refreshRowID()
	return item, nil
}

// NewItemFromBuyable sources id, name and price from a catalog record.
func NewItemFromBuyable(b Buyable, options Options) (*Item, error) {
	return NewItem(b.BuyableID(), b.BuyableName(), b.BuyablePrice(), options)
}

// NewItemFromAttributes builds an item from a full attribute record.
func NewItemFromAttributes(attrs ItemAttributes) (*Item, error) {
	if attrs.ID == nil || attrs.Name == nil || attrs.Price == nil {
		return nil, &InvalidAttributeError{Attribute: "attributes", Reason: "id, name and price are required"}
	}
	if attrs.Qty == nil {
		return nil, &InvalidAttributeError{Attribute: "qty", Reason: "please supply a valid quantity"}
	}

	item, err := NewItem(*attrs.ID, *attrs.Name, *attrs.Price, attrs.Options)
	if err != nil {
		return nil, err
	}
	if err := item.SetQuantity(*attrs.Qty); err != nil {
		return nil, err
	}
	return item, nil
}

// SetQuantity rejects missing or non-numeric quantities. It does not enforce
// positivity; the cart removes rows whose quantity drops to zero or below
// after an update.
func (i *Item) SetQuantity(qty float64) error {
	if qty == 0 || math.IsNaN(qty) {
		return &InvalidAttributeError{Attribute: "qty", Reason: "please supply a valid quantity"}
	}
	i.Qty = qty
	return nil
}

// SetTaxRate sets the tax rate as a percentage.
func (i *Item) SetTaxRate(rate float64) *Item {
	i.taxRate = rate
	i.taxConfigured = true
	return i
}

func (i *Item) TaxRate() float64 {
	return i.taxRate
}

// SetTaxIncluded marks whether Price already embeds tax.
func (i *Item) SetTaxIncluded(included bool) *Item {
	i.taxIncluded = included
	i.taxConfigured = true
	return i
}

func (i *Item) TaxIncluded() bool {
	return i.taxIncluded
}

// SetSaved flags the row as saved for later. Cosmetic; totals ignore it.
func (i *Item) SetSaved(saved bool) *Item {
	i.isSaved = saved
	return i
}

func (i *Item) IsSaved() bool {
	return i.isSaved
}

// AssociatedType returns the entity type name set by Cart.Associate.
func (i *Item) AssociatedType() string {
	return i.associated
}

// UpdateFromAttributes partially replaces the item's attributes. The RowID is
// regenerated from the resulting id and options, so an identity-affecting
// update moves the row under a new key.
func (i *Item) UpdateFromAttributes(attrs ItemAttributes) error {
	if attrs.ID != nil {
		if *attrs.ID == "" {
			return &InvalidAttributeError{Attribute: "id", Reason: "please supply a valid identifier"}
		}
		i.ID = *attrs.ID
	}
	if attrs.Qty != nil {
		i.Qty = *attrs.Qty
	}
	if attrs.Name != nil {
		if *attrs.Name == "" {
			return &InvalidAttributeError{Attribute: "name", Reason: "please supply a valid name"}
		}
		i.Name = *attrs.Name
	}
	if attrs.Price != nil {
		if math.IsNaN(*attrs.Price) || *attrs.Price < 0 {
			return &InvalidAttributeError{Attribute: "price", Reason: "please supply a valid price"}
		}
		i.Price = *attrs.Price
	}
	if attrs.Options != nil {
		i.Options = attrs.Options.Clone()
	}

	i.refreshRowID()
	return nil
}

// UpdateFromBuyable resyncs id, name and price from a catalog record.
func (i *Item) UpdateFromBuyable(b Buyable) {
	i.ID = b.BuyableID()
	i.Name = b.BuyableName()
	i.Price = b.BuyablePrice()
	i.refreshRowID()
}

// refreshRowID recomputes the fingerprint from the current id and options.
// The nonce, when set, keeps duplicate-identity rows distinct across
// regeneration.
func (i *Item) refreshRowID() {
	sum := md5.Sum([]byte(i.ID + i.nonce + i.Options.canonical()))
	i.RowID = hex.EncodeToString(sum[:])
}

// stampUnique mixes a per-add nonce into the fingerprint so identical id and
// options still produce a distinct row.
func (i *Item) stampUnique(nonce string) {
	i.nonce = nonce
	i.refreshRowID()
}

func (i *Item) clone() *Item {
	dup := *i
	dup.Options = i.Options.Clone()
	return &dup
}

// UnitTax is the tax on one unit. With tax-included pricing the embedded tax
// is extracted from the unit price; otherwise it is added on top. The rate is
// a percentage in both modes.
func (i *Item) UnitTax() float64 {
	if i.taxIncluded {
		return i.Price * i.taxRate / (100 + i.taxRate)
	}
	return i.Price * i.taxRate / 100
}

// PriceWithTax is the customer-facing unit price.
func (i *Item) PriceWithTax() float64 {
	if i.taxIncluded {
		return i.Price
	}
	return i.Price + i.UnitTax()
}

// Subtotal is the tax-exclusive line price.
func (i *Item) Subtotal() float64 {
	return i.Qty * i.Price
}

// SubtotalWithTax is the tax-inclusive line price.
func (i *Item) SubtotalWithTax() float64 {
	if i.taxIncluded {
		return i.Subtotal()
	}
	return i.Subtotal() + i.TaxTotal()
}

// TaxTotal is the tax over the whole line.
func (i *Item) TaxTotal() float64 {
	return i.UnitTax() * i.Qty
}

// Total is the tax-inclusive grand figure for the line.
func (i *Item) Total() float64 {
	return i.SubtotalWithTax()
}

func (i *Item) formatter() *money.Formatter {
	if i.fmtr == nil {
		i.fmtr = money.NewFormatter(money.DefaultConfig())
	}
	return i.fmtr
}

// Formatted display variants. Each uses its own configured decimal count
// unless the override supplies one.

func (i *Item) PriceFormatted(o *money.Format) string {
	f := i.formatter()
	return f.Format(i.Price, f.Config().PriceExTaxDecimals, o)
}

func (i *Item) PriceWithTaxFormatted(o *money.Format) string {
	f := i.formatter()
	return f.Format(i.PriceWithTax(), f.Config().PriceIncTaxDecimals, o)
}

func (i *Item) UnitTaxFormatted(o *money.Format) string {
	f := i.formatter()
	return f.Format(i.UnitTax(), f.Config().TaxDecimals, o)
}

func (i *Item) TaxTotalFormatted(o *money.Format) string {
	f := i.formatter()
	return f.Format(i.TaxTotal(), f.Config().TaxTotalDecimals, o)
}

func (i *Item) SubtotalFormatted(o *money.Format) string {
	f := i.formatter()
	return f.Format(i.Subtotal(), f.Config().SubtotalExTaxDecimals, o)
}

func (i *Item) SubtotalWithTaxFormatted(o *money.Format) string {
	f := i.formatter()
	return f.Format(i.SubtotalWithTax(), f.Config().SubtotalIncTaxDecimals, o)
}

func (i *Item) TotalFormatted(o *money.Format) string {
	f := i.formatter()
	return f.Format(i.Total(), f.Config().TotalDecimals, o)
}

// MarshalJSON renders the display snapshot of the row. Tax-inclusive figures
// are derivable and intentionally not part of it.
func (i *Item) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"rowId":    i.RowID,
		"id":       i.ID,
		"name":     i.Name,
		"qty":      i.Qty,
		"price":    i.Price,
		"options":  i.Options,
		"tax":      i.UnitTax(),
		"isSaved":  i.isSaved,
		"subtotal": i.Subtotal(),
	})
}
