package cart

import (
	"fmt"
	"strings"
	"time"

	"tallycart-backend/money"

	"github.com/google/uuid"
)

// DefaultInstance is the instance a new cart points at.
const DefaultInstance = "default"

const instanceKeyPrefix = "cart."

// Config is the cart-wide configuration, resolved once and threaded into the
// aggregate at construction. Items and fees never read configuration on
// their own.
type Config struct {
	// DefaultTaxRate is the percentage applied to items and fees that do
	// not set their own rate.
	DefaultTaxRate float64

	// DefaultTaxIncluded marks whether unit prices embed tax by default.
	DefaultTaxIncluded bool

	// AllowDuplicateIdentity mixes a per-add nonce into the row
	// fingerprint so identical id+options still create distinct rows.
	AllowDuplicateIdentity bool

	// DestroyOnLogout deletes the default instance's live entry when the
	// owner logs out.
	DestroyOnLogout bool

	// DiscountsOnFees is reserved for a future fee/discount interaction.
	DiscountsOnFees bool

	Format money.Config
}

// DefaultConfig returns the stock configuration: 23% tax, deterministic
// identities, standard decimal table.
func DefaultConfig() Config {
	return Config{
		DefaultTaxRate: 23,
		Format:         money.DefaultConfig(),
	}
}

// Cart owns the items and fees of one named instance. It is rebuilt from the
// session store on every read-accessing operation and written back after
// every mutation; no in-process state survives across operations. Single
// writer per instance is assumed.
type Cart struct {
	session SessionStore
	events  Dispatcher
	stored  StoredCartRepository
	cfg     Config
	fmtr    *money.Formatter

	instance string // session key, "cart." + name
	items    []*Item
	fees     []*Fee

	resolvers map[string]EntityResolver
}

// New builds a cart over the given collaborators, pointing at the default
// instance. The durable repository may be nil when store/restore is unused.
func New(session SessionStore, events Dispatcher, stored StoredCartRepository, cfg Config) *Cart {
	c := &Cart{
		session:   session,
		events:    events,
		stored:    stored,
		cfg:       cfg,
		fmtr:      money.NewFormatter(cfg.Format),
		resolvers: make(map[string]EntityResolver),
	}
	c.Instance(DefaultInstance)
	return c
}

// Instance switches the active instance pointer. Pure; no store access.
func (c *Cart) Instance(name string) *Cart {
	if name == "" {
		name = DefaultInstance
	}
	c.instance = instanceKeyPrefix + name
	return c
}

// CurrentInstance returns the active instance name.
func (c *Cart) CurrentInstance() string {
	return strings.TrimPrefix(c.instance, instanceKeyPrefix)
}

// RegisterEntity makes typeName resolvable for Associate and Entity.
func (c *Cart) RegisterEntity(typeName string, resolver EntityResolver) {
	c.resolvers[typeName] = resolver
}

// Add creates an item from plain attributes and puts it in the cart.
func (c *Cart) Add(id, name string, qty, price float64, options Options, extra ...Payload) (*Item, error) {
	item, err := NewItem(id, name, price, options)
	if err != nil {
		return nil, err
	}
	if err := item.SetQuantity(qty); err != nil {
		return nil, err
	}
	return c.AddItem(item, extra...)
}

// AddBuyable sources the item from a catalog record.
func (c *Cart) AddBuyable(b Buyable, qty float64, options Options, extra ...Payload) (*Item, error) {
	item, err := NewItemFromBuyable(b, options)
	if err != nil {
		return nil, err
	}
	if err := item.SetQuantity(qty); err != nil {
		return nil, err
	}
	return c.AddItem(item, extra...)
}

// AddItem puts a pre-built item in the cart. When a row with the same
// identity already exists the incoming quantity is folded into it and the
// existing row's other attributes stay put. Tax settings the caller did not
// choose fall back to the cart-wide defaults.
func (c *Cart) AddItem(item *Item, extra ...Payload) (*Item, error) {
	result, err := c.absorb(item)
	if err != nil {
		return nil, err
	}

	c.dispatch(EventAdded, mergePayload(Payload{
		"cartInstance": c.CurrentInstance(),
		"cartItem":     result,
	}, extra))

	return result, nil
}

// AddBatch adds every item and emits a single added event carrying the
// resulting list.
func (c *Cart) AddBatch(items []*Item, extra ...Payload) ([]*Item, error) {
	results := make([]*Item, 0, len(items))
	for _, item := range items {
		result, err := c.absorb(item)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	c.dispatch(EventAdded, mergePayload(Payload{
		"cartInstance": c.CurrentInstance(),
		"cartItems":    results,
	}, extra))

	return results, nil
}

// AddBatchAttributes builds an item per attribute record and adds them as
// one batch.
func (c *Cart) AddBatchAttributes(attrs []ItemAttributes, extra ...Payload) ([]*Item, error) {
	items := make([]*Item, 0, len(attrs))
	for _, a := range attrs {
		item, err := NewItemFromAttributes(a)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return c.AddBatch(items, extra...)
}

func (c *Cart) absorb(item *Item) (*Item, error) {
	if !item.taxConfigured {
		item.taxRate = c.cfg.DefaultTaxRate
		item.taxIncluded = c.cfg.DefaultTaxIncluded
		item.taxConfigured = true
	}
	item.fmtr = c.fmtr

	if c.cfg.AllowDuplicateIdentity {
		item.stampUnique(uuid.NewString())
	}

	if err := c.loadContent(); err != nil {
		return nil, err
	}

	if idx := c.itemIndex(item.RowID); idx >= 0 {
		existing := c.items[idx]
		existing.Qty += item.Qty
		item = existing
	} else {
		c.items = append(c.items, item)
	}

	if err := c.persist(); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateQty replaces the row's quantity. A resulting quantity of zero or
// below removes the row; the returned item is nil in that case.
func (c *Cart) UpdateQty(rowID string, qty float64, extra ...Payload) (*Item, error) {
	return c.update(rowID, func(item *Item) error {
		item.Qty = qty
		return nil
	}, extra)
}

// UpdateAttributes merges a partial attribute record into the row. Identity
// changes rekey the row; when the new identity collides with another row the
// quantities fold into the surviving row.
func (c *Cart) UpdateAttributes(rowID string, attrs ItemAttributes, extra ...Payload) (*Item, error) {
	return c.update(rowID, func(item *Item) error {
		return item.UpdateFromAttributes(attrs)
	}, extra)
}

// UpdateFromBuyable resyncs the row from a catalog record.
func (c *Cart) UpdateFromBuyable(rowID string, b Buyable, extra ...Payload) (*Item, error) {
	return c.update(rowID, func(item *Item) error {
		item.UpdateFromBuyable(b)
		return nil
	}, extra)
}

func (c *Cart) update(rowID string, apply func(*Item) error, extra []Payload) (*Item, error) {
	if err := c.loadContent(); err != nil {
		return nil, err
	}

	idx := c.itemIndex(rowID)
	if idx < 0 {
		return nil, &InvalidRowIDError{RowID: rowID}
	}

	// Work on a copy so a rejected update leaves the loaded state intact.
	updated := c.items[idx].clone()
	if err := apply(updated); err != nil {
		return nil, err
	}

	if updated.RowID != rowID {
		if otherIdx := c.itemIndex(updated.RowID); otherIdx >= 0 && otherIdx != idx {
			// The new identity already exists: fold quantities into the
			// surviving row and drop the old key.
			updated.Qty += c.items[otherIdx].Qty
			c.items[otherIdx] = updated
			c.items = append(c.items[:idx], c.items[idx+1:]...)
		} else {
			c.items[idx] = updated
		}
	} else {
		c.items[idx] = updated
	}

	if updated.Qty <= 0 {
		if err := c.removeLoaded(updated, extra); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := c.persist(); err != nil {
		return nil, err
	}

	c.dispatch(EventUpdated, mergePayload(Payload{
		"cartInstance": c.CurrentInstance(),
		"cartItem":     updated,
	}, extra))

	return updated, nil
}

// Remove deletes the row with the given rowID.
func (c *Cart) Remove(rowID string, extra ...Payload) error {
	if err := c.loadContent(); err != nil {
		return err
	}

	idx := c.itemIndex(rowID)
	if idx < 0 {
		return &InvalidRowIDError{RowID: rowID}
	}

	return c.removeLoaded(c.items[idx], extra)
}

// removeLoaded deletes item from the already-loaded collection and persists.
func (c *Cart) removeLoaded(item *Item, extra []Payload) error {
	if idx := c.itemIndex(item.RowID); idx >= 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
	}

	if err := c.persist(); err != nil {
		return err
	}

	c.dispatch(EventRemoved, mergePayload(Payload{
		"cartInstance": c.CurrentInstance(),
		"cartItem":     item,
	}, extra))

	return nil
}

// Get returns the row with the given rowID.
func (c *Cart) Get(rowID string) (*Item, error) {
	if err := c.loadContent(); err != nil {
		return nil, err
	}
	idx := c.itemIndex(rowID)
	if idx < 0 {
		return nil, &InvalidRowIDError{RowID: rowID}
	}
	return c.items[idx], nil
}

// Content returns the ordered rows of the active instance.
func (c *Cart) Content() ([]*Item, error) {
	if err := c.loadContent(); err != nil {
		return nil, err
	}
	out := make([]*Item, len(c.items))
	copy(out, c.items)
	return out, nil
}

// Count sums the quantities over all rows.
func (c *Cart) Count() (float64, error) {
	if err := c.loadContent(); err != nil {
		return 0, err
	}
	var count float64
	for _, item := range c.items {
		count += item.Qty
	}
	return count, nil
}

// Search returns the ordered rows satisfying the predicate.
func (c *Cart) Search(pred func(item *Item, rowID string) bool) ([]*Item, error) {
	if err := c.loadContent(); err != nil {
		return nil, err
	}
	var matches []*Item
	for _, item := range c.items {
		if pred(item, item.RowID) {
			matches = append(matches, item)
		}
	}
	return matches, nil
}

// Associate ties the row to a registered entity type. The type is validated
// before anything is touched.
func (c *Cart) Associate(rowID, typeName string) error {
	if _, ok := c.resolvers[typeName]; !ok {
		return &UnknownEntityError{TypeName: typeName}
	}

	if err := c.loadContent(); err != nil {
		return err
	}
	idx := c.itemIndex(rowID)
	if idx < 0 {
		return &InvalidRowIDError{RowID: rowID}
	}

	c.items[idx].associated = typeName
	return c.persist()
}

// Entity resolves the external record associated with the row, or nil when
// the row has no association.
func (c *Cart) Entity(rowID string) (any, error) {
	item, err := c.Get(rowID)
	if err != nil {
		return nil, err
	}
	if item.associated == "" {
		return nil, nil
	}
	resolver, ok := c.resolvers[item.associated]
	if !ok {
		return nil, &UnknownEntityError{TypeName: item.associated}
	}
	return resolver(item.ID)
}

// SetTaxRate sets the row's tax rate and persists.
func (c *Cart) SetTaxRate(rowID string, rate float64) error {
	if err := c.loadContent(); err != nil {
		return err
	}
	idx := c.itemIndex(rowID)
	if idx < 0 {
		return &InvalidRowIDError{RowID: rowID}
	}

	c.items[idx].SetTaxRate(rate)
	return c.persist()
}

// AddFee charges a named flat fee; re-adding a name overwrites it in place.
// A nil taxRate takes the cart-wide default.
func (c *Cart) AddFee(name string, amount float64, taxRate *float64, options Options) (*Fee, error) {
	rate := c.cfg.DefaultTaxRate
	if taxRate != nil {
		rate = *taxRate
	}

	fee, err := NewFee(name, amount, rate, options)
	if err != nil {
		return nil, err
	}
	fee.fmtr = c.fmtr

	if err := c.loadContent(); err != nil {
		return nil, err
	}

	if idx := c.feeIndex(name); idx >= 0 {
		c.fees[idx] = fee
	} else {
		c.fees = append(c.fees, fee)
	}

	if err := c.persist(); err != nil {
		return nil, err
	}
	return fee, nil
}

// Fee returns the named fee, or a zero-amount fee when absent.
func (c *Cart) Fee(name string) (*Fee, error) {
	if err := c.loadContent(); err != nil {
		return nil, err
	}
	if idx := c.feeIndex(name); idx >= 0 {
		return c.fees[idx], nil
	}
	return &Fee{Name: name, fmtr: c.fmtr}, nil
}

// Fees returns the ordered fee collection.
func (c *Cart) Fees() ([]*Fee, error) {
	if err := c.loadContent(); err != nil {
		return nil, err
	}
	out := make([]*Fee, len(c.fees))
	copy(out, c.fees)
	return out, nil
}

// RemoveFee drops the named fee. Removing an absent fee is a no-op.
func (c *Cart) RemoveFee(name string) error {
	if err := c.loadContent(); err != nil {
		return err
	}
	if idx := c.feeIndex(name); idx >= 0 {
		c.fees = append(c.fees[:idx], c.fees[idx+1:]...)
	}
	return c.persist()
}

// RemoveAllFees drops every fee.
func (c *Cart) RemoveAllFees() error {
	if err := c.loadContent(); err != nil {
		return err
	}
	c.fees = nil
	return c.persist()
}

// SubtotalValue is the tax-exclusive sum over all rows.
func (c *Cart) SubtotalValue() (float64, error) {
	if err := c.loadContent(); err != nil {
		return 0, err
	}
	var sum float64
	for _, item := range c.items {
		sum += item.Subtotal()
	}
	return sum, nil
}

// SubtotalWithTaxValue is the tax-inclusive sum over all rows.
func (c *Cart) SubtotalWithTaxValue() (float64, error) {
	if err := c.loadContent(); err != nil {
		return 0, err
	}
	var sum float64
	for _, item := range c.items {
		sum += item.SubtotalWithTax()
	}
	return sum, nil
}

// TaxValue is the tax over all rows, plus fee tax when withFees is set. A
// fee contributes only when its own rate is above zero.
func (c *Cart) TaxValue(withFees bool) (float64, error) {
	if err := c.loadContent(); err != nil {
		return 0, err
	}
	var tax float64
	for _, item := range c.items {
		tax += item.TaxTotal()
	}
	if withFees {
		for _, fee := range c.fees {
			if fee.taxRate > 0 {
				tax += fee.Tax()
			}
		}
	}
	return tax, nil
}

// FeeTaxValue is the tax over all fees alone.
func (c *Cart) FeeTaxValue() (float64, error) {
	if err := c.loadContent(); err != nil {
		return 0, err
	}
	var tax float64
	for _, fee := range c.fees {
		tax += fee.Tax()
	}
	return tax, nil
}

// FeeTotalValue is the sum of fee amounts, tax included when requested.
func (c *Cart) FeeTotalValue(withTax bool) (float64, error) {
	if err := c.loadContent(); err != nil {
		return 0, err
	}
	var total float64
	for _, fee := range c.fees {
		total += fee.Amount
		if withTax && fee.taxRate > 0 {
			total += fee.Tax()
		}
	}
	return total, nil
}

// TotalValue is the tax-inclusive grand total, fees included when withFees
// is set.
func (c *Cart) TotalValue(withFees bool) (float64, error) {
	total, err := c.SubtotalWithTaxValue()
	if err != nil {
		return 0, err
	}
	if withFees {
		fees, err := c.FeeTotalValue(true)
		if err != nil {
			return 0, err
		}
		total += fees
	}
	return total, nil
}

// Formatted aggregate totals. Each uses its own configured decimal count
// unless the override supplies one.

func (c *Cart) Subtotal(o *money.Format) (string, error) {
	v, err := c.SubtotalValue()
	if err != nil {
		return "", err
	}
	return c.fmtr.Format(v, c.cfg.Format.SubtotalExTaxDecimals, o), nil
}

func (c *Cart) SubtotalWithTax(o *money.Format) (string, error) {
	v, err := c.SubtotalWithTaxValue()
	if err != nil {
		return "", err
	}
	return c.fmtr.Format(v, c.cfg.Format.SubtotalIncTaxDecimals, o), nil
}

func (c *Cart) Tax(o *money.Format, withFees bool) (string, error) {
	v, err := c.TaxValue(withFees)
	if err != nil {
		return "", err
	}
	return c.fmtr.Format(v, c.cfg.Format.TaxDecimals, o), nil
}

func (c *Cart) FeeTax(o *money.Format) (string, error) {
	v, err := c.FeeTaxValue()
	if err != nil {
		return "", err
	}
	return c.fmtr.Format(v, c.cfg.Format.FeeTotalTaxDecimals, o), nil
}

func (c *Cart) FeeTotal(o *money.Format, withTax bool) (string, error) {
	v, err := c.FeeTotalValue(withTax)
	if err != nil {
		return "", err
	}
	return c.fmtr.FormatDefault(v, o), nil
}

func (c *Cart) Total(o *money.Format, withFees bool) (string, error) {
	v, err := c.TotalValue(withFees)
	if err != nil {
		return "", err
	}
	return c.fmtr.Format(v, c.cfg.Format.TotalDecimals, o), nil
}

// Destroy deletes the active instance's live entry entirely.
func (c *Cart) Destroy() {
	c.session.Remove(c.instance)
	c.items = nil
	c.fees = nil
}

// Store writes a named durable snapshot of the active instance. Any prior
// snapshot under the identifier is superseded; the last store wins.
func (c *Cart) Store(identifier string, extra ...Payload) error {
	if c.stored == nil {
		return fmt.Errorf("cart: no durable store configured")
	}
	if err := c.loadContent(); err != nil {
		return err
	}

	content, err := encodeSnapshot(c.items, c.fees)
	if err != nil {
		return err
	}

	if err := c.stored.Delete(identifier); err != nil {
		return fmt.Errorf("cart: superseding stored cart %q: %w", identifier, err)
	}
	if err := c.stored.Insert(&StoredCart{
		Identifier: identifier,
		Instance:   c.CurrentInstance(),
		Content:    content,
		CreatedAt:  time.Now(),
	}); err != nil {
		return fmt.Errorf("cart: storing cart %q: %w", identifier, err)
	}

	c.dispatch(EventStored, mergePayload(Payload{
		"cartInstance": c.CurrentInstance(),
		"identifier":   identifier,
	}, extra))

	return nil
}

// Restore loads the durable snapshot with the given identifier into its
// original instance. New-format snapshots replace that instance's state;
// legacy bare-collection snapshots merge into it, last write winning per
// rowID. The caller's active instance pointer is left as it was. A missing
// identifier is a no-op.
func (c *Cart) Restore(identifier string, extra ...Payload) error {
	if c.stored == nil {
		return fmt.Errorf("cart: no durable store configured")
	}

	record, err := c.stored.Find(identifier)
	if err != nil {
		return fmt.Errorf("cart: finding stored cart %q: %w", identifier, err)
	}
	if record == nil {
		return nil
	}

	snap, legacy, err := decodeSnapshot(record.Content)
	if err != nil {
		return err
	}

	previous := c.CurrentInstance()
	c.Instance(record.Instance)
	defer c.Instance(previous)

	if err := c.loadContent(); err != nil {
		return err
	}

	if legacy {
		for _, rec := range snap.Items {
			restored := rec.toItem(c.fmtr)
			if idx := c.itemIndex(restored.RowID); idx >= 0 {
				c.items[idx] = restored
			} else {
				c.items = append(c.items, restored)
			}
		}
	} else {
		c.items = nil
		c.fees = nil
		for _, rec := range snap.Items {
			c.items = append(c.items, rec.toItem(c.fmtr))
		}
		for _, rec := range snap.Fees {
			c.fees = append(c.fees, rec.toFee(c.fmtr))
		}
	}

	if err := c.persist(); err != nil {
		return err
	}

	c.dispatch(EventRestored, mergePayload(Payload{
		"cartInstance": c.CurrentInstance(),
		"identifier":   identifier,
	}, extra))

	return nil
}

// HandleLogout tears down the default instance's live entry when configured
// to do so. This is a direct store delete, independent of the active
// instance pointer.
func (c *Cart) HandleLogout() {
	if c.cfg.DestroyOnLogout {
		c.session.Remove(instanceKeyPrefix + DefaultInstance)
	}
}

func (c *Cart) itemIndex(rowID string) int {
	for i, item := range c.items {
		if item.RowID == rowID {
			return i
		}
	}
	return -1
}

func (c *Cart) feeIndex(name string) int {
	for i, fee := range c.fees {
		if fee.Name == name {
			return i
		}
	}
	return -1
}

// loadContent rebuilds the item and fee collections from the session store.
// An absent instance yields an empty cart.
func (c *Cart) loadContent() error {
	c.items = nil
	c.fees = nil

	data, ok := c.session.Get(c.instance)
	if !ok {
		return nil
	}

	snap, _, err := decodeSnapshot(data)
	if err != nil {
		return err
	}

	for _, rec := range snap.Items {
		c.items = append(c.items, rec.toItem(c.fmtr))
	}
	for _, rec := range snap.Fees {
		c.fees = append(c.fees, rec.toFee(c.fmtr))
	}
	return nil
}

func (c *Cart) persist() error {
	data, err := encodeSnapshot(c.items, c.fees)
	if err != nil {
		return err
	}
	c.session.Put(c.instance, data)
	return nil
}
