package cart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"tallycart-backend/money"
)

// itemRecord is the full persistence form of an item. Unlike the display
// snapshot it carries everything needed to rebuild the row, including the
// tax mode and the duplicate-identity nonce.
type itemRecord struct {
	RowID       string  `json:"rowId"`
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Qty         float64 `json:"qty"`
	Price       float64 `json:"price"`
	Options     Options `json:"options"`
	TaxRate     float64 `json:"taxRate"`
	TaxIncluded bool    `json:"taxIncluded"`
	IsSaved     bool    `json:"isSaved"`
	Associated  string  `json:"associated,omitempty"`
	Nonce       string  `json:"nonce,omitempty"`
}

type feeRecord struct {
	Name    string  `json:"name"`
	Amount  float64 `json:"amount"`
	TaxRate float64 `json:"taxRate"`
	Options Options `json:"options"`
}

// snapshot is the persisted {items, fees} state of one instance. Arrays keep
// the display ordering that a JSON object could not guarantee.
type snapshot struct {
	Items []itemRecord `json:"items"`
	Fees  []feeRecord  `json:"fees"`
}

func recordFromItem(i *Item) itemRecord {
	return itemRecord{
		RowID:       i.RowID,
		ID:          i.ID,
		Name:        i.Name,
		Qty:         i.Qty,
		Price:       i.Price,
		Options:     i.Options,
		TaxRate:     i.taxRate,
		TaxIncluded: i.taxIncluded,
		IsSaved:     i.isSaved,
		Associated:  i.associated,
		Nonce:       i.nonce,
	}
}

func (r itemRecord) toItem(fmtr *money.Formatter) *Item {
	return &Item{
		RowID:         r.RowID,
		ID:            r.ID,
		Name:          r.Name,
		Qty:           r.Qty,
		Price:         r.Price,
		Options:       r.Options,
		taxRate:       r.TaxRate,
		taxIncluded:   r.TaxIncluded,
		taxConfigured: true,
		isSaved:       r.IsSaved,
		associated:    r.Associated,
		nonce:         r.Nonce,
		fmtr:          fmtr,
	}
}

func recordFromFee(f *Fee) feeRecord {
	return feeRecord{
		Name:    f.Name,
		Amount:  f.Amount,
		TaxRate: f.taxRate,
		Options: f.Options,
	}
}

func (r feeRecord) toFee(fmtr *money.Formatter) *Fee {
	return &Fee{
		Name:    r.Name,
		Amount:  r.Amount,
		Options: r.Options,
		taxRate: r.TaxRate,
		fmtr:    fmtr,
	}
}

func encodeSnapshot(items []*Item, fees []*Fee) ([]byte, error) {
	snap := snapshot{
		Items: make([]itemRecord, 0, len(items)),
		Fees:  make([]feeRecord, 0, len(fees)),
	}
	for _, item := range items {
		snap.Items = append(snap.Items, recordFromItem(item))
	}
	for _, fee := range fees {
		snap.Fees = append(snap.Fees, recordFromFee(fee))
	}
	return json.Marshal(snap)
}

// decodeSnapshot accepts both the current {items, fees} shape and the legacy
// bare item collection, normalizing to the current form right here so no
// other code branches on shape. The legacy flag tells restore to merge
// instead of replace.
func decodeSnapshot(data []byte) (snap snapshot, legacy bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return snapshot{}, false, nil
	}

	switch trimmed[0] {
	case '[':
		var items []itemRecord
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return snapshot{}, false, fmt.Errorf("cart: decoding legacy snapshot: %w", err)
		}
		return snapshot{Items: items}, true, nil
	case '{':
		if err := json.Unmarshal(trimmed, &snap); err != nil {
			return snapshot{}, false, fmt.Errorf("cart: decoding snapshot: %w", err)
		}
		return snap, false, nil
	default:
		return snapshot{}, false, fmt.Errorf("cart: unrecognized snapshot shape")
	}
}
