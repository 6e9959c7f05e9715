package cart

import "fmt"

// InvalidAttributeError reports a rejected item or fee attribute. It is
// returned before any cart state is touched.
type InvalidAttributeError struct {
	Attribute string
	Reason    string
}

func (e *InvalidAttributeError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Attribute, e.Reason)
}

// InvalidRowIDError reports an operation addressed to a row that is not in
// the active instance.
type InvalidRowIDError struct {
	RowID string
}

func (e *InvalidRowIDError) Error() string {
	return fmt.Sprintf("the cart does not contain rowId %s", e.RowID)
}

// UnknownEntityError reports an association to an entity type that has no
// registered resolver.
type UnknownEntityError struct {
	TypeName string
}

func (e *UnknownEntityError) Error() string {
	return fmt.Sprintf("the supplied entity type %s does not exist", e.TypeName)
}
