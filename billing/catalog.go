package billing

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Item is a catalog item, the parent of one or more plans.
type Item struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Status  string `json:"status"`
	Channel string `json:"channel"`
}

// Plan is a priced, periodic offering of an item. Price is in the minor unit
// of CurrencyCode.
type Plan struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	InvoiceName  string `json:"invoiceName"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	Period       int    `json:"period"`
	PeriodUnit   string `json:"periodUnit"`
	CurrencyCode string `json:"currencyCode"`
	Status       string `json:"status"`
	Channel      string `json:"channel"`
}

func (i *Item) Clone() *Item {
	cloned := *i
	return &cloned
}

func (p *Plan) Clone() *Plan {
	cloned := *p
	return &cloned
}

// ProductIdentifierList is the container returned by retrieveProductIdentifiers.
type ProductIdentifierList struct {
	ProductIdentifiers []string `json:"productIdentifiers"`
}

// EntitlementList is the container returned by getEntitlements.
type EntitlementList struct {
	Entitlements []string `json:"entitlements"`
}

// DecodeProductIdentifierList decodes the identifier container. A null or
// non-string element fails with a *DecodeError carrying its index.
func DecodeProductIdentifierList(data []byte) (*ProductIdentifierList, error) {
	ids, err := decodeStrings(data, "productIdentifiers", "product identifier")
	if err != nil {
		return nil, err
	}
	return &ProductIdentifierList{ProductIdentifiers: ids}, nil
}

func DecodeEntitlementList(data []byte) (*EntitlementList, error) {
	entitlements, err := decodeStrings(data, "entitlements", "entitlement")
	if err != nil {
		return nil, err
	}
	return &EntitlementList{Entitlements: entitlements}, nil
}

// decodeStrings reads the string list stored under field of a JSON object.
// The field must be present; a null list decodes as empty.
func decodeStrings(data []byte, field, entity string) ([]string, error) {
	var container map[string]json.RawMessage
	if err := json.Unmarshal(data, &container); err != nil {
		return nil, err
	}
	raw, ok := container[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingEnvelope, field)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, err
	}

	values := make([]string, 0, len(elements))
	for i, element := range elements {
		var value *string
		if err := json.Unmarshal(element, &value); err != nil {
			return nil, &DecodeError{Entity: entity, Index: i, Err: err}
		}
		if value == nil {
			return nil, &DecodeError{Entity: entity, Index: i, Err: errors.New("null element")}
		}
		values = append(values, *value)
	}
	return values, nil
}
