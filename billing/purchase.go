package billing

import "encoding/json"

// PurchaseResult is the outcome of a purchase flow.
type PurchaseResult struct {
	TransactionID string `json:"transactionId"`
	ProductID     string `json:"productId"`
	Status        string `json:"status"`
}

// IsEmpty reports whether r is the sentinel produced when the native layer
// answered a purchase with an empty string.
func (r *PurchaseResult) IsEmpty() bool {
	return r.TransactionID == "" && r.ProductID == "" && r.Status == ""
}

func DecodePurchaseResult(data []byte) (*PurchaseResult, error) {
	var r PurchaseResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func sentinelPurchaseResult(raw string) *PurchaseResult {
	return &PurchaseResult{
		TransactionID: raw,
		ProductID:     raw,
		Status:        raw,
	}
}
