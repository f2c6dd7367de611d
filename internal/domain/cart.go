package domain

import "github.com/shopspring/decimal"

// RetailerFeeSchedule holds a retailer's fee parameters
type RetailerFeeSchedule struct {
	Key             string          `json:"key"`
	Name            string          `json:"name"`
	BaseDeliveryFee decimal.Decimal `json:"baseDeliveryFee"`
	ServiceFee      decimal.Decimal `json:"serviceFee"`
	MinimumOrder    decimal.Decimal `json:"minimumOrder"`
}

// PromoCode describes a known promotion. Exactly one of PercentOff or
// AmountOff is non-zero.
type PromoCode struct {
	Code       string          `json:"code"`
	PercentOff decimal.Decimal `json:"percentOff"` // e.g. 10 for 10%
	AmountOff  decimal.Decimal `json:"amountOff"`
}

// CartLineItem is a priced, validated cart line
type CartLineItem struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// UnavailableItem is a requested item that failed validation, kept in the
// response so the caller can remediate
type UnavailableItem struct {
	OriginalQuery string       `json:"originalQuery"`
	Reason        string       `json:"reason"`
	Suggestions   []Suggestion `json:"suggestions,omitempty"`
}

// CartCalculation is the full priced cart for a retailer.
// Invariant: Total == Subtotal + DeliveryFee + ServiceFee + Tax - Discount,
// with Discount clamped to Subtotal and Total clamped at zero.
type CartCalculation struct {
	LineItems        []CartLineItem    `json:"lineItems"`
	UnavailableItems []UnavailableItem `json:"unavailableItems"`

	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	ServiceFee  decimal.Decimal `json:"serviceFee"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`

	MeetsMinimumOrder bool   `json:"meetsMinimumOrder"`
	AppliedPromo      string `json:"appliedPromo,omitempty"`
}
