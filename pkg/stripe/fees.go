package stripe

import (
	"github.com/shopspring/decimal"

	"github.com/branchpay/checkout-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// Commission is the platform fee policy of a branch.
type Commission struct {
	Type enums.CommissionType
	Rate decimal.Decimal
}

// ApplicationFee converts the commission into the fee Stripe withholds on a direct charge.
// Percentage rates apply to amountCents; fixed rates are currency units. The fee never exceeds the charge.
func ApplicationFee(amountCents int64, commission Commission) int64 {
	if amountCents <= 0 || !commission.Rate.IsPositive() {
		return 0
	}
	var fee int64
	switch commission.Type {
	case enums.CommissionTypeFixed:
		fee = commission.Rate.Mul(hundred).Round(0).IntPart()
	default:
		fee = decimal.NewFromInt(amountCents).Mul(commission.Rate).Div(hundred).Round(0).IntPart()
	}
	if fee > amountCents {
		return amountCents
	}
	return fee
}
