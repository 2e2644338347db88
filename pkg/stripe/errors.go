package stripe

import (
	"context"
	"errors"
	"net"

	"github.com/stripe/stripe-go/v84"
)

// IsTimeout reports whether err came from the call budget or a network timeout.
// Such failures leave the remote state unknown, so callers must not treat them as declines.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// VendorMessage extracts the human readable message Stripe attached to err.
func VendorMessage(err error) string {
	if err == nil {
		return ""
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return "payment provider request failed"
}
