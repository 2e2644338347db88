package connect

import (
	"errors"

	"gorm.io/gorm"

	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
	"github.com/branchpay/checkout-backend/pkg/stripe"
)

var errBranchNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "branch not found")

func vendorError(err error, action string) error {
	if stripe.IsTimeout(err) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider did not respond in time")
	}
	return pkgerrors.Wrap(pkgerrors.CodeVendor, err, action+": "+stripe.VendorMessage(err))
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
