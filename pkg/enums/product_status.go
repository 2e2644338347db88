package enums

// ProductStatus is the publication state of a catalog product.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
	ProductStatusDraft    ProductStatus = "draft"
)

// String implements fmt.Stringer.
func (s ProductStatus) String() string {
	return string(s)
}

// IsSellable reports whether storefronts may list the product.
func (s ProductStatus) IsSellable() bool {
	return s == ProductStatusActive
}
