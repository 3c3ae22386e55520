package model

// AddressSource exposes the jurisdiction fields of a property address.
type AddressSource interface {
	JurisdictionFields() (state, county, city string)
}

// TransactionRecord is any transaction that may carry a property address.
// Address returns nil when the record has none.
type TransactionRecord interface {
	Address() AddressSource
}

// PropertyAddress is a postal address as extracted from transaction documents.
type PropertyAddress struct {
	StreetNumber    string `json:"street_number,omitempty"`
	StreetName      string `json:"street_name,omitempty"`
	Unit            string `json:"unit,omitempty"`
	City            string `json:"city,omitempty"`
	County          string `json:"county,omitempty"`
	StateOrProvince string `json:"state_or_province,omitempty"`
	PostalCode      string `json:"postal_code,omitempty"`
}

// JurisdictionFields implements AddressSource.
func (a PropertyAddress) JurisdictionFields() (state, county, city string) {
	return a.StateOrProvince, a.County, a.City
}

// Transaction is the subset of an extracted transaction that compliance
// checks read.
type Transaction struct {
	PropertyAddress *PropertyAddress `json:"property_address,omitempty"`
	TransactionType string           `json:"transaction_type,omitempty"`
}

// Address implements TransactionRecord.
func (t Transaction) Address() AddressSource {
	if t.PropertyAddress == nil {
		return nil
	}
	return *t.PropertyAddress
}
