package domain

// IdentityKind distinguishes anonymous devices from logged-in customers.
type IdentityKind string

const (
	IdentityAnonymous IdentityKind = "anonymous"
	IdentityCustomer  IdentityKind = "customer"
)

// Identity is the resolved owner of the current request. Exactly one of
// DeviceID/CustomerID is set depending on Kind. The device id is minted once
// and stays stable until explicitly cleared; cart expiry never regenerates it.
type Identity struct {
	Kind       IdentityKind
	DeviceID   string
	CustomerID string
}

// OwnerID returns the id cart/favorites rows are scoped by.
func (i Identity) OwnerID() string {
	if i.Kind == IdentityCustomer {
		return i.CustomerID
	}
	return i.DeviceID
}

func (i Identity) IsCustomer() bool { return i.Kind == IdentityCustomer }
