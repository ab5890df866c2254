package domain

// Address is a shipping address as collected at checkout and persisted on
// orders and the customer's address book. Country is an ISO 3166-1 alpha-2
// code; postal code format depends on it.
type Address struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}
