package model

// User is the profile of the signed-in user.
type User struct {
	ID           string `json:"id"`
	PrimaryEmail string `json:"primaryEmail,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
}
