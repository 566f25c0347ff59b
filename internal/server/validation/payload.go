// Package validation checks the shape of incoming account requests before
// any credential or session logic runs.
package validation

// UserDetails carries the mutable account fields of an update request.
type UserDetails struct {
	Password  *string `json:"password"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

// Payload is the union of all fields accepted by the account endpoints.
// A nil field is absent and is not validated.
type Payload struct {
	EmailAddress   *string      `json:"emailAddress"`
	FirstName      *string      `json:"firstName"`
	LastName       *string      `json:"lastName"`
	Password       *string      `json:"password"`
	Token          *string      `json:"token"`
	NewUserDetails *UserDetails `json:"newUserDetails"`
}

// Promote returns a copy of p in which the nested NewUserDetails replace the
// top-level password and names. Absent nested fields clear the top-level
// ones. Without NewUserDetails the copy equals p.
func (p Payload) Promote() Payload {
	if p.NewUserDetails == nil {
		return p
	}
	p.Password = p.NewUserDetails.Password
	p.FirstName = p.NewUserDetails.FirstName
	p.LastName = p.NewUserDetails.LastName
	return p
}

// Value dereferences an optional field, returning "" when absent.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
