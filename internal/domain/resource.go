package domain

import "strings"

// Resource parameterizes the CRUD pipeline for one document collection.
type Resource struct {
	// Name is both the route segment and the collection name.
	Name string
	// Singular is the noun used in response messages.
	Singular string
	// RequiredFields must be present and non-empty on create and update.
	RequiredFields []string
	// FilterFields are the query parameters accepted as equality filters on list.
	FilterFields []string
	// Protected routes require a valid bearer token.
	Protected bool
}

// CustomersResource describes the retail store customer collection.
func CustomersResource() Resource {
	return Resource{
		Name:           "customers",
		Singular:       "customer",
		RequiredFields: []string{"username", "email", "password", "first_name", "last_name"},
		FilterFields:   []string{"username", "email"},
	}
}

// UsersResource describes the loosely structured users collection.
func UsersResource() Resource {
	return Resource{
		Name:     "users",
		Singular: "user",
	}
}

// Title returns the singular noun with its first letter upper-cased.
func (r Resource) Title() string {
	return capitalize(r.Singular)
}

// PluralTitle returns the collection name with its first letter upper-cased.
func (r Resource) PluralTitle() string {
	return capitalize(r.Name)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
