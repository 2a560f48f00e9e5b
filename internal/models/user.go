package models

// User is the authenticated principal consumed for organization scoping.
// Scrutor does not own user management; records are loaded from the users
// file and only the organization mapping matters to the job core.
type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	APIKey       string   `json:"-" badgerhold:"index"`
	Organization string   `json:"organization"`
	Roles        []string `json:"roles"`
}
