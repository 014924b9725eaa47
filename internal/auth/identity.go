// Package auth defines the acting identity and the capability checks used
// to scope meeting queries. Identity is always passed explicitly — handlers
// receive it from the JWT middleware and thread it into repository calls;
// nothing in this codebase consults ambient authentication state.
package auth

// Role names stored in the users table and in the JWT "role" claim.
const (
	RoleAdmin = "ADMIN" // privileged: sees and assigns any user's meetings
	RoleUser  = "USER"  // regular: locked to meetings they own
)

// Identity is the authenticated actor behind a request.
type Identity struct {
	ID   uint64
	Role string
}

// HasRole reports whether the identity carries the given role. Kept as a
// pure function so query construction can take it as its only authorization
// input.
func HasRole(id Identity, role string) bool { return id.Role == role }

// Privileged reports whether the identity is unrestricted. Anyone not
// holding the regular USER role is treated as privileged, matching the
// admin panel's rule of "restricted only when the Usuario role is present".
func (id Identity) Privileged() bool { return !HasRole(id, RoleUser) }

// ValidRole reports whether a raw role string is one of the known roles.
func ValidRole(role string) bool { return role == RoleAdmin || role == RoleUser }
