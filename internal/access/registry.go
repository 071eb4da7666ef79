// internal/access/registry.go
package access

import (
	"fmt"

	"realticket/internal/domain"
)

// Registry holds the enumerable membership of every role.
// It is not safe for concurrent use; the ledger serialises access.
type Registry struct {
	sets   map[Role]*memberSet
	admins map[Role]Role
}

// NewRegistry creates a registry where ADMIN administers every role.
func NewRegistry() *Registry {
	r := &Registry{
		sets:   make(map[Role]*memberSet, len(Roles)),
		admins: make(map[Role]Role, len(Roles)),
	}
	for _, role := range Roles {
		r.sets[role] = newMemberSet()
		r.admins[role] = Admin
	}
	return r
}

// Bootstrap grants every role to a without an authorization check.
// It is meant for the deployer at construction time only.
func (r *Registry) Bootstrap(a domain.Address) error {
	if a.IsZero() {
		return fmt.Errorf("%w: deployer", domain.ErrInvalidAddress)
	}
	for _, role := range Roles {
		r.sets[role].add(a)
	}
	return nil
}

// AdminRole returns the role whose members may grant and revoke role.
func (r *Registry) AdminRole(role Role) Role {
	return r.admins[role]
}

// HasRole reports whether a is a member of role.
func (r *Registry) HasRole(role Role, a domain.Address) bool {
	set, ok := r.sets[role]
	return ok && set.contains(a)
}

// MemberCount returns the number of members of role.
func (r *Registry) MemberCount(role Role) (int, error) {
	set, err := r.set(role)
	if err != nil {
		return 0, err
	}
	return set.len(), nil
}

// MemberAt returns the member of role at index.
func (r *Registry) MemberAt(role Role, index int) (domain.Address, error) {
	set, err := r.set(role)
	if err != nil {
		return domain.ZeroAddress, err
	}
	a, ok := set.at(index)
	if !ok {
		return domain.ZeroAddress, fmt.Errorf("%w: %s has %d members, index %d", domain.ErrIndexOutOfRange, role, set.len(), index)
	}
	return a, nil
}

// Members returns a copy of the members of role in index order.
func (r *Registry) Members(role Role) ([]domain.Address, error) {
	set, err := r.set(role)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Address, set.len())
	copy(out, set.members)
	return out, nil
}

// Require is the capability check every privileged operation starts with.
func (r *Registry) Require(role Role, caller domain.Address) error {
	if !role.valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
	if !r.HasRole(role, caller) {
		return fmt.Errorf("%w: %s is missing %s", domain.ErrUnauthorized, caller, role)
	}
	return nil
}

// Grant adds a to role. It reports whether membership changed.
func (r *Registry) Grant(caller domain.Address, role Role, a domain.Address) (bool, error) {
	set, err := r.set(role)
	if err != nil {
		return false, err
	}
	if err := r.Require(r.admins[role], caller); err != nil {
		return false, err
	}
	if a.IsZero() {
		return false, fmt.Errorf("%w: grant %s", domain.ErrInvalidAddress, role)
	}
	return set.add(a), nil
}

// Revoke removes a from role. It reports whether membership changed.
func (r *Registry) Revoke(caller domain.Address, role Role, a domain.Address) (bool, error) {
	set, err := r.set(role)
	if err != nil {
		return false, err
	}
	if err := r.Require(r.admins[role], caller); err != nil {
		return false, err
	}
	return set.remove(a), nil
}

// Renounce removes caller from role.
func (r *Registry) Renounce(caller domain.Address, role Role) (bool, error) {
	set, err := r.set(role)
	if err != nil {
		return false, err
	}
	return set.remove(caller), nil
}

// Clone returns a deep copy of the registry.
func (r *Registry) Clone() *Registry {
	c := &Registry{
		sets:   make(map[Role]*memberSet, len(r.sets)),
		admins: make(map[Role]Role, len(r.admins)),
	}
	for role, set := range r.sets {
		c.sets[role] = set.clone()
	}
	for role, admin := range r.admins {
		c.admins[role] = admin
	}
	return c
}

func (r *Registry) set(role Role) (*memberSet, error) {
	set, ok := r.sets[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRole, role)
	}
	return set, nil
}
