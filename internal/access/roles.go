// internal/access/roles.go
package access

import (
	"fmt"
	"strings"

	"realticket/internal/domain"
)

// Role names a permission group.
type Role string

const (
	Admin   Role = "DEFAULT_ADMIN_ROLE"
	Manager Role = "MANAGER_ROLE"
	Bouncer Role = "BOUNCER_ROLE"
)

// Roles lists every role in a stable order.
var Roles = []Role{Admin, Manager, Bouncer}

// ParseRole accepts the canonical role name or its short form ("admin", "manager", "bouncer").
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(s) {
	case string(Admin), "ADMIN":
		return Admin, nil
	case string(Manager), "MANAGER":
		return Manager, nil
	case string(Bouncer), "BOUNCER":
		return Bouncer, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownRole, s)
}

func (r Role) valid() bool {
	switch r {
	case Admin, Manager, Bouncer:
		return true
	}
	return false
}

// memberSet is an insertion-ordered set of addresses with O(1) lookup.
// Removal swaps the last member into the vacated slot.
type memberSet struct {
	members []domain.Address
	index   map[domain.Address]int
}

func newMemberSet() *memberSet {
	return &memberSet{index: make(map[domain.Address]int)}
}

func (s *memberSet) contains(a domain.Address) bool {
	_, ok := s.index[a]
	return ok
}

func (s *memberSet) add(a domain.Address) bool {
	if s.contains(a) {
		return false
	}
	s.index[a] = len(s.members)
	s.members = append(s.members, a)
	return true
}

func (s *memberSet) remove(a domain.Address) bool {
	i, ok := s.index[a]
	if !ok {
		return false
	}
	last := len(s.members) - 1
	if i != last {
		moved := s.members[last]
		s.members[i] = moved
		s.index[moved] = i
	}
	s.members = s.members[:last]
	delete(s.index, a)
	return true
}

func (s *memberSet) len() int {
	return len(s.members)
}

func (s *memberSet) at(i int) (domain.Address, bool) {
	if i < 0 || i >= len(s.members) {
		return domain.ZeroAddress, false
	}
	return s.members[i], true
}

func (s *memberSet) clone() *memberSet {
	c := &memberSet{
		members: make([]domain.Address, len(s.members)),
		index:   make(map[domain.Address]int, len(s.index)),
	}
	copy(c.members, s.members)
	for a, i := range s.index {
		c.index[a] = i
	}
	return c
}
