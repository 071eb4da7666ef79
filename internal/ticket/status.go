// internal/ticket/status.go
package ticket

import "fmt"

// Status is the lifecycle state of a ticket.
type Status uint8

const (
	Ready Status = iota
	Bound
	Used
	Blocked
)

var statusNames = [...]string{
	Ready:   "READY",
	Bound:   "BOUND",
	Used:    "USED",
	Blocked: "BLOCKED",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// ParseStatus is the inverse of String.
func ParseStatus(s string) (Status, error) {
	for i, name := range statusNames {
		if name == s {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown ticket status %q", s)
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Terminal reports whether no transition leads out of s.
func (s Status) Terminal() bool {
	return s == Used || s == Blocked
}
