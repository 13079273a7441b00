package types

import "fmt"

// Role is the reviewer category an actor belongs to. An actor has at most one
// role; RoleNone carries no workflow capability.
type Role string

const (
	RoleNone        Role = ""
	RoleInterviewer Role = "interviewer_a"
	RoleSupervisor  Role = "supervisor_b"
	RoleExaminer    Role = "examiner_c"
)

func (r Role) Valid() bool {
	switch r {
	case RoleInterviewer, RoleSupervisor, RoleExaminer:
		return true
	}
	return false
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// ParseRole accepts the canonical names plus "none" and the empty string.
func ParseRole(v string) (Role, error) {
	switch v {
	case "", "none":
		return RoleNone, nil
	}
	r := Role(v)
	if !r.Valid() {
		return RoleNone, fmt.Errorf("unknown role %q", v)
	}
	return r, nil
}
