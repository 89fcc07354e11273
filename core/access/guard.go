package access

import (
	"github.com/trezcool/lms-admin/core"
	"github.com/trezcool/lms-admin/core/session"
)

// Well known locations
const (
	HomePath       = "/"
	LoginPath      = "/login"
	AdminPath      = "/admin"
	CategoriesPath = "/admin/categories"
)

// DeniedMessage is shown when an authenticated user reaches a route their role may not access.
const DeniedMessage = "You do not have permission to access this page!"

// Policy tells how a Requirement treats an empty role set.
type Policy int

const (
	// RoleRequired admits only the listed roles; an empty list admits nobody.
	RoleRequired Policy = iota
	// OpenIfAuthenticated admits any authenticated session when no roles are listed.
	OpenIfAuthenticated
)

// Requirement is the capability a route demands from the session.
type Requirement struct {
	Roles  []session.Role
	Policy Policy
}

// Require admits only sessions holding one of `roles`.
func Require(roles ...session.Role) Requirement {
	return Requirement{Roles: roles, Policy: RoleRequired}
}

// Authenticated admits any authenticated session, restricted to `roles` when some are given.
func Authenticated(roles ...session.Role) Requirement {
	return Requirement{Roles: roles, Policy: OpenIfAuthenticated}
}

func (req Requirement) allows(role session.Role) bool {
	if len(req.Roles) == 0 {
		return req.Policy == OpenIfAuthenticated
	}
	for _, r := range req.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Outcome int

const (
	Admit Outcome = iota
	RedirectLogin
	RedirectDefault
)

func (o Outcome) String() string {
	switch o {
	case Admit:
		return "admit"
	case RedirectLogin:
		return "redirect to login"
	case RedirectDefault:
		return "redirect to role default"
	default:
		return "unknown"
	}
}

// Decision is the result of evaluating a route entry.
type Decision struct {
	Outcome  Outcome
	Location string       // where to go unless admitted
	ReturnTo string       // RedirectLogin only: where login should send the user back
	Notice   *core.Notice // RedirectDefault only
}

func (d Decision) Admitted() bool { return d.Outcome == Admit }

// DefaultPath is where a role lands when it is turned away from a route.
func DefaultPath(role session.Role) string {
	switch {
	case role.IsTeacher():
		return CategoriesPath
	case role.IsAdmin():
		return AdminPath
	default:
		return HomePath
	}
}

// Evaluate decides whether the session `st` may enter the route guarded by `reqs` (outermost first),
// having requested `requested` (path and query). It must run on every navigation.
func Evaluate(st session.State, requested string, reqs ...Requirement) Decision {
	if !st.IsAuthenticated || st.User == nil {
		return Decision{Outcome: RedirectLogin, Location: LoginPath, ReturnTo: requested}
	}
	for _, req := range reqs {
		if !req.allows(st.User.Role) {
			return Decision{
				Outcome:  RedirectDefault,
				Location: DefaultPath(st.User.Role),
				Notice:   core.ErrorNotice(DeniedMessage),
			}
		}
	}
	return Decision{Outcome: Admit}
}
