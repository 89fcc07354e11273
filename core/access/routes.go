package access

import (
	"strings"

	"github.com/trezcool/lms-admin/core/session"
)

// Route is a protected location of the admin site. Patterns use ":param" segments.
type Route struct {
	Name        string
	Pattern     string
	Requirement Requirement
}

var (
	// AdminArea guards everything under /admin: any authenticated session gets in.
	AdminArea = Route{Name: "admin", Pattern: AdminPath, Requirement: Authenticated()}

	adminOnly      = Require(session.RoleAdmin)
	adminOrTeacher = Require(session.RoleAdmin, session.RoleTeacher)

	// AdminRoutes are the screens nested in AdminArea.
	AdminRoutes = []Route{
		{Name: "dashboard", Pattern: AdminPath, Requirement: adminOnly},
		{Name: "users", Pattern: "/admin/users", Requirement: adminOnly},
		{Name: "courses", Pattern: "/admin/courses", Requirement: adminOrTeacher},
		{Name: "categories", Pattern: CategoriesPath, Requirement: adminOrTeacher},
		{Name: "analytics", Pattern: "/admin/analytics", Requirement: adminOnly},
		{Name: "notifications", Pattern: "/admin/notifications", Requirement: adminOnly},
		{Name: "lessons", Pattern: "/admin/lecture/:id/details", Requirement: adminOrTeacher},
		{Name: "course", Pattern: "/admin/course/:id", Requirement: adminOrTeacher},
		{Name: "questions", Pattern: "/admin/quiz/:quizId/questions", Requirement: adminOrTeacher},
	}
)

// Lookup returns the named admin route.
func Lookup(name string) (Route, bool) {
	for _, r := range AdminRoutes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// Match finds the admin route whose pattern matches `path` (without query).
func Match(path string) (Route, bool) {
	path = strings.TrimRight(path, "/")
	if path == "" {
		path = HomePath
	}
	for _, r := range AdminRoutes {
		if matchPattern(r.Pattern, path) {
			return r, true
		}
	}
	return Route{}, false
}

// Check evaluates the full guard chain (AdminArea, then the route itself) for `path`.
// ok is false when `path` is not a protected route.
func Check(st session.State, path string) (d Decision, ok bool) {
	clean := path
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	r, ok := Match(clean)
	if !ok {
		return Decision{Outcome: Admit}, false
	}
	return Evaluate(st, path, AdminArea.Requirement, r.Requirement), true
}

func matchPattern(pattern, path string) bool {
	pp := strings.Split(strings.Trim(pattern, "/"), "/")
	ps := strings.Split(strings.Trim(path, "/"), "/")
	if len(pp) != len(ps) {
		return false
	}
	for i := range pp {
		if strings.HasPrefix(pp[i], ":") {
			if ps[i] == "" {
				return false
			}
			continue
		}
		if pp[i] != ps[i] {
			return false
		}
	}
	return true
}
