package access

import "github.com/trezcool/lms-admin/core/session"

type MenuItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

var (
	adminMenu = []MenuItem{
		{ID: "dashboard", Name: "Dashboard", Path: AdminPath},
		{ID: "users", Name: "User Management", Path: "/admin/users"},
		{ID: "categories", Name: "Category Management", Path: CategoriesPath},
		{ID: "courses", Name: "Course Management", Path: "/admin/courses"},
	}
	teacherMenu = []MenuItem{
		{ID: "categories", Name: "Category Management", Path: CategoriesPath},
		{ID: "courses", Name: "Course Management", Path: "/admin/courses"},
	}
)

// Menu returns the sidebar entries of `role`. Anyone but an admin gets the teacher menu.
func Menu(role session.Role) []MenuItem {
	if role.IsAdmin() {
		return adminMenu
	}
	return teacherMenu
}
