package session

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Roles
const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Role is the user role issued by the backend. Unknown roles are carried through verbatim.
type Role string

func (r Role) IsAdmin() bool   { return r == RoleAdmin }
func (r Role) IsTeacher() bool { return r == RoleTeacher }
func (r Role) IsStudent() bool { return r == RoleStudent }

// ID is a user identifier; the backend may send it as a JSON number or a JSON string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

type User struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role"`
	Avatar string `json:"avatar,omitempty"`

	// Extra holds the members sent by the backend that have no field above; they are written back as is.
	Extra map[string]json.RawMessage `json:"-"`
}

// userFields has User's fields without its JSON methods.
type userFields User

func (u *User) UnmarshalJSON(data []byte) error {
	var fields userFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	for _, key := range []string{"id", "name", "email", "role", "avatar"} {
		delete(members, key)
	}
	if len(members) > 0 {
		fields.Extra = members
	}

	*u = User(fields)
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(userFields(u))
	if err != nil || len(u.Extra) == 0 {
		return data, err
	}

	var known map[string]json.RawMessage
	if err = json.Unmarshal(data, &known); err != nil {
		return nil, err
	}
	members := make(map[string]json.RawMessage, len(known)+len(u.Extra))
	for k, v := range u.Extra {
		members[k] = v
	}
	for k, v := range known {
		members[k] = v
	}
	return json.Marshal(members)
}

// Eligible reports whether `u` may hold a session on the admin site: students never may.
func Eligible(u User) bool {
	return !u.Role.IsStudent()
}

// State is a snapshot of who is logged in.
type State struct {
	IsAuthenticated bool  `json:"isAuthenticated"`
	User            *User `json:"user"`
}

// Role returns the role of the logged in user, if any.
func (st State) Role() Role {
	if st.User == nil {
		return ""
	}
	return st.User.Role
}
