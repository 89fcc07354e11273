package session

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Storage slots
const (
	TokenKey = "token"
	UserKey  = "user"
)

// ErrAbsent is returned by Decode when either slot is empty.
var ErrAbsent = errors.New("no persisted session")

// CorruptError is returned by Decode when the persisted user record cannot be read back.
type CorruptError struct {
	Err error
}

func (e *CorruptError) Error() string { return "corrupt persisted session: " + e.Err.Error() }
func (e *CorruptError) Cause() error  { return e.Err }
func (e *CorruptError) Unwrap() error { return e.Err }

func IsCorrupt(err error) bool {
	var cErr *CorruptError
	return errors.As(err, &cErr)
}

// Persisted is the durable form of a Session.
type Persisted struct {
	Token string
	User  User
}

// Encode returns the values of the token and user slots.
func Encode(p Persisted) (token, user string, err error) {
	data, err := json.Marshal(p.User)
	if err != nil {
		return "", "", errors.Wrap(err, "marshalling user")
	}
	return p.Token, string(data), nil
}

// Decode rebuilds a Persisted session from the raw token and user slot values.
// It returns ErrAbsent if either value is empty and a *CorruptError if the user record is not a JSON object
// of the expected shape. A user without a role is kept: it holds an unknown role.
func Decode(token, user string) (Persisted, error) {
	if token == "" || user == "" {
		return Persisted{}, ErrAbsent
	}

	var usr User
	if err := json.Unmarshal([]byte(user), &usr); err != nil {
		return Persisted{}, &CorruptError{Err: err}
	}
	return Persisted{Token: token, User: usr}, nil
}
