package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/lms-admin/core/auth"
	"github.com/trezcool/lms-admin/core/session"
)

// ErrLoginRejected is returned when the authentication endpoint answers 2xx without a usable session.
var ErrLoginRejected = errors.New("login rejected by the authentication endpoint")

// Authenticate exchanges the credentials for a token and a user record.
func (c *Client) Authenticate(ctx context.Context, creds auth.Credentials) (auth.Result, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return auth.Result{}, errors.Wrap(err, "marshalling credentials")
	}

	respBody, err := c.do(ctx, http.MethodPost, c.loginPath, "", nil, body)
	if err != nil {
		return auth.Result{}, err
	}

	var env envelope
	if err = json.Unmarshal(respBody, &env); err != nil {
		return auth.Result{}, errors.Wrap(ErrLoginRejected, "parsing login response")
	}
	if env.Status != "success" {
		return auth.Result{}, errors.Wrapf(ErrLoginRejected, "status %q", env.Status)
	}

	token, usr, err := extractSession(env.Data)
	if err != nil {
		return auth.Result{}, errors.Wrap(err, "extracting session")
	}
	return auth.Result{Token: token, User: usr}, nil
}

// extractSession reads the token and the user record out of the login `data` object.
// The user is taken from the `user` member when there is one, otherwise from the first member
// (in document order) holding an object.
func extractSession(data json.RawMessage) (string, session.User, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return "", session.User{}, ErrLoginRejected
	}

	var token string
	var named, first json.RawMessage
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return "", session.User{}, errors.Wrap(err, "reading key")
		}
		key, _ := keyTok.(string)

		var val json.RawMessage
		if err = dec.Decode(&val); err != nil {
			return "", session.User{}, errors.Wrapf(err, "reading %q", key)
		}

		switch {
		case key == "token":
			if err = json.Unmarshal(val, &token); err != nil {
				return "", session.User{}, errors.Wrap(err, "decoding token")
			}
		case key == "user":
			named = val
		case first == nil && len(val) > 0 && val[0] == '{':
			first = val
		}
	}

	raw := named
	if raw == nil {
		raw = first
	}
	if token == "" || raw == nil {
		return "", session.User{}, ErrLoginRejected
	}

	var usr session.User
	if err := json.Unmarshal(raw, &usr); err != nil {
		return "", session.User{}, errors.Wrap(err, "decoding user")
	}
	return token, usr, nil
}
