package echoweb

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/lms-admin/core"
	"github.com/trezcool/lms-admin/core/session"
)

const (
	// ScopeCookieName holds the signed identifier of the browser's storage scope.
	ScopeCookieName = "lms_scope"

	contextScopeKey = "scope"
	noticesKey      = "notices"
	defaultScopeAge = 30 * 24 * time.Hour
)

var errUnexpectedSigning = errors.New("unexpected scope signing method")

// scope is the per-browser storage area and the session restored from it for the current request.
type scope struct {
	ID      string
	storage session.Storage
	store   *session.Store
}

func (s *server) scopeMaxAge() time.Duration {
	if age := s.deps.Conf.Server.ScopeMaxAge; age > 0 {
		return age
	}
	return defaultScopeAge
}

func (s *server) signScope(id string) (string, error) {
	now := time.Now()
	claims := jwt.StandardClaims{
		Id:        id,
		Issuer:    s.deps.Conf.AppName,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.scopeMaxAge()).Unix(),
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.deps.Conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing scope")
	}
	return ss, nil
}

// parseScope returns the scope ID carried by a valid cookie value.
func (s *server) parseScope(raw string) (string, bool) {
	claims := new(jwt.StandardClaims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigning
		}
		return []byte(s.deps.Conf.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return "", false
	}
	if _, err = uuid.Parse(claims.Id); err != nil {
		return "", false
	}
	return claims.Id, true
}

func (s *server) setScopeCookie(ctx echo.Context, id string) error {
	value, err := s.signScope(id)
	if err != nil {
		return err
	}
	ctx.SetCookie(&http.Cookie{
		Name:     ScopeCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.scopeMaxAge().Seconds()),
		HttpOnly: true,
		Secure:   s.deps.Conf.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// scopeMiddleware resolves the request's storage scope and restores its session before any guard runs.
func (s *server) scopeMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var id string
		if cookie, err := ctx.Cookie(ScopeCookieName); err == nil {
			id, _ = s.parseScope(cookie.Value)
		}
		if id == "" {
			id = uuid.NewString()
			if err := s.setScopeCookie(ctx, id); err != nil {
				return err
			}
		}

		sc := &scope{ID: id, storage: session.Prefixed(s.deps.Storage, s.deps.Conf.Storage.KeyPrefix+id+":")}
		sc.store = session.NewStore(sc.storage)

		res, err := sc.store.Restore(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "restoring session")
		}
		if res == session.ClearedCorrupt || res == session.ClearedIneligible {
			s.deps.Logger.Info(res.String(), map[string]interface{}{"scope": id})
		}

		ctx.Set(contextScopeKey, sc)
		return next(ctx)
	}
}

// getContextScope panics when the scope middleware did not run: reading a session outside of it is a wiring defect.
func getContextScope(ctx echo.Context) *scope {
	sc, ok := ctx.Get(contextScopeKey).(*scope)
	if !ok {
		panic(session.ErrNotRestored)
	}
	return sc
}

func getContextStore(ctx echo.Context) *session.Store {
	return getContextScope(ctx).store
}

// notices

func (sc *scope) loadNotices(ctx context.Context) ([]core.Notice, error) {
	raw, found, err := sc.storage.Get(ctx, noticesKey)
	if err != nil || !found {
		return nil, err
	}
	var notices []core.Notice
	if json.Unmarshal([]byte(raw), &notices) != nil {
		return nil, nil
	}
	return notices, nil
}

// pushNotice queues a notice for the next page view of this scope.
func (sc *scope) pushNotice(ctx context.Context, n *core.Notice) error {
	if n == nil {
		return nil
	}
	notices, err := sc.loadNotices(ctx)
	if err != nil {
		return errors.Wrap(err, "loading notices")
	}
	b, err := json.Marshal(append(notices, *n))
	if err != nil {
		return errors.Wrap(err, "encoding notices")
	}
	return sc.storage.Set(ctx, noticesKey, string(b))
}

// drainNotices returns the queued notices and forgets them.
func (sc *scope) drainNotices(ctx context.Context) ([]core.Notice, error) {
	notices, err := sc.loadNotices(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading notices")
	}
	if err = sc.storage.Remove(ctx, noticesKey); err != nil {
		return nil, errors.Wrap(err, "clearing notices")
	}
	if notices == nil {
		notices = []core.Notice{}
	}
	return notices, nil
}
