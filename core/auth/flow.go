package auth

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/lms-admin/core"
	"github.com/trezcool/lms-admin/core/access"
	"github.com/trezcool/lms-admin/core/session"
)

// Notice texts
const (
	LoginSucceededMessage  = "Login successful!"
	LoginFailedMessage     = "Login failed!"
	InvalidFormMessage     = "Please check your login information!"
	StudentRejectedMessage = "Students are not allowed to access the admin site!"
	LoggedOutMessage       = "Logged out successfully!"
)

type (
	Credentials struct {
		Email    string `json:"email" form:"email" validate:"required,email"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	// Result is what the authentication endpoint hands back on success.
	Result struct {
		Token string
		User  session.User
	}

	// Authenticator exchanges credentials for a token and a user record.
	Authenticator interface {
		Authenticate(ctx context.Context, creds Credentials) (Result, error)
	}

	// messenger is implemented by errors carrying a message fit for the user.
	messenger interface {
		UserMessage() string
	}

	// Outcome is the result of a login submission.
	Outcome struct {
		LoggedIn bool
		Location string // where to go next; "" means stay on the login page
		Notice   *core.Notice
		Fields   map[string]string // invalid form fields
	}

	Flow struct {
		auth       Authenticator
		validate   *validator.Validate
		translator ut.Translator
		logger     core.Logger
	}
)

var ErrStudentRejected = errors.New("student accounts may not log in")

func NewFlow(auth Authenticator, validate *validator.Validate, translator ut.Translator, logger core.Logger) *Flow {
	return &Flow{auth: auth, validate: validate, translator: translator, logger: logger}
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	return validate.Struct(c)
}

// Submit runs a login attempt and establishes a session in `store` on success.
// `from` is the location the user was on their way to; unsafe or empty values fall back to the dashboard.
// A student never gets a session, whatever the backend answers.
func (f *Flow) Submit(ctx context.Context, store *session.Store, creds Credentials, from string) (Outcome, error) {
	if err := creds.Validate(f.validate); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			return Outcome{Notice: core.ErrorNotice(InvalidFormMessage), Fields: core.FieldErrors(vErrs, f.translator)}, nil
		}
		return Outcome{}, errors.Wrap(err, "validating credentials")
	}

	res, err := f.auth.Authenticate(ctx, creds)
	if err != nil {
		msg := LoginFailedMessage
		var m messenger
		if errors.As(err, &m) && m.UserMessage() != "" {
			msg = m.UserMessage()
		}
		f.logger.Warn("login failed", errors.Wrap(err, "authenticating "+creds.Email))
		return Outcome{Notice: core.ErrorNotice(msg)}, nil
	}

	if !session.Eligible(res.User) {
		f.logger.Info("login refused", ErrStudentRejected, map[string]interface{}{"email": creds.Email})
		return Outcome{Notice: core.ErrorNotice(StudentRejectedMessage)}, nil
	}

	if err = store.Login(ctx, res.User, res.Token); err != nil {
		return Outcome{}, errors.Wrap(err, "storing session")
	}

	return Outcome{
		LoggedIn: true,
		Location: LandingPath(res.User.Role, from),
		Notice:   core.SuccessNotice(LoginSucceededMessage),
	}, nil
}

// LandingPath is where a freshly logged in user goes.
func LandingPath(role session.Role, from string) string {
	if role.IsTeacher() {
		return access.CategoriesPath
	}
	if from != "" && core.SafeLocalPath(from) {
		return from
	}
	return access.AdminPath
}
