package model

import (
	"encoding/json"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"

	DefaultPhoto = "default.jpg"

	passwordCost = 12
)

var (
	roles = []Role{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}

	emailPattern = regexp.MustCompile(`^[\w.-]+@([\w-]+\.)+[\w-]{2,4}$`)
)

type (
	User struct {
		Base              `bson:",inline"`
		Name              string     `bson:"name" json:"name"`
		Email             string     `bson:"email" json:"email"`
		Photo             string     `bson:"photo" json:"photo"`
		Role              Role       `bson:"role" json:"role"`
		Password          string     `bson:"password,omitempty" json:"password,omitempty"`
		PasswordConfirm   string     `bson:"-" json:"passwordConfirm,omitempty"`
		PasswordChangedAt *time.Time `bson:"passwordChangedAt,omitempty" json:"passwordChangedAt,omitempty"`
		IsActive          bool       `bson:"isActive" json:"-"`

		isNew bool
	}

	// UserProfile is the public projection of a user embedded in other documents.
	UserProfile struct {
		ID    ID     `bson:"_id" json:"id"`
		Name  string `bson:"name" json:"name"`
		Email string `bson:"email,omitempty" json:"email,omitempty"`
		Photo string `bson:"photo,omitempty" json:"photo,omitempty"`
		Role  Role   `bson:"role,omitempty" json:"role,omitempty"`
	}
)

var UserSchema = NewSchema(map[string]FieldKind{
	"_id":       KindID,
	"name":      KindString,
	"email":     KindString,
	"photo":     KindString,
	"role":      KindString,
	"createdAt": KindTime,
})

func (u *User) Prepare(now time.Time) error {
	if u.ID.IsZero() {
		u.isNew = true
		u.IsActive = true
	}

	u.initialize(now)

	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	if u.Photo == "" {
		u.Photo = DefaultPhoto
	}

	if u.Role == "" {
		u.Role = RoleUser
	}

	return nil
}

func (u *User) Validate() error {
	errs := NewValidationErrors()

	if length := utf8.RuneCountInString(u.Name); length < 3 || length > 100 {
		errs.Add("name", "A user name must have between 3 and 100 characters", "length")
	}

	switch {
	case u.Email == "":
		errs.Add("email", "Please provide your email", "required")
	case !emailPattern.MatchString(u.Email):
		errs.Add("email", "Please provide a valid email", "format")
	}

	if !slices.Contains(roles, u.Role) {
		errs.Add("role", "Role is either: user, guide, lead-guide, admin", "enum")
	}

	switch {
	case u.Password == "" && u.isNew:
		errs.Add("password", "Please provide a password", "required")
	case u.Password != "" && !isPasswordHash(u.Password):
		if length := utf8.RuneCountInString(u.Password); length < 10 || length > 80 {
			errs.Add("password", "A password must have between 10 and 80 characters", "length")
		}

		if u.PasswordConfirm != u.Password {
			errs.Add("passwordConfirm", "Passwords are not the same!", "mismatch")
		}
	}

	return errs.OrNil()
}

// BeforeSave hashes a freshly set password and records when it changed.
func (u *User) BeforeSave(now time.Time) error {
	u.PasswordConfirm = ""

	if u.Password == "" || isPasswordHash(u.Password) {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), passwordCost)
	if err != nil {
		return err
	}

	u.Password = string(hash)

	if !u.isNew {
		// Backdated so a token issued in the same second stays valid.
		changedAt := now.Add(-time.Second).UTC()
		u.PasswordChangedAt = &changedAt
	}

	return nil
}

func (u *User) CorrectPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate)) == nil
}

// ChangedPasswordAfter reports whether the password changed after a token issued at issuedAt.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}

	return u.PasswordChangedAt.Truncate(time.Second).After(issuedAt)
}

func (u *User) HasRole(allowed ...Role) bool {
	return slices.Contains(allowed, u.Role)
}

func (u *User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Name: u.Name, Email: u.Email, Photo: u.Photo, Role: u.Role}
}

// Sanitized hides credentials before the user leaves the service.
func (u *User) Sanitized() *User {
	clone := *u
	clone.Password = ""
	clone.PasswordConfirm = ""

	return &clone
}

func (u User) MarshalJSON() ([]byte, error) {
	type user User

	clean := user(*u.Sanitized())

	return json.Marshal(clean)
}

func isPasswordHash(value string) bool {
	_, err := bcrypt.Cost([]byte(value))

	return err == nil
}
