package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RoleSet is the capability set of a user. The flags are independent: a user
// can be an author and a reviewer at the same time.
type RoleSet uint8

const (
	RoleAuthor RoleSet = 1 << iota
	RoleReviewer
	RoleEditor
	RoleEditorInChief
)

var roleNames = []struct {
	role RoleSet
	name string
}{
	{RoleAuthor, "author"},
	{RoleReviewer, "reviewer"},
	{RoleEditor, "editor"},
	{RoleEditorInChief, "editorInChief"},
}

// ParseRole resolves a role name as used in the API ("editorInChief",
// "editor_in_chief" and "eic" are all accepted).
func ParseRole(name string) (RoleSet, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "_", "")
	key = strings.ReplaceAll(key, "-", "")
	switch key {
	case "author":
		return RoleAuthor, true
	case "reviewer":
		return RoleReviewer, true
	case "editor":
		return RoleEditor, true
	case "editorinchief", "eic":
		return RoleEditorInChief, true
	}
	return 0, false
}

func (s RoleSet) Has(r RoleSet) bool { return r != 0 && s&r == r }

func (s RoleSet) With(r RoleSet) RoleSet { return s | r }

func (s RoleSet) Without(r RoleSet) RoleSet { return s &^ r }

// Names lists the roles in the set in a stable order.
func (s RoleSet) Names() []string {
	out := make([]string, 0, len(roleNames))
	for _, rn := range roleNames {
		if s.Has(rn.role) {
			out = append(out, rn.name)
		}
	}
	return out
}

func (s RoleSet) String() string {
	return strings.Join(s.Names(), ",")
}

func (s RoleSet) MarshalJSON() ([]byte, error) {
	flags := make(map[string]bool, len(roleNames))
	for _, rn := range roleNames {
		flags[rn.name] = s.Has(rn.role)
	}
	return json.Marshal(flags)
}

func (s *RoleSet) UnmarshalJSON(data []byte) error {
	var flags map[string]bool
	if err := json.Unmarshal(data, &flags); err != nil {
		return err
	}
	var out RoleSet
	for name, on := range flags {
		role, ok := ParseRole(name)
		if !ok {
			return fmt.Errorf("unknown role %q", name)
		}
		if on {
			out = out.With(role)
		}
	}
	*s = out
	return nil
}

func (s RoleSet) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *RoleSet) Scan(value interface{}) error {
	switch v := value.(type) {
	case int64:
		*s = RoleSet(v)
	case int32:
		*s = RoleSet(v)
	case uint8:
		*s = RoleSet(v)
	case []byte:
		var n int64
		if _, err := fmt.Sscan(string(v), &n); err != nil {
			return err
		}
		*s = RoleSet(n)
	case nil:
		*s = 0
	default:
		return fmt.Errorf("cannot scan %T into RoleSet", value)
	}
	return nil
}

type User struct {
	UserID        int        `gorm:"primaryKey;column:user_id" json:"id"`
	Name          string     `gorm:"column:name;size:255" json:"name"`
	Email         string     `gorm:"column:email;size:255;uniqueIndex" json:"email"`
	Password      string     `gorm:"column:password" json:"-"`
	Affiliation   *string    `gorm:"column:affiliation;size:255" json:"affiliation,omitempty"`
	Country       *string    `gorm:"column:country;size:100" json:"country,omitempty"`
	Expertise     StringList `gorm:"column:expertise;type:text" json:"expertise"`
	Roles         RoleSet    `gorm:"column:roles" json:"roles"`
	OrcidID       *string    `gorm:"column:orcid_id;size:19" json:"orcidId,omitempty"`
	OrcidVerified bool       `gorm:"column:orcid_verified" json:"orcidVerified"`
	GoogleID      *string    `gorm:"column:google_id;size:64" json:"googleId,omitempty"`
	IsActive      bool       `gorm:"column:is_active" json:"isActive"`
	LastLoginAt   *time.Time `gorm:"column:last_login_at" json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt     time.Time  `gorm:"column:updated_at" json:"updatedAt"`

	Identities []UserIdentity `gorm:"foreignKey:UserID" json:"identities,omitempty"`
}

// Identity providers a user can sign in with.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
	ProviderOrcid    = "orcid"
)

// UserIdentity links a user to an external credential.
type UserIdentity struct {
	IdentityID int       `gorm:"primaryKey;column:identity_id" json:"id"`
	UserID     int       `gorm:"column:user_id;index" json:"userId"`
	Provider   string    `gorm:"column:provider;size:16;uniqueIndex:idx_identity_subject" json:"provider"`
	Subject    string    `gorm:"column:subject;size:255;uniqueIndex:idx_identity_subject" json:"subject"`
	LinkedAt   time.Time `gorm:"column:linked_at" json:"linkedAt"`
}

func (User) TableName() string {
	return "users"
}

func (UserIdentity) TableName() string {
	return "user_identities"
}

// HasRole reports whether the user holds every role in r.
func (u *User) HasRole(r RoleSet) bool {
	return u != nil && u.Roles.Has(r)
}

// DisplayName falls back to the email when no name was given.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Email
}
