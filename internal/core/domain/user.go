package domain

import "strings"

const (
	RoleLabelManager = "Label Manager"
	RoleAdmin        = "Admin"
	RoleArtist       = "Artist"

	DefaultAvatar = "/placeholder-user.jpg"
)

// Relations in the primary database that hold credentials.
const (
	TableLabelManager = "label_manager"
	TableArtist       = "artist"
)

// Identity is the normalized user record returned on successful authentication.
// Role is only used for UI gating downstream.
type Identity struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email,omitempty"`
	FullName    string `json:"fullName"`
	Role        string `json:"role"`
	Avatar      string `json:"avatar,omitempty"`
	SourceTable string `json:"sourceTable,omitempty"`
}

// IsManager reports whether the identity may use label-management screens.
func (i *Identity) IsManager() bool {
	return i != nil && IsManagerRole(i.Role)
}

// IsManagerRole reports whether role grants label-management access.
func IsManagerRole(role string) bool {
	return role == RoleLabelManager || role == RoleAdmin
}

// NewUser is the registration payload. Only Username and Email are required.
type NewUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName,omitempty"`
	Role     string `json:"role,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// Normalize trims the payload in place.
func (u *NewUser) Normalize() {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.TrimSpace(u.Email)
	u.FullName = strings.TrimSpace(u.FullName)
	u.Role = strings.TrimSpace(u.Role)
	u.Avatar = strings.TrimSpace(u.Avatar)
}

// StoredCredential is a row read from one of the credential relations.
// Password is whatever the relation stores: plaintext or a hash.
type StoredCredential struct {
	Identity
	Password string
}

// IsCredentialTable reports whether table is one of the credential relations.
// Store implementations interpolate table names, so they must check this first.
func IsCredentialTable(table string) bool {
	return table == TableLabelManager || table == TableArtist
}
