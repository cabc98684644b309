package service

import (
	"crypto/subtle"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ankunstudio/backoffice/internal/core/domain"
)

const demoSourceTable = "demo"

// DemoAccount is a fixed username/password pair served without any backend.
// Bypass accounts are checked before the primary database is consulted.
type DemoAccount struct {
	ID       string `yaml:"id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
	FullName string `yaml:"full_name"`
	Role     string `yaml:"role"`
	Avatar   string `yaml:"avatar"`
	Bypass   bool   `yaml:"bypass"`
}

// DemoAccountRegistry is the in-memory table of demo accounts.
type DemoAccountRegistry struct {
	accounts []DemoAccount
}

// DefaultDemoAccounts returns the built-in demo table.
func DefaultDemoAccounts() *DemoAccountRegistry {
	return &DemoAccountRegistry{accounts: []DemoAccount{
		{
			ID:       "ankunstudio",
			Username: "ankunstudio",
			Password: "admin",
			Email:    "admin@ankunstudio.com",
			FullName: "Ankun Studio",
			Role:     domain.RoleLabelManager,
			Bypass:   true,
		},
		{
			ID:       "demo-admin",
			Username: "admin",
			Password: "admin",
			Email:    "admin@demo.local",
			FullName: "Demo Label Manager",
			Role:     domain.RoleLabelManager,
		},
		{
			ID:       "demo-artist",
			Username: "artist",
			Password: "123456",
			Email:    "artist@demo.local",
			FullName: "Demo Artist",
			Role:     domain.RoleArtist,
		},
	}}
}

type demoFile struct {
	Accounts []DemoAccount `yaml:"accounts"`
}

// LoadDemoAccounts reads a YAML demo table from path.
func LoadDemoAccounts(path string) (*DemoAccountRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read demo accounts: %w", err)
	}
	return ParseDemoAccounts(data)
}

// ParseDemoAccounts decodes a YAML document of the form
//
//	accounts:
//	  - username: admin
//	    password: admin
//	    role: Label Manager
func ParseDemoAccounts(data []byte) (*DemoAccountRegistry, error) {
	var f demoFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse demo accounts: %w", err)
	}
	for i, a := range f.Accounts {
		if a.Username == "" || a.Password == "" {
			return nil, fmt.Errorf("%w: demo account %d needs username and password", domain.ErrValidation, i)
		}
	}
	return &DemoAccountRegistry{accounts: f.Accounts}, nil
}

// Len returns the number of accounts.
func (r *DemoAccountRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.accounts)
}

// Bypass matches only the accounts flagged to short-circuit the backends.
func (r *DemoAccountRegistry) Bypass(username, password string) (*domain.Identity, bool) {
	return r.match(username, password, true)
}

// Match matches any account by exact username and password.
func (r *DemoAccountRegistry) Match(username, password string) (*domain.Identity, bool) {
	return r.match(username, password, false)
}

func (r *DemoAccountRegistry) match(username, password string, bypassOnly bool) (*domain.Identity, bool) {
	if r == nil {
		return nil, false
	}
	for _, a := range r.accounts {
		if bypassOnly && !a.Bypass {
			continue
		}
		if a.Username != username {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(a.Password), []byte(password)) != 1 {
			continue
		}
		return a.identity(), true
	}
	return nil, false
}

func (a DemoAccount) identity() *domain.Identity {
	id := &domain.Identity{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		FullName:    a.FullName,
		Role:        a.Role,
		Avatar:      a.Avatar,
		SourceTable: demoSourceTable,
	}
	if id.ID == "" {
		id.ID = "demo-" + a.Username
	}
	if id.FullName == "" {
		id.FullName = a.Username
	}
	if id.Role == "" {
		id.Role = domain.RoleArtist
	}
	if id.Avatar == "" {
		id.Avatar = domain.DefaultAvatar
	}
	return id
}
