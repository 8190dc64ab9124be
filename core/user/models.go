package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/masomo-admin/core"
)

// Roles
const (
	RoleAdmin      = "admin"
	RolePrincipal  = "principal"
	RoleCounselor  = "counselor"
	RoleSupervisor = "supervisor"
	RoleTeacher    = "teacher"
)

var (
	AllRoles = []string{RoleAdmin, RolePrincipal, RoleCounselor, RoleSupervisor, RoleTeacher}

	rolePriorities = map[string]int{
		RoleAdmin:      30,
		RolePrincipal:  29,
		RoleCounselor:  20,
		RoleSupervisor: 20,
		RoleTeacher:    10,
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

// User is a staff member allowed to manage violations.
type User struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Username     string    `json:"username" yaml:"username"`
	Email        string    `json:"email" yaml:"email"`
	IsActive     bool      `json:"is_active" yaml:"is_active"`
	Roles        []string  `json:"roles" yaml:"roles"`
	PasswordHash []byte    `json:"-" yaml:"-"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"` // UTC
	LastLogin    time.Time `json:"last_login" yaml:"-"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) HasAnyRole(roles ...string) bool {
	for _, want := range roles {
		for _, role := range u.Roles {
			if role == want {
				return true
			}
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasAnyRole(RoleAdmin, RolePrincipal)
}

// Person identifies u in log reports.
func (u *User) Person() core.Person {
	return core.Person{ID: u.ID, Username: u.Username, Email: u.Email}
}

// NewUser contains information needed to register a staff member.
type NewUser struct {
	Name     string   `json:"name" validate:"required"`
	Username string   `json:"username" validate:"omitempty,min=4"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Password string   `json:"password" validate:"required"`
	Roles    []string `json:"roles" validate:"omitempty,staffroles"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}
