package user_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/user"
	"github.com/trezcool/masomo-admin/core/violation"
	inmemdb "github.com/trezcool/masomo-admin/storage/database/inmem"
)

func setup(t *testing.T) (*user.Service, *validator.Validate) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	validate, translator := violation.NewValidator()
	user.InitValidators(validate, translator)
	return user.NewService(inmemdb.NewUserRepository(db)), validate
}

func TestNewUser_Validate(t *testing.T) {
	svc, validate := setup(t)

	tests := []struct {
		name    string
		nu      user.NewUser
		wantTag string
	}{
		{name: "valid", nu: user.NewUser{Name: "Teacher One", Username: "teacher1", Password: "Sup3r!Secret", Roles: []string{"teacher"}}},
		{name: "email only", nu: user.NewUser{Name: "Teacher One", Email: "t1@masomo.test", Password: "Sup3r!Secret"}},
		{name: "no username or email", nu: user.NewUser{Name: "Teacher One", Password: "Sup3r!Secret"}, wantTag: "username_or_email"},
		{name: "unknown role", nu: user.NewUser{Name: "Teacher One", Username: "teacher1", Password: "Sup3r!Secret", Roles: []string{"janitor"}}, wantTag: "staffroles"},
		{name: "short password", nu: user.NewUser{Name: "Teacher One", Username: "teacher1", Password: "S3!c"}, wantTag: "pwdminlen"},
		{name: "password with space", nu: user.NewUser{Name: "Teacher One", Username: "teacher1", Password: "Sup3r! Secret"}, wantTag: "pwdnospace"},
		{name: "numeric password", nu: user.NewUser{Name: "Teacher One", Username: "teacher1", Password: "1234567890"}, wantTag: "pwdnotallnum"},
		{name: "simple password", nu: user.NewUser{Name: "Teacher One", Username: "teacher1", Password: "supersecret"}, wantTag: "pwdcplx"},
		{name: "password like the username", nu: user.NewUser{Name: "Teacher One", Username: "teacherone", Password: "Teacher0ne!"}, wantTag: "pwdtoosim"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(validate, svc)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			var tags []string
			for _, fe := range verrs {
				tags = append(tags, fe.Tag())
			}
			assert.Contains(t, tags, tt.wantTag)
		})
	}

	t.Run("taken username or email", func(t *testing.T) {
		for _, nu := range []user.NewUser{
			{Name: "Someone", Username: "Admin", Password: "Sup3r!Secret"},
			{Name: "Someone", Email: "GRACE.MBUYI@masomo.test", Password: "Sup3r!Secret"},
		} {
			err := nu.Validate(validate, svc)
			_, ok := errors.Cause(err).(*core.ValidationError)
			assert.True(t, ok, "got %v", err)
		}
	})
}

func TestService_Authenticate(t *testing.T) {
	svc, _ := setup(t)

	usr, err := svc.Authenticate(" ADMIN ", "Adm1n!Masomo")
	require.NoError(t, err)
	assert.Equal(t, "u-admin", usr.ID)
	assert.True(t, usr.IsAdmin())
	assert.False(t, usr.LastLogin.IsZero())

	stored, err := svc.GetByID("u-admin")
	require.NoError(t, err)
	assert.Equal(t, usr.LastLogin.Unix(), stored.LastLogin.Unix())

	_, err = svc.Authenticate("admin", "nope")
	assert.Equal(t, user.ErrAuthenticationFailed, err)
	_, err = svc.Authenticate("nobody", "nope")
	assert.Equal(t, user.ErrAuthenticationFailed, err)

	created, err := svc.Create(user.NewUser{Name: "Teacher One", Username: "teacher1", Email: "t1@masomo.test", Password: "Sup3r!Secret", Roles: []string{user.RoleTeacher}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)
	assert.False(t, created.IsAdmin())

	usr, err = svc.Authenticate("t1@masomo.test", "Sup3r!Secret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, usr.ID)

	all, err := svc.QueryAll()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRolePriority(t *testing.T) {
	assert.Greater(t, user.RolePriority(user.RoleAdmin), user.RolePriority(user.RolePrincipal))
	assert.Greater(t, user.RolePriority(user.RoleCounselor), user.RolePriority(user.RoleTeacher))
	assert.Equal(t, 0, user.RolePriority("janitor"))
	assert.Equal(t, user.RolePriority(user.RoleCounselor), user.MaxRolePriority([]string{user.RoleTeacher, user.RoleCounselor}))
	assert.Equal(t, 0, user.MaxRolePriority(nil))
}
