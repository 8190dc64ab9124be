package schoolapi

import (
	"context"

	"github.com/sendgrid/rest"

	"github.com/trezcool/masomo-admin/core/user"
)

type (
	LoginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	LoginResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}
)

// Login authenticates against the API and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	var res LoginResponse
	err := c.do(ctx, rest.Post, "/v1/auth/login", nil, LoginRequest{Username: username, Password: password}, &res, "authentication failed")
	if err != nil {
		return LoginResponse{}, err
	}
	c.SetToken(res.Token)
	return res, nil
}

// CreateStaff registers a staff account. Only administrators may do so.
func (c *Client) CreateStaff(ctx context.Context, nu user.NewUser) (user.User, error) {
	var usr user.User
	err := c.do(ctx, rest.Post, "/v1/staff", nil, nu, &usr, "could not register the staff member")
	return usr, err
}
