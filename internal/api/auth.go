package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Veraticus/till/internal/model"
	"github.com/shopspring/decimal"
)

// LoginResult carries the tokens issued on a successful login.
type LoginResult struct {
	User         model.User
	AccessToken  string
	RefreshToken string
}

type userDTO struct {
	ID    flexibleID `json:"id"`
	Email string     `json:"email"`
}

func (u userDTO) toModel() model.User {
	return model.User{ID: string(u.ID), Email: u.Email}
}

type profileDTO struct {
	Balance   decimal.NullDecimal `json:"balance"`
	ID        flexibleID          `json:"id"`
	Email     string              `json:"email"`
	FullName  *string             `json:"full_name"`
	AvatarURL *string             `json:"avatar_url"`
	UpdatedAt string              `json:"updated_at"`
}

func (p profileDTO) toModel() *model.Profile {
	profile := &model.Profile{
		ID:    string(p.ID),
		Email: p.Email,
	}
	if p.FullName != nil {
		profile.FullName = *p.FullName
	}
	if p.AvatarURL != nil {
		profile.AvatarURL = *p.AvatarURL
	}
	if p.Balance.Valid {
		profile.Balance = p.Balance.Decimal
	}
	if p.UpdatedAt != "" {
		if t, err := parseTimestamp(p.UpdatedAt); err == nil {
			profile.UpdatedAt = t
		}
	}
	return profile
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out struct {
		User    userDTO `json:"user"`
		Session struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"session"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "auth/login",
		op:     "login",
		body:   map[string]string{"email": email, "password": password},
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	if out.Session.AccessToken == "" {
		return nil, &TransportError{Op: "login", Err: errors.New("response has no access token")}
	}

	return &LoginResult{
		User:         out.User.toModel(),
		AccessToken:  out.Session.AccessToken,
		RefreshToken: out.Session.RefreshToken,
	}, nil
}

// Register creates an account. The caller logs in separately.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (*model.User, error) {
	var out struct {
		User userDTO `json:"user"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "auth/register",
		op:     "register",
		body: map[string]string{
			"email":     email,
			"password":  password,
			"full_name": fullName,
		},
		out: &out,
	})
	if err != nil {
		return nil, err
	}

	user := out.User.toModel()
	return &user, nil
}

// Logout ends the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "auth/logout", op: "logout", body: struct{}{}})
}

// Me returns the user the bearer token belongs to, with the profile if the
// server has one.
func (c *Client) Me(ctx context.Context) (*model.User, *model.Profile, error) {
	var out struct {
		User struct {
			Profile *profileDTO `json:"profile"`
			userDTO
		} `json:"user"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "auth/me", op: "current user", out: &out}); err != nil {
		return nil, nil, err
	}

	user := out.User.userDTO.toModel()
	var profile *model.Profile
	if out.User.Profile != nil {
		profile = out.User.Profile.toModel()
	}
	return &user, profile, nil
}

// ResetPassword asks the server to email a reset link.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "auth/reset-password",
		op:     "reset password",
		body:   map[string]string{"email": email},
	})
}

// GetProfile fetches the account holder's profile.
func (c *Client) GetProfile(ctx context.Context) (*model.Profile, error) {
	var out struct {
		Profile *profileDTO `json:"profile"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "profile", op: "get profile", out: &out}); err != nil {
		return nil, err
	}
	if out.Profile == nil {
		return nil, &TransportError{Op: "get profile", Err: errors.New("response has no profile")}
	}
	return out.Profile.toModel(), nil
}

// UpdateProfile changes the display name and avatar. A nil avatarURL clears
// the avatar.
func (c *Client) UpdateProfile(ctx context.Context, fullName string, avatarURL *string) (*model.Profile, error) {
	var out struct {
		Profile *profileDTO `json:"profile"`
	}
	body := struct {
		AvatarURL *string `json:"avatar_url"`
		FullName  string  `json:"full_name"`
	}{FullName: fullName, AvatarURL: avatarURL}

	if err := c.do(ctx, request{method: http.MethodPut, path: "profile", op: "update profile", body: body, out: &out}); err != nil {
		return nil, err
	}

	if out.Profile != nil {
		return out.Profile.toModel(), nil
	}

	profile := &model.Profile{FullName: fullName, UpdatedAt: time.Now()}
	if avatarURL != nil {
		profile.AvatarURL = *avatarURL
	}
	return profile, nil
}
