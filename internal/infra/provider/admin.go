package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Rethick-Jeganathan/Procura/internal/core/domain"
	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
)

// ErrAdminKeyMissing indicates the service-role key was not configured.
var ErrAdminKeyMissing = fmt.Errorf("provider: service role key not configured")

// AdminUpdatePassword sets a user's password through the elevated admin API.
// Requires the service-role key; used by the operator CLI only.
func (c *Client) AdminUpdatePassword(ctx context.Context, userID, newPassword string) error {
	if c.serviceKey == "" {
		return ErrAdminKeyMissing
	}

	status, err := c.request(ctx, http.MethodPut, "/admin/users/"+userID, c.serviceKey, c.serviceKey, map[string]string{
		"password": newPassword,
	}, nil)
	if err != nil {
		return err
	}

	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("provider: user %s not found", userID)
	default:
		return fmt.Errorf("%w: admin password update returned status %d", ErrUnavailable, status)
	}
}

type adminListResponse struct {
	Users []identityResponse `json:"users"`
}

// AdminListIdentities pages through the identity store with elevated
// privileges. Used by the backfill sweep when reconciling from the provider
// side rather than the replicated table.
func (c *Client) AdminListIdentities(ctx context.Context, page, perPage int) ([]domain.Identity, error) {
	if c.serviceKey == "" {
		return nil, ErrAdminKeyMissing
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 50
	}

	path := fmt.Sprintf("/admin/users?page=%d&per_page=%d", page, perPage)

	var out adminListResponse
	status, err := c.request(ctx, http.MethodGet, path, c.serviceKey, c.serviceKey, nil, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: admin list returned status %d", ErrUnavailable, status)
	}

	identities := make([]domain.Identity, 0, len(out.Users))
	for _, user := range out.Users {
		identities = append(identities, user.toDomain())
	}
	return identities, nil
}

var _ port.IdentityAdmin = (*Client)(nil)
