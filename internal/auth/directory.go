package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/samber/lo"
	"github.com/sanctuary/sanctuary-api/internal/config"
	"github.com/sanctuary/sanctuary-api/internal/domain/identity"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/httpclient"
	"github.com/sanctuary/sanctuary-api/internal/logger"
)

// Directory looks users up through the identity provider's admin API
type Directory struct {
	baseURL    string
	serviceKey string
	pageSize   int
	maxPages   int
	client     httpclient.Client
	logger     *logger.Logger
}

type adminUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type adminUserList struct {
	Users []adminUser `json:"users"`
}

func NewDirectory(supabaseCfg config.SupabaseConfig, cfg config.DirectoryConfig, client httpclient.Client, log *logger.Logger) *Directory {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 50
	}

	return &Directory{
		baseURL:    strings.TrimRight(supabaseCfg.URL, "/"),
		serviceKey: supabaseCfg.ServiceKey,
		pageSize:   pageSize,
		maxPages:   maxPages,
		client:     client,
		logger:     log,
	}
}

// FindByEmail pages through the user directory until a user with a matching
// email (case insensitive) is found or a short page marks the end. Running out
// of pages before a short page is an upstream failure, not a missing user.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ierr.NewError("email is required").
			WithHint("Email is required").
			Mark(ierr.ErrValidation)
	}

	for page := 1; page <= d.maxPages; page++ {
		users, err := d.listUsers(ctx, page)
		if err != nil {
			return nil, err
		}

		user, found := lo.Find(users, func(u adminUser) bool {
			return strings.EqualFold(u.Email, email)
		})
		if found {
			return &identity.Identity{ID: user.ID, Email: user.Email}, nil
		}

		// a short page is the end of the directory
		if len(users) < d.pageSize {
			return nil, ierr.NewError("user not found").
				WithHint("No user with this email").
				WithReportableDetails(map[string]any{"email": email}).
				Mark(ierr.ErrNotFound)
		}
	}

	// every page was full, the user may sit past the scan cap
	d.logger.Errorw("user directory scan truncated, raise auth.directory.max_pages",
		"max_pages", d.maxPages,
		"page_size", d.pageSize,
	)
	return nil, ierr.NewError("user directory scan truncated").
		WithHint("Identity provider directory is larger than the scan limit").
		WithReportableDetails(map[string]any{
			"max_pages": d.maxPages,
			"page_size": d.pageSize,
		}).
		Mark(ierr.ErrUpstreamUnavailable)
}

func (d *Directory) listUsers(ctx context.Context, page int) ([]adminUser, error) {
	query := url.Values{}
	query.Set("page", fmt.Sprint(page))
	query.Set("per_page", fmt.Sprint(d.pageSize))

	resp, err := d.client.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    d.baseURL + "/auth/v1/admin/users?" + query.Encode(),
		Headers: map[string]string{
			"apikey":        d.serviceKey,
			"Authorization": "Bearer " + d.serviceKey,
			"Accept":        "application/json",
		},
	})
	if err != nil {
		d.logger.Errorw("failed to list users from identity provider", "page", page, "error", err)
		return nil, ierr.WithError(err).
			WithHint("Identity provider is unavailable").
			Mark(ierr.ErrUpstreamUnavailable)
	}

	var list adminUserList
	if err := json.Unmarshal(resp.Body, &list); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Identity provider returned an unexpected response").
			Mark(ierr.ErrUpstreamUnavailable)
	}

	return list.Users, nil
}
