package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sanctuary/sanctuary-api/internal/config"
	ierr "github.com/sanctuary/sanctuary-api/internal/errors"
	"github.com/sanctuary/sanctuary-api/internal/httpclient"
	"github.com/sanctuary/sanctuary-api/internal/logger"
	"github.com/sanctuary/sanctuary-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory(t *testing.T, handler http.HandlerFunc, pageSize int) *Directory {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.NewNopLogger()
	client := httpclient.NewDefaultClient(httpclient.ClientConfig{Timeout: 2 * time.Second}, log)
	return NewDirectory(
		config.SupabaseConfig{URL: srv.URL + "/", ServiceKey: "service-key"},
		config.DirectoryConfig{PageSize: pageSize, MaxPages: 5},
		client,
		log,
	)
}

func usersPage(start, count int) adminUserList {
	list := adminUserList{}
	for i := start; i < start+count; i++ {
		list.Users = append(list.Users, adminUser{
			ID:    fmt.Sprintf("user-%d", i),
			Email: fmt.Sprintf("user%d@example.com", i),
		})
	}
	return list
}

func TestDirectory_FindByEmail(t *testing.T) {
	var calls atomic.Int32
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		var list adminUserList
		switch page {
		case 1:
			list = usersPage(1, 2)
		case 2:
			list = usersPage(3, 1)
		}
		_ = json.NewEncoder(w).Encode(list)
	}, 2)

	t.Run("match on a later page is case insensitive", func(t *testing.T) {
		calls.Store(0)
		got, err := dir.FindByEmail(context.Background(), "USER3@Example.com")
		require.NoError(t, err)
		assert.Equal(t, "user-3", got.ID)
		assert.Equal(t, "user3@example.com", got.Email)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("stops at short page", func(t *testing.T) {
		calls.Store(0)
		_, err := dir.FindByEmail(context.Background(), "nobody@example.com")
		require.Error(t, err)
		assert.True(t, ierr.IsNotFound(err))
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("empty email", func(t *testing.T) {
		_, err := dir.FindByEmail(context.Background(), "  ")
		require.Error(t, err)
		assert.True(t, ierr.IsValidation(err))
	})
}

func TestDirectory_FindByEmail_UpstreamFailure(t *testing.T) {
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"msg":"forbidden"}`))
	}, 10)

	_, err := dir.FindByEmail(context.Background(), "user1@example.com")
	require.Error(t, err)
	assert.True(t, ierr.Is(err, ierr.ErrUpstreamUnavailable))
	assert.False(t, ierr.IsNotFound(err))

	httpErr, ok := httpclient.IsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
}

func TestDirectory_FindByEmail_MalformedResponse(t *testing.T) {
	dir := newTestDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}, 10)

	_, err := dir.FindByEmail(context.Background(), "user1@example.com")
	require.Error(t, err)
	assert.True(t, ierr.Is(err, ierr.ErrUpstreamUnavailable))
}

func TestDirectory_FindByEmail_MockClient(t *testing.T) {
	client := testutil.NewMockHTTPClient()
	client.RegisterResponse("https://project.supabase.co/auth/v1/admin/users?page=1&per_page=50", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"users":[{"id":"user-a","email":"Alice@Example.com"},{"id":"user-b","email":"bob@example.com"}]}`),
	})

	dir := NewDirectory(
		config.SupabaseConfig{URL: "https://project.supabase.co", ServiceKey: "service-key"},
		config.DirectoryConfig{PageSize: 50, MaxPages: 3},
		client,
		logger.NewNopLogger(),
	)

	user, err := dir.FindByEmail(context.Background(), "  alice@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "user-a", user.ID)

	// a short first page ends the scan
	_, err = dir.FindByEmail(context.Background(), "carol@example.com")
	assert.True(t, ierr.IsNotFound(err))

	requests := client.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "Bearer service-key", requests[0].Headers["Authorization"])
	assert.Equal(t, "service-key", requests[0].Headers["apikey"])
}

func TestDirectory_FindByEmail_EmptyEmail(t *testing.T) {
	client := testutil.NewMockHTTPClient()
	dir := NewDirectory(
		config.SupabaseConfig{URL: "https://project.supabase.co", ServiceKey: "service-key"},
		config.DirectoryConfig{},
		client,
		logger.NewNopLogger(),
	)

	_, err := dir.FindByEmail(context.Background(), "   ")
	assert.True(t, ierr.IsValidation(err))
	assert.Empty(t, client.Requests())
}

func TestDirectory_FindByEmail_ScanCapIsNotNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		// every page is full, the wanted user lives on page 6
		_ = json.NewEncoder(w).Encode(usersPage((page-1)*2+1, 2))
	}))
	t.Cleanup(srv.Close)

	log := logger.NewNopLogger()
	dir := NewDirectory(
		config.SupabaseConfig{URL: srv.URL, ServiceKey: "service-key"},
		config.DirectoryConfig{PageSize: 2, MaxPages: 5},
		httpclient.NewDefaultClient(httpclient.ClientConfig{Timeout: 2 * time.Second}, log),
		log,
	)

	_, err := dir.FindByEmail(context.Background(), "user11@example.com")
	require.Error(t, err)
	assert.False(t, ierr.IsNotFound(err))
	assert.True(t, ierr.Is(err, ierr.ErrUpstreamUnavailable))
	assert.Equal(t, int32(5), calls.Load())

	got, err := dir.FindByEmail(context.Background(), "user9@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user-9", got.ID)
}
