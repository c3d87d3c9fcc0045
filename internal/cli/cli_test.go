package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eislager/eislager-pro/internal/testutil"
	"github.com/eislager/eislager-pro/sdk"
)

// setup points every service at a fake backend and the token store at a
// temporary file.
func setup(t *testing.T) (map[string]*testutil.Backend, string) {
	t.Helper()

	backends := make(map[string]*testutil.Backend, len(sdk.AllServices))
	for _, name := range sdk.AllServices {
		b := testutil.NewBackend()
		t.Cleanup(b.Close)
		backends[name] = b
		t.Setenv("EISLAGER_SERVICES_"+strings.ToUpper(name), b.URL)
	}

	tokenFile := filepath.Join(t.TempDir(), "session.json")
	t.Setenv("EISLAGER_TOKEN_STORE_FILE", tokenFile)
	t.Setenv("EISLAGER_CLIENT_RETRY_INTERVAL", "1ms")
	return backends, tokenFile
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootCmd(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantErr    bool
		wantOutput string
	}{
		{name: "no arguments shows help", args: []string{}, wantOutput: "Command line client for the EisLager services"},
		{name: "help flag", args: []string{"--help"}, wantOutput: "snapshot"},
		{name: "invalid command", args: []string{"invalid-command"}, wantErr: true},
		{name: "bad output", args: []string{"version", "--output", "yaml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.wantOutput)
		})
	}
}

func TestRequest(t *testing.T) {
	backends, _ := setup(t)
	backends[sdk.ServiceSales].Respond("POST /api/v1/sales/orders", http.StatusCreated,
		testutil.OK(map[string]interface{}{"id": "o-7"}))

	out, _, err := execute(t, "request", "post", "/api/v1/sales/orders?store=s1",
		"--data", `{"items":[{"flavorId":"f1","quantity":1}]}`,
		"--header", "X-Till=3", "-o", "json")
	require.NoError(t, err)

	var env sdk.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"id":"o-7"}`, string(env.Data))

	got := backends[sdk.ServiceSales].LastRequest(t)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "store=s1", got.RawQuery)
	assert.Equal(t, "3", got.Headers.Get("X-Till"))
	assert.JSONEq(t, `{"items":[{"flavorId":"f1","quantity":1}]}`, string(got.Body))
}

func TestRequest_DataFromFile(t *testing.T) {
	backends, _ := setup(t)
	backends[sdk.ServiceInventory].Respond("PUT /api/v1/flavors/f1", http.StatusOK, testutil.OK(nil))

	path := filepath.Join(t.TempDir(), "flavor.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"Stracciatella"}`), 0o600))

	out, _, err := execute(t, "request", "PUT", "/api/v1/flavors/f1", "--service", "inventory", "--data", "@"+path)
	require.NoError(t, err)
	assert.Equal(t, "success\n", out)
	assert.JSONEq(t, `{"name":"Stracciatella"}`, string(backends[sdk.ServiceInventory].LastRequest(t).Body))
}

func TestRequest_UsageErrors(t *testing.T) {
	backends, _ := setup(t)

	_, _, err := execute(t, "request", "POST", "/api/v1/sales/orders", "--data", "{oops")
	assert.ErrorIs(t, err, ErrUsage)
	assert.Equal(t, 2, ExitCode(err))

	_, _, err = execute(t, "get", "/api/v1/billing/invoices")
	assert.ErrorIs(t, err, ErrUsage)

	for _, b := range backends {
		assert.Zero(t, b.RequestCount())
	}
}

func TestGet_Errors(t *testing.T) {
	backends, _ := setup(t)
	backends[sdk.ServiceInventory].Respond("GET /api/v1/inventory/flavors/missing", http.StatusNotFound,
		testutil.Fail("FLAVOR_NOT_FOUND", "no such flavor"))

	out, _, err := execute(t, "get", "/api/v1/inventory/flavors/missing", "-o", "json")
	require.Error(t, err)
	assert.Equal(t, 5, ExitCode(err))

	var env sdk.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.False(t, env.Success)
	assert.Equal(t, sdk.CodeNotFound, env.Error.Code)
}

func TestGet_Strict(t *testing.T) {
	backends, _ := setup(t)
	backends[sdk.ServiceSales].Respond("GET /api/v1/sales/orders", http.StatusBadGateway, testutil.Fail("DOWN", "upstream"))

	out, _, err := execute(t, "get", "/api/v1/sales/orders")
	require.NoError(t, err, "outages are answered with fallback data")
	assert.True(t, strings.HasPrefix(out, "success\n"))

	_, _, err = execute(t, "get", "/api/v1/sales/orders", "--strict")
	require.Error(t, err)
	assert.ErrorIs(t, err, sdk.ErrServerError)
	assert.Equal(t, 1, ExitCode(err))
}

func TestLoginLogout(t *testing.T) {
	backends, tokenFile := setup(t)
	backends[sdk.ServiceAuth].Respond("POST "+sdk.LoginPath, http.StatusOK, testutil.OK(map[string]interface{}{
		"user":  map[string]interface{}{"id": "u1", "email": "exec@eislager.example", "name": "Erika", "role": "executive"},
		"token": "opaque-token",
	}))
	backends[sdk.ServiceAdmin].Respond("GET /api/v1/admin/shops", http.StatusOK, testutil.OK([]interface{}{}))

	out, _, err := execute(t, "login", "--email", "exec@eislager.example", "--password", "secret")
	require.NoError(t, err)
	assert.Equal(t, "logged in as Erika <exec@eislager.example> (executive)\n", out)

	stored, err := sdk.NewFileTokenStore(tokenFile).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", stored.AuthToken)

	// A later invocation picks the session up from the token store.
	_, _, err = execute(t, "get", "/api/v1/admin/shops")
	require.NoError(t, err)
	assert.Equal(t, "Bearer opaque-token", backends[sdk.ServiceAdmin].LastRequest(t).Headers.Get("Authorization"))

	out, _, err = execute(t, "logout")
	require.NoError(t, err)
	assert.Equal(t, "logged out\n", out)

	stored, err = sdk.NewFileTokenStore(tokenFile).Load(context.Background())
	require.NoError(t, err)
	assert.True(t, stored.Empty())
}

func TestLogin_Offline(t *testing.T) {
	_, _ = setup(t)
	t.Setenv("EISLAGER_SERVICES_AUTH", testutil.DeadURL())

	out, _, err := execute(t, "login", "--email", "clerk@eislager.example", "--password", "secret", "-o", "json")
	require.NoError(t, err)

	var got loginOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Persisted)
	require.NotNil(t, got.Token)
	assert.True(t, got.Token.Offline)
}

func TestLogin_Validation(t *testing.T) {
	backends, _ := setup(t)

	_, _, err := execute(t, "login", "--email", "not-an-email", "--password", "x")
	require.Error(t, err)
	assert.Zero(t, backends[sdk.ServiceAuth].RequestCount())

	_, _, err = execute(t, "login")
	assert.Error(t, err, "--email is required")
}

func TestSnapshot(t *testing.T) {
	_, _ = setup(t)
	t.Setenv("EISLAGER_SERVICES_ANALYTICS", testutil.DeadURL())

	out, _, err := execute(t, "snapshot", "-o", "json")
	require.NoError(t, err)

	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.NotEmpty(t, s.KPIs.Period)
	assert.NotEmpty(t, s.Charts.Labels)
	assert.NotEmpty(t, s.Analytics.Period)

	out, _, err = execute(t, "snapshot")
	require.NoError(t, err)
	assert.Contains(t, out, "revenue")

	_, _, err = execute(t, "snapshot", "--strict")
	assert.Error(t, err)
}

func TestFallback(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"/api/v1/inventory/flavors"}, "flavors"},
		{[]string{"/api/v1/inventory/flavors/f1"}, "flavor"},
		{[]string{"/api/v1/auth/login", "--method", "post"}, "login"},
		{[]string{"/api/v1/sales/orders", "-X", "DELETE"}, "none"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, _, err := execute(t, append([]string{"fallback"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}

	out, _, err := execute(t, "fallback", "/api/v1/inventory/flavors?limit=3", "--preview", "-o", "json")
	require.NoError(t, err)
	var env sdk.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	page, err := sdk.DecodeData[sdk.Page[sdk.Flavor]](&env)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: dev")
	assert.Contains(t, out, sdk.DefaultUserAgent)

	out, _, err = execute(t, "version", "-o", "json")
	require.NoError(t, err)
	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
}

func TestServiceForPath(t *testing.T) {
	tests := map[string]string{
		"/api/v1/auth/me":              sdk.ServiceAuth,
		"/api/v2/analytics/kpis?x=1":   sdk.ServiceAnalytics,
		"inventory/flavors":            sdk.ServiceInventory,
		"/api/v1/communications/email": sdk.ServiceCommunications,
		"/orders":                      "orders",
		"/":                            "",
	}
	for path, want := range tests {
		assert.Equal(t, want, serviceForPath(path), path)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(fmt.Errorf("%w: bad flag", ErrUsage)))
	assert.Equal(t, 3, ExitCode(fmt.Errorf("%w: bad file", ErrConfig)))
	assert.Equal(t, 4, ExitCode(sdk.NewError(sdk.ErrorTypeUnauthorized, "expired", nil)))
	assert.Equal(t, 5, ExitCode(sdk.NewError(sdk.ErrorTypeNotFound, "gone", nil)))
	assert.Equal(t, 1, ExitCode(sdk.NewError(sdk.ErrorTypeServer, "boom", nil)))
}
