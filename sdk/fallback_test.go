package sdk

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackResolver_Categories(t *testing.T) {
	resolver := DefaultFallbackResolver()

	tests := []struct {
		method string
		path   string
		want   FallbackCategory
	}{
		{"GET", "/api/v1/auth/me", FallbackUser},
		{"GET", "/api/v1/auth/profile", FallbackUser},
		{"POST", "/api/v1/auth/login", FallbackLogin},
		{"GET", "/api/v1/auth/login", FallbackNone},
		{"GET", "/api/v1/users?page=2", FallbackUsers},
		{"GET", "/api/v1/flavors/42", FallbackFlavor},
		{"GET", "/api/v1/flavors/42/", FallbackFlavor},
		{"GET", "/api/v1/flavors", FallbackFlavors},
		{"GET", "/api/v1/flavors?page=1&limit=5", FallbackFlavors},
		{"GET", "/api/v1/orders/9", FallbackOrders},
		{"GET", "/api/v1/shops/1", FallbackShop},
		{"GET", "/api/v1/shops", FallbackShops},
		{"GET", "/api/v1/shops/1/orders", FallbackOrders},
		{"GET", "/api/v1/chat/conversations/7/messages", FallbackMessages},
		{"GET", "/api/v1/emails?folder=inbox", FallbackEmails},
		{"GET", "/api/v1/notifications", FallbackNotifications},
		{"GET", "/api/v1/analytics/kpis", FallbackKPIs},
		{"GET", "/api/v1/analytics/charts/revenue", FallbackCharts},
		{"GET", "/api/v1/analytics/dashboard", FallbackDashboard},
		{"GET", "/api/v1/analytics", FallbackAnalytics},
		{"POST", "/api/v1/orders", FallbackNone},
		{"DELETE", "/api/v1/flavors/1", FallbackNone},
		{"GET", "/api/v1/unknown", FallbackNone},
		{"GET", "/api/v1/search?q=/flavors", FallbackNone},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, resolver.Category(tt.method, tt.path))
			_, got := resolver.Resolve(tt.method, tt.path)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFallbackResolver_PayloadsAreValidRecords(t *testing.T) {
	resolver := DefaultFallbackResolver()

	check := func(t *testing.T, method, path string, decode func(*Envelope) error) {
		t.Helper()
		env, _ := resolver.Resolve(method, path)
		require.NotNil(t, env)
		assert.True(t, env.Success)
		assert.Nil(t, env.Error)
		require.NoError(t, decode(env))
	}

	check(t, "GET", "/api/v1/auth/me", func(e *Envelope) error { _, err := DecodeData[User](e); return err })
	check(t, "POST", "/api/v1/auth/login", func(e *Envelope) error {
		r, err := DecodeData[LoginResult](e)
		if err == nil {
			assert.Contains(t, r.Token, "offline-")
		}
		return err
	})
	check(t, "GET", "/api/v1/users", func(e *Envelope) error { _, err := DecodeData[Page[User]](e); return err })
	check(t, "GET", "/api/v1/flavors/1", func(e *Envelope) error { _, err := DecodeData[Flavor](e); return err })
	check(t, "GET", "/api/v1/orders", func(e *Envelope) error { _, err := DecodeData[Page[Order]](e); return err })
	check(t, "GET", "/api/v1/shops/1", func(e *Envelope) error { _, err := DecodeData[Store](e); return err })
	check(t, "GET", "/api/v1/chat/conversations", func(e *Envelope) error { _, err := DecodeData[Page[Message]](e); return err })
	check(t, "GET", "/api/v1/emails", func(e *Envelope) error { _, err := DecodeData[Page[Email]](e); return err })
	check(t, "GET", "/api/v1/notifications", func(e *Envelope) error { _, err := DecodeData[Page[Notification]](e); return err })
	check(t, "GET", "/api/v1/kpis", func(e *Envelope) error { _, err := DecodeData[KPIs](e); return err })
	check(t, "GET", "/api/v1/charts", func(e *Envelope) error {
		c, err := DecodeData[ChartData](e)
		if err == nil {
			for _, ds := range c.Datasets {
				assert.Len(t, ds.Data, len(c.Labels))
			}
		}
		return err
	})
	check(t, "GET", "/api/v1/dashboard", func(e *Envelope) error { _, err := DecodeData[Dashboard](e); return err })
	check(t, "GET", "/api/v1/analytics", func(e *Envelope) error { _, err := DecodeData[Analytics](e); return err })
}

func TestFallbackResolver_Pagination(t *testing.T) {
	resolver := DefaultFallbackResolver()

	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, defaultPageLimit},
		{"?page=3&limit=7", 3, 7},
		{"?page=0&limit=-2", 1, defaultPageLimit},
		{"?page=abc&limit=xyz", 1, defaultPageLimit},
		{"?limit=5000", 1, maxPageLimit},
		{"?page=9223372036854775807&limit=10", maxPage, 10},
		{"?page=2147483647&limit=5000", maxPage, maxPageLimit},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			env, _ := resolver.Resolve(http.MethodGet, "/api/v1/flavors"+tt.query)
			page, err := DecodeData[Page[Flavor]](env)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPage, page.Pagination.Page)
			assert.Equal(t, tt.wantLimit, page.Pagination.Limit)
			assert.Len(t, page.Items, tt.wantLimit)
			assert.GreaterOrEqual(t, page.Pagination.Total, tt.wantPage*tt.wantLimit)
			assert.Equal(t, (page.Pagination.Total+tt.wantLimit-1)/tt.wantLimit, page.Pagination.TotalPages)
		})
	}
}

func TestFallbackResolver_NoMatchIsNullSuccess(t *testing.T) {
	env, category := DefaultFallbackResolver().Resolve(http.MethodPut, "/api/v1/flavors/1")
	assert.Equal(t, FallbackNone, category)
	assert.True(t, env.Success)
	assert.False(t, env.HasData())
	assert.JSONEq(t, "null", string(env.Data))
}

func TestFallbackResolver_Prepend(t *testing.T) {
	base := DefaultFallbackResolver()
	custom := base.Prepend(FallbackRule{
		Category: "seasonal",
		Methods:  []string{http.MethodGet},
		Match:    PathContains("/flavors/seasonal"),
		Generate: func(q url.Values) interface{} { return []string{"pumpkin", q.Get("region")} },
	})

	env, category := custom.Resolve(http.MethodGet, "/api/v1/flavors/seasonal?region=alps")
	assert.Equal(t, FallbackCategory("seasonal"), category)
	var names []string
	require.NoError(t, env.Decode(&names))
	assert.Equal(t, []string{"pumpkin", "alps"}, names)

	assert.Equal(t, FallbackFlavor, base.Category(http.MethodGet, "/api/v1/flavors/seasonal"),
		"Prepend must not change the receiver")
	assert.Len(t, custom.Rules(), len(base.Rules())+1)
}

func TestFallbackResolver_UnencodableDataBecomesNull(t *testing.T) {
	resolver := NewFallbackResolver(FallbackRule{
		Category: "broken",
		Match:    func(string) bool { return true },
		Generate: func(url.Values) interface{} { return make(chan int) },
	})

	env, category := resolver.Resolve(http.MethodGet, "/anything")
	assert.Equal(t, FallbackNone, category)
	assert.True(t, env.Success)
	assert.False(t, env.HasData())
}

func TestFallbackRule_AnyMethodWhenEmpty(t *testing.T) {
	rule := FallbackRule{Match: PathContains("/ping")}
	assert.True(t, rule.matches(http.MethodDelete, "/ping"))
	assert.True(t, rule.matches("get", "/ping"))
	assert.False(t, FallbackRule{}.matches(http.MethodGet, "/ping"), "a rule without Match never matches")
}

func TestPathItem(t *testing.T) {
	match := PathItem("shops")
	assert.True(t, match("/api/v1/shops/1"))
	assert.True(t, match("/shops/north-1/"))
	assert.False(t, match("/api/v1/shops"))
	assert.False(t, match("/api/v1/shops/1/orders"))
	assert.False(t, match("/api/v1/coffeeshops"))
}
