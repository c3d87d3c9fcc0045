package sdk

import (
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// FallbackCategory names the kind of synthetic payload chosen for a request.
type FallbackCategory string

const (
	FallbackUser          FallbackCategory = "user"
	FallbackLogin         FallbackCategory = "login"
	FallbackUsers         FallbackCategory = "users"
	FallbackFlavor        FallbackCategory = "flavor"
	FallbackFlavors       FallbackCategory = "flavors"
	FallbackOrders        FallbackCategory = "orders"
	FallbackShop          FallbackCategory = "shop"
	FallbackShops         FallbackCategory = "shops"
	FallbackMessages      FallbackCategory = "messages"
	FallbackEmails        FallbackCategory = "emails"
	FallbackNotifications FallbackCategory = "notifications"
	FallbackKPIs          FallbackCategory = "kpis"
	FallbackCharts        FallbackCategory = "charts"
	FallbackDashboard     FallbackCategory = "dashboard"
	FallbackAnalytics     FallbackCategory = "analytics"
	// FallbackNone is reported when no rule matched; the data is null.
	FallbackNone FallbackCategory = "none"
)

// FallbackRule pairs a request predicate with a payload generator.
//
// A rule matches when the request method is one of Methods (any method when
// Methods is empty) and Match reports true for the path without its query
// string. Generate receives the parsed query string.
type FallbackRule struct {
	Category FallbackCategory
	Methods  []string
	Match    func(path string) bool
	Generate func(query url.Values) interface{}
}

func (r FallbackRule) matches(method, path string) bool {
	if len(r.Methods) > 0 {
		ok := false
		for _, m := range r.Methods {
			if strings.EqualFold(m, method) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return r.Match != nil && r.Match(path)
}

// FallbackResolver synthesizes plausible data for a request whose backend is
// unavailable. Rules are evaluated top to bottom and the first match wins.
// A resolver is immutable and safe for concurrent use.
type FallbackResolver struct {
	rules []FallbackRule
}

// NewFallbackResolver creates a resolver from an ordered rule table.
func NewFallbackResolver(rules ...FallbackRule) *FallbackResolver {
	return &FallbackResolver{rules: append([]FallbackRule(nil), rules...)}
}

// DefaultFallbackResolver returns a resolver with DefaultFallbackRules.
func DefaultFallbackResolver() *FallbackResolver {
	return NewFallbackResolver(DefaultFallbackRules()...)
}

// Rules returns a copy of the rule table.
func (r *FallbackResolver) Rules() []FallbackRule {
	return append([]FallbackRule(nil), r.rules...)
}

// Prepend returns a new resolver that evaluates rules before r's rules.
//
// Example:
//
//	resolver := sdk.DefaultFallbackResolver().Prepend(sdk.FallbackRule{
//	    Category: "seasonal",
//	    Methods:  []string{http.MethodGet},
//	    Match:    sdk.PathContains("/seasonal"),
//	    Generate: func(url.Values) interface{} { return []string{"pumpkin"} },
//	})
func (r *FallbackResolver) Prepend(rules ...FallbackRule) *FallbackResolver {
	combined := make([]FallbackRule, 0, len(rules)+len(r.rules))
	combined = append(combined, rules...)
	combined = append(combined, r.rules...)
	return &FallbackResolver{rules: combined}
}

// Category returns the category that Resolve would pick.
func (r *FallbackResolver) Category(method, path string) FallbackCategory {
	p, _ := splitQuery(path)
	for _, rule := range r.rules {
		if rule.matches(method, p) {
			return rule.Category
		}
	}
	return FallbackNone
}

// Resolve returns a success envelope with synthetic data for the request and
// the category that produced it. It never fails: when no rule matches, or the
// generated value cannot be encoded, the data is null.
func (r *FallbackResolver) Resolve(method, path string) (*Envelope, FallbackCategory) {
	p, query := splitQuery(path)
	for _, rule := range r.rules {
		if !rule.matches(method, p) {
			continue
		}
		var data interface{}
		if rule.Generate != nil {
			data = rule.Generate(query)
		}
		env, err := successEnvelope(data)
		if err != nil {
			break
		}
		return env, rule.Category
	}
	return nullEnvelope(), FallbackNone
}

func nullEnvelope() *Envelope {
	return &Envelope{Success: true, Data: []byte("null")}
}

func splitQuery(path string) (string, url.Values) {
	p, raw, found := strings.Cut(path, "?")
	if !found {
		return p, url.Values{}
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return p, url.Values{}
	}
	return p, q
}

// PathContains matches paths containing any of the given fragments.
func PathContains(fragments ...string) func(string) bool {
	return func(path string) bool {
		for _, f := range fragments {
			if strings.Contains(path, f) {
				return true
			}
		}
		return false
	}
}

// PathItem matches paths whose last segment is an identifier under the
// given collection, e.g. PathItem("flavors") matches "/api/v1/flavors/42"
// but not "/api/v1/flavors".
func PathItem(collection string) func(string) bool {
	re := regexp.MustCompile(`/` + regexp.QuoteMeta(collection) + `/[^/]+/?$`)
	return re.MatchString
}

// DefaultFallbackRules returns the built-in rule table.
func DefaultFallbackRules() []FallbackRule {
	get := []string{http.MethodGet}
	return []FallbackRule{
		{Category: FallbackUser, Methods: get, Match: PathContains("/auth/me", "/auth/profile"),
			Generate: func(url.Values) interface{} { return mockUser() }},
		{Category: FallbackLogin, Methods: []string{http.MethodPost}, Match: PathContains("/auth/login"),
			Generate: func(url.Values) interface{} { return mockLogin() }},
		{Category: FallbackUsers, Methods: get, Match: PathContains("/users"),
			Generate: func(q url.Values) interface{} { return mockPage(q, mockUser) }},
		{Category: FallbackFlavor, Methods: get, Match: PathItem("flavors"),
			Generate: func(url.Values) interface{} { return mockFlavor() }},
		{Category: FallbackFlavors, Methods: get, Match: PathContains("/flavors"),
			Generate: func(q url.Values) interface{} { return mockPage(q, mockFlavor) }},
		{Category: FallbackOrders, Methods: get, Match: PathContains("/orders"),
			Generate: func(q url.Values) interface{} { return mockPage(q, mockOrder) }},
		{Category: FallbackShop, Methods: get, Match: PathItem("shops"),
			Generate: func(url.Values) interface{} { return mockStore() }},
		{Category: FallbackShops, Methods: get, Match: PathContains("/shops"),
			Generate: func(q url.Values) interface{} { return mockPage(q, mockStore) }},
		{Category: FallbackMessages, Methods: get, Match: PathContains("/chat/conversations"),
			Generate: func(q url.Values) interface{} { return mockPage(q, mockMessage) }},
		{Category: FallbackEmails, Methods: get, Match: PathContains("/emails"),
			Generate: func(q url.Values) interface{} { return mockPage(q, mockEmail) }},
		{Category: FallbackNotifications, Methods: get, Match: PathContains("/notifications"),
			Generate: func(q url.Values) interface{} { return mockPage(q, mockNotification) }},
		{Category: FallbackKPIs, Methods: get, Match: PathContains("/kpis"),
			Generate: func(url.Values) interface{} { return mockKPIs() }},
		{Category: FallbackCharts, Methods: get, Match: PathContains("/charts"),
			Generate: func(url.Values) interface{} { return mockChartData() }},
		{Category: FallbackDashboard, Methods: get, Match: PathContains("/dashboard"),
			Generate: func(url.Values) interface{} { return mockDashboard() }},
		{Category: FallbackAnalytics, Methods: get, Match: PathContains("/analytics"),
			Generate: func(url.Values) interface{} { return mockAnalytics() }},
	}
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	// maxPage keeps page*limit plus the random remainder within an int32.
	maxPage = (math.MaxInt32 - 2*maxPageLimit) / maxPageLimit
)

// pageParams reads page and limit from the query, falling back to 1 and 10.
func pageParams(q url.Values) (page, limit int) {
	page, limit = 1, defaultPageLimit
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if page > maxPage {
		page = maxPage
	}
	return page, limit
}

func mockPage[T any](q url.Values, gen func() T) Page[T] {
	page, limit := pageParams(q)
	items := make([]T, limit)
	for i := range items {
		items[i] = gen()
	}
	total := page*limit + randInt(0, 2*limit)
	return Page[T]{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	}
}
