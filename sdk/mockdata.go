package sdk

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	mockFirstNames = []string{"Anna", "Luca", "Mia", "Jonas", "Sofia", "Elias", "Lea", "Noah", "Emma", "Felix"}
	mockLastNames  = []string{"Berger", "Rossi", "Keller", "Moreau", "Novak", "Lindqvist", "Fischer", "Conti"}
	mockFlavors    = []string{"Stracciatella", "Pistachio", "Salted Caramel", "Mango Sorbet", "Hazelnut",
		"Dark Chocolate", "Vanilla Bean", "Strawberry", "Lemon Basil", "Cookie Dough"}
	mockCategories = []string{"classic", "sorbet", "premium", "seasonal", "vegan"}
	mockAllergens  = []string{"milk", "nuts", "gluten", "eggs", "soy"}
	mockCities     = []string{"Vienna", "Munich", "Zurich", "Milan", "Ljubljana", "Salzburg"}
	mockStreets    = []string{"Hauptstrasse", "Marktplatz", "Bahnhofstrasse", "Seeweg", "Kirchgasse"}
	mockSubjects   = []string{"Weekly production plan", "Delivery delayed", "New flavor tasting",
		"Invoice reminder", "Shift schedule", "Freezer maintenance"}
	mockNoteTitles = []string{"Low stock", "Order ready", "New message", "Price update", "Shift change"}
	mockStatuses   = []string{"pending", "confirmed", "preparing", "ready", "delivered", "cancelled"}
	mockNoteTypes  = []string{"info", "warning", "success", "error"}
	mockRoles      = []Role{RoleExecutive, RoleManufacturer, RoleClerk, RolePatron}
	mockMonths     = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

func pick[T any](values []T) T {
	return values[rand.Intn(len(values))]
}

// randInt returns an int in [lo, hi].
func randInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rand.Intn(hi-lo+1)
}

// randMoney returns a value in [lo, hi) rounded to cents.
func randMoney(lo, hi float64) float64 {
	return math.Round((lo+rand.Float64()*(hi-lo))*100) / 100
}

func recentTime(within time.Duration) time.Time {
	return time.Now().Add(-time.Duration(rand.Int63n(int64(within)))).UTC().Truncate(time.Second)
}

func mockName() string {
	return pick(mockFirstNames) + " " + pick(mockLastNames)
}

func mockUser() User {
	name := mockName()
	return User{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@eislager.example",
		Name:      name,
		Role:      pick(mockRoles),
		CreatedAt: recentTime(365 * 24 * time.Hour),
	}
}

func mockLogin() LoginResult {
	return LoginResult{
		User:         mockUser(),
		Token:        "offline-" + uuid.NewString(),
		RefreshToken: "offline-refresh-" + uuid.NewString(),
		ExpiresIn:    3600,
	}
}

func mockFlavor() Flavor {
	name := pick(mockFlavors)
	allergens := []string{}
	if rand.Intn(2) == 0 {
		allergens = append(allergens, pick(mockAllergens))
	}
	stock := randInt(0, 200)
	return Flavor{
		ID:          uuid.NewString(),
		Name:        name,
		Description: fmt.Sprintf("House-made %s", strings.ToLower(name)),
		Category:    pick(mockCategories),
		Price:       randMoney(2.5, 6.5),
		Stock:       stock,
		Available:   stock > 0,
		Allergens:   allergens,
	}
}

func mockOrder() Order {
	items := make([]OrderItem, randInt(1, 4))
	total := 0.0
	for i := range items {
		items[i] = OrderItem{
			FlavorID:  uuid.NewString(),
			Name:      pick(mockFlavors),
			Quantity:  randInt(1, 5),
			UnitPrice: randMoney(2.5, 6.5),
		}
		total += float64(items[i].Quantity) * items[i].UnitPrice
	}
	return Order{
		ID:         uuid.NewString(),
		CustomerID: uuid.NewString(),
		ShopID:     uuid.NewString(),
		Items:      items,
		Total:      math.Round(total*100) / 100,
		Status:     pick(mockStatuses),
		CreatedAt:  recentTime(30 * 24 * time.Hour),
	}
}

func mockStore() Store {
	city := pick(mockCities)
	return Store{
		ID:      uuid.NewString(),
		Name:    "EisLager " + city,
		Address: fmt.Sprintf("%s %d", pick(mockStreets), randInt(1, 120)),
		City:    city,
		Manager: mockName(),
		Phone:   fmt.Sprintf("+43 1 %07d", rand.Intn(10000000)),
		Rating:  math.Round((3+rand.Float64()*2)*10) / 10,
		Open:    rand.Intn(5) != 0,
	}
}

func mockMessage() Message {
	return Message{
		ID:             uuid.NewString(),
		ConversationID: uuid.NewString(),
		SenderID:       uuid.NewString(),
		SenderName:     mockName(),
		Content:        pick(mockSubjects),
		SentAt:         recentTime(7 * 24 * time.Hour),
		Read:           rand.Intn(2) == 0,
	}
}

func mockEmail() Email {
	return Email{
		ID:         uuid.NewString(),
		From:       mockUser().Email,
		To:         []string{mockUser().Email},
		Subject:    pick(mockSubjects),
		Body:       "This message was generated while the mail service was unavailable.",
		Folder:     "inbox",
		Read:       rand.Intn(2) == 0,
		Starred:    rand.Intn(4) == 0,
		ReceivedAt: recentTime(14 * 24 * time.Hour),
	}
}

func mockNotification() Notification {
	title := pick(mockNoteTitles)
	return Notification{
		ID:        uuid.NewString(),
		Type:      pick(mockNoteTypes),
		Title:     title,
		Message:   title + " at " + pick(mockCities),
		Read:      rand.Intn(2) == 0,
		CreatedAt: recentTime(3 * 24 * time.Hour),
	}
}

func mockKPIs() KPIs {
	orders := randInt(800, 5000)
	aov := randMoney(8, 25)
	return KPIs{
		Period:            "30d",
		Revenue:           math.Round(float64(orders)*aov*100) / 100,
		RevenueGrowth:     randMoney(-10, 25),
		Orders:            orders,
		OrdersGrowth:      randMoney(-10, 25),
		Customers:         randInt(300, orders),
		CustomersGrowth:   randMoney(-5, 20),
		AverageOrderValue: aov,
	}
}

func mockChartData() ChartData {
	labels := append([]string(nil), mockMonths[:6]...)
	datasets := []Dataset{{Label: "Revenue"}, {Label: "Orders"}}
	for i := range datasets {
		datasets[i].Data = make([]float64, len(labels))
		for j := range labels {
			datasets[i].Data[j] = randMoney(1000, 20000)
		}
	}
	return ChartData{Labels: labels, Datasets: datasets}
}

func mockDashboard() Dashboard {
	d := Dashboard{KPIs: mockKPIs()}
	for i := 0; i < 5; i++ {
		d.RecentOrders = append(d.RecentOrders, mockOrder())
	}
	for i := 0; i < 3; i++ {
		d.TopFlavors = append(d.TopFlavors, mockFlavor())
		d.Alerts = append(d.Alerts, mockNotification())
	}
	return d
}

func mockAnalytics() Analytics {
	a := Analytics{
		Period:         "30d",
		TotalOrders:    randInt(800, 5000),
		ConversionRate: math.Round(rand.Float64()*1000) / 1000,
		RevenueByStore: make(map[string]float64),
	}
	for i := 0; i < 5; i++ {
		f := FlavorSales{
			FlavorID:  uuid.NewString(),
			Name:      pick(mockFlavors),
			UnitsSold: randInt(50, 900),
		}
		f.Revenue = math.Round(float64(f.UnitsSold)*randMoney(2.5, 6.5)*100) / 100
		a.TopFlavors = append(a.TopFlavors, f)
	}
	for _, city := range mockCities {
		revenue := randMoney(5000, 60000)
		a.RevenueByStore["EisLager "+city] = revenue
		a.TotalRevenue += revenue
	}
	a.TotalRevenue = math.Round(a.TotalRevenue*100) / 100
	return a
}
