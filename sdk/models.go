package sdk

import "time"

// Role is a user's role in the business.
type Role string

const (
	RoleExecutive    Role = "executive"
	RoleManufacturer Role = "manufacturer"
	RoleClerk        Role = "clerk"
	RolePatron       Role = "patron"
)

// User is an account known to the auth service.
type User struct {
	ID        string    `json:"id" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	Name      string    `json:"name" validate:"required"`
	Role      Role      `json:"role" validate:"required,oneof=executive manufacturer clerk patron"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoginResult is the data of a successful POST /auth/login.
type LoginResult struct {
	User         User   `json:"user"`
	Token        string `json:"token" validate:"required"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn" validate:"gte=0"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Flavor is an ice-cream flavor in the catalogue.
type Flavor struct {
	ID          string   `json:"id" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Price       float64  `json:"price" validate:"gte=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Available   bool     `json:"available"`
	Allergens   []string `json:"allergens,omitempty"`
}

// OrderItem is one line of an Order.
type OrderItem struct {
	FlavorID  string  `json:"flavorId" validate:"required"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
}

// Order is a customer order placed at a shop.
type Order struct {
	ID         string      `json:"id" validate:"required"`
	CustomerID string      `json:"customerId"`
	ShopID     string      `json:"shopId"`
	Items      []OrderItem `json:"items" validate:"dive"`
	Total      float64     `json:"total" validate:"gte=0"`
	Status     string      `json:"status" validate:"required,oneof=pending confirmed preparing ready delivered cancelled"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Store is a shop location.
type Store struct {
	ID      string  `json:"id" validate:"required"`
	Name    string  `json:"name" validate:"required"`
	Address string  `json:"address"`
	City    string  `json:"city"`
	Manager string  `json:"manager,omitempty"`
	Phone   string  `json:"phone,omitempty"`
	Rating  float64 `json:"rating" validate:"gte=0,lte=5"`
	Open    bool    `json:"open"`
}

// Message is a chat message within a conversation.
type Message struct {
	ID             string    `json:"id" validate:"required"`
	ConversationID string    `json:"conversationId" validate:"required"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sentAt"`
	Read           bool      `json:"read"`
}

// Email is an inbox entry.
type Email struct {
	ID         string    `json:"id" validate:"required"`
	From       string    `json:"from" validate:"required"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Folder     string    `json:"folder" validate:"required,oneof=inbox sent drafts archive trash"`
	Read       bool      `json:"read"`
	Starred    bool      `json:"starred"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Notification is a user-facing alert.
type Notification struct {
	ID        string    `json:"id" validate:"required"`
	Type      string    `json:"type" validate:"required,oneof=info warning success error"`
	Title     string    `json:"title" validate:"required"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// KPIs aggregates the headline business figures for a period.
type KPIs struct {
	Period            string  `json:"period" validate:"required"`
	Revenue           float64 `json:"revenue" validate:"gte=0"`
	RevenueGrowth     float64 `json:"revenueGrowth"`
	Orders            int     `json:"orders" validate:"gte=0"`
	OrdersGrowth      float64 `json:"ordersGrowth"`
	Customers         int     `json:"customers" validate:"gte=0"`
	CustomersGrowth   float64 `json:"customersGrowth"`
	AverageOrderValue float64 `json:"averageOrderValue" validate:"gte=0"`
}

// Dataset is one series of a chart.
type Dataset struct {
	Label string    `json:"label" validate:"required"`
	Data  []float64 `json:"data"`
}

// ChartData is a labelled set of series.
type ChartData struct {
	Labels   []string  `json:"labels" validate:"required"`
	Datasets []Dataset `json:"datasets" validate:"dive"`
}

// Dashboard is the landing aggregate of the executive view.
type Dashboard struct {
	KPIs         KPIs           `json:"kpis"`
	RecentOrders []Order        `json:"recentOrders" validate:"dive"`
	TopFlavors   []Flavor       `json:"topFlavors" validate:"dive"`
	Alerts       []Notification `json:"alerts" validate:"dive"`
}

// FlavorSales is the sales figure of one flavor.
type FlavorSales struct {
	FlavorID  string  `json:"flavorId" validate:"required"`
	Name      string  `json:"name"`
	UnitsSold int     `json:"unitsSold" validate:"gte=0"`
	Revenue   float64 `json:"revenue" validate:"gte=0"`
}

// Analytics is the analytics service's aggregate report.
type Analytics struct {
	Period         string             `json:"period" validate:"required"`
	TotalRevenue   float64            `json:"totalRevenue" validate:"gte=0"`
	TotalOrders    int                `json:"totalOrders" validate:"gte=0"`
	ConversionRate float64            `json:"conversionRate" validate:"gte=0,lte=1"`
	TopFlavors     []FlavorSales      `json:"topFlavors" validate:"dive"`
	RevenueByStore map[string]float64 `json:"revenueByStore"`
}

// Pagination describes the position of a Page.
type Pagination struct {
	Page       int `json:"page" validate:"gte=1"`
	Limit      int `json:"limit" validate:"gte=1"`
	Total      int `json:"total" validate:"gte=0"`
	TotalPages int `json:"totalPages" validate:"gte=0"`
}

// Page is a paginated list of records.
type Page[T any] struct {
	Items      []T        `json:"items" validate:"dive"`
	Pagination Pagination `json:"pagination"`
}
