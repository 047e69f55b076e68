package testutil

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/chrisdamba/foodatrack/internal/models"
	"github.com/chrisdamba/foodatrack/internal/repositories/sqlite"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// The database is closed via t.Cleanup.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	d, err := sqlite.Open("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// NewOrderRepository returns a repository over a fresh in-memory database.
func NewOrderRepository(t *testing.T) *sqlite.OrderRepository {
	t.Helper()
	return sqlite.NewOrderRepository(OpenInMemoryDB(t, strings.ReplaceAll(t.Name(), "/", "_")), nil)
}

// Clock is a manually advanced time source.
type Clock struct {
	Current time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{Current: start}
}

func (c *Clock) Now() time.Time {
	return c.Current
}

func (c *Clock) Advance(d time.Duration) {
	c.Current = c.Current.Add(d)
}

// Order returns a PENDING order without tracking, ready to be stored.
func Order(id string, createdAt time.Time) *models.Order {
	return &models.Order{
		ID:           id,
		CustomerID:   "c-" + id,
		RestaurantID: "r1",
		Items: []models.LineItem{
			{Name: "Lahmacun", Quantity: 2, UnitPrice: 90},
			{Name: "Ayran", Quantity: 1, UnitPrice: 25},
		},
		Address: models.Address{
			Address1: "Istiklal Cd. 10",
			Postcode: "34430",
			Location: &models.Location{Lat: 41.0337, Lon: 28.9770},
		},
		PaymentMethod: models.PaymentCard,
		TotalAmount:   205,
		Status:        models.OrderStatusPending,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

// GenerateJWTHS256 returns a signed JWT carrying the subject and role claims
// the API reads.
func GenerateJWTHS256(t *testing.T, secret, subject, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}
