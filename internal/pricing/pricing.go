// Package pricing quotes ride prices: a distance-based formula and a table of
// fixed route prices.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeDistance = errors.New("distance cannot be negative")
	ErrRouteNotFound    = errors.New("route not found")
)

// Calculator prices a ride as BaseRate + distance * PerKmRate.
type Calculator struct {
	BaseRate  decimal.Decimal
	PerKmRate decimal.Decimal
}

// DefaultCalculator returns 50.00 base plus 2.00 per km.
func DefaultCalculator() Calculator {
	return Calculator{
		BaseRate:  decimal.NewFromInt(50),
		PerKmRate: decimal.NewFromInt(2),
	}
}

// Quote returns the price for distanceKm, rounded to cents.
func (c Calculator) Quote(distanceKm decimal.Decimal) (decimal.Decimal, error) {
	if distanceKm.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s km", ErrNegativeDistance, distanceKm)
	}
	return c.BaseRate.Add(distanceKm.Mul(c.PerKmRate)).Round(2), nil
}

// Route is a fixed-price pickup/dropoff pair.
type Route struct {
	Pickup  string
	Dropoff string
	Price   decimal.Decimal
}

// RouteTable looks up fixed prices by pickup and dropoff. Names match
// case-insensitively with surrounding whitespace ignored.
type RouteTable struct {
	routes map[string]Route
}

func routeKey(pickup, dropoff string) string {
	return strings.ToLower(strings.TrimSpace(pickup)) + "\x00" + strings.ToLower(strings.TrimSpace(dropoff))
}

// NewRouteTable indexes routes. A later duplicate replaces an earlier one.
func NewRouteTable(routes []Route) (*RouteTable, error) {
	t := &RouteTable{routes: make(map[string]Route, len(routes))}
	for i, r := range routes {
		if strings.TrimSpace(r.Pickup) == "" || strings.TrimSpace(r.Dropoff) == "" {
			return nil, fmt.Errorf("route %d: pickup and dropoff are required", i)
		}
		if r.Price.IsNegative() {
			return nil, fmt.Errorf("route %d (%s -> %s): price cannot be negative", i, r.Pickup, r.Dropoff)
		}
		t.routes[routeKey(r.Pickup, r.Dropoff)] = r
	}
	return t, nil
}

// DefaultRoutes are the alpine airport transfers priced out of the box.
func DefaultRoutes() []Route {
	return []Route{
		{Pickup: "Geneva Airport", Dropoff: "Chamonix", Price: decimal.RequireFromString("230.00")},
		{Pickup: "Zurich Airport", Dropoff: "St. Moritz", Price: decimal.RequireFromString("200.00")},
		{Pickup: "Munich Airport", Dropoff: "Garmisch", Price: decimal.RequireFromString("120.00")},
		{Pickup: "Milan Airport", Dropoff: "Cortina", Price: decimal.RequireFromString("180.00")},
	}
}

// Lookup returns the fixed price for the route.
func (t *RouteTable) Lookup(pickup, dropoff string) (decimal.Decimal, error) {
	r, ok := t.routes[routeKey(pickup, dropoff)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s -> %s", ErrRouteNotFound, pickup, dropoff)
	}
	return r.Price, nil
}

// Len returns the number of routes.
func (t *RouteTable) Len() int {
	return len(t.routes)
}

// Pricer resolves a price from the route table, falling back to the
// distance formula when a distance is given.
type Pricer struct {
	Calculator Calculator
	Routes     *RouteTable
}

// Price prefers a fixed route price. distanceKm is used only when the route
// is not in the table; a nil distance with an unknown route is an error.
func (p Pricer) Price(pickup, dropoff string, distanceKm *decimal.Decimal) (decimal.Decimal, error) {
	if p.Routes != nil {
		price, err := p.Routes.Lookup(pickup, dropoff)
		if err == nil {
			return price, nil
		}
		if distanceKm == nil {
			return decimal.Zero, err
		}
	}
	if distanceKm == nil {
		return decimal.Zero, fmt.Errorf("%w: %s -> %s and no distance given", ErrRouteNotFound, pickup, dropoff)
	}
	return p.Calculator.Quote(*distanceKm)
}
