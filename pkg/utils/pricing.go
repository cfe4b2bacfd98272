package utils

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MaxRatePerMile caps what a driver may charge per route mile, in USD
	MaxRatePerMile = 0.70
)

// cityDistances maps supported city pairs to their road distance in miles.
// Both directions of a pair resolve to the same distance.
var cityDistances = map[string]float64{
	"Gainesville-Orlando": 119,
	"Gainesville-Tampa":   131,
	"Gainesville-Miami":   338,
	"Orlando-Tampa":       85,
	"Orlando-Miami":       230,
	"Tampa-Miami":         280,
}

// passengerPricingTiers maps seat count (capped at 3) to the fraction of
// the driver's asking price the passenger pays.
var passengerPricingTiers = map[int]float64{
	1: 0.70,
	2: 0.90,
	3: 1.00,
}

var (
	ErrRouteUnsupported = errors.New("route not supported")
	ErrPriceExceedsMax  = errors.New("price exceeds maximum for this route")
)

// PassengerPricingBreakdown is what a passenger sees before paying.
// TotalCost is the authoritative charge; PricePerSeat is display only and
// may differ from TotalCost/seats by a cent due to rounding.
type PassengerPricingBreakdown struct {
	TotalCost          float64 `json:"totalCost"`
	PricePerSeat       float64 `json:"pricePerSeat"`
	DiscountPercentage float64 `json:"discountPercentage"`
	Savings            float64 `json:"savings"`
}

// DriverPricingBreakdown shows a driver what passengers would pay at each tier
type DriverPricingBreakdown struct {
	OneSeat              float64 `json:"oneSeat"`
	TwoSeats             float64 `json:"twoSeats"`
	ThreeSeats           float64 `json:"threeSeats"`
	OneSeatPercentage    float64 `json:"onePassengerPercentage"`
	TwoSeatsPercentage   float64 `json:"twoPassengerPercentage"`
	ThreeSeatsPercentage float64 `json:"threePassengerPercentage"`
}

// PlatformFees is the margin the platform keeps per tier. The driver always
// receives the full asking price.
type PlatformFees struct {
	OneSeatFee     float64 `json:"oneSeatFee"`
	TwoSeatFee     float64 `json:"twoSeatFee"`
	ThreeSeatFee   float64 `json:"threeSeatFee"`
	DriverReceives float64 `json:"driverReceives"`
}

// PriceValidation is the result of checking a driver's asking price
type PriceValidation struct {
	IsValid  bool    `json:"isValid"`
	Error    string  `json:"error,omitempty"`
	MaxPrice float64 `json:"maxPrice"`
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Cents converts a 2-decimal dollar amount to integer cents for the
// payment processor, guarding against float drift.
func Cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// DistanceBetweenCities returns the road distance in miles for a supported
// city pair, or false if the pair is not in the table. There is no geocoding
// fallback.
func DistanceBetweenCities(fromCity, toCity string) (float64, bool) {
	if d, ok := cityDistances[fromCity+"-"+toCity]; ok {
		return d, true
	}
	if d, ok := cityDistances[toCity+"-"+fromCity]; ok {
		return d, true
	}
	return 0, false
}

// MaxDriverPrice returns the highest asking price allowed for the route
func MaxDriverPrice(fromCity, toCity string) (float64, error) {
	distance, ok := DistanceBetweenCities(fromCity, toCity)
	if !ok {
		return 0, ErrRouteUnsupported
	}
	return roundCents(distance * MaxRatePerMile), nil
}

// PassengerCost computes the passenger's total charge for the given seat
// count. Seats beyond 3 pay the full asking price. The result is rounded to
// cents independently of any per-seat figure.
func PassengerCost(driverPrice float64, seats int) float64 {
	tier := seats
	if tier > 3 {
		tier = 3
	}
	if tier < 1 {
		tier = 1
	}
	return roundCents(driverPrice * passengerPricingTiers[tier])
}

// PricePerSeat is a display quantity only; the authoritative charge is the
// total cost passed in, not PricePerSeat multiplied back out.
func PricePerSeat(totalCost float64, seats int) float64 {
	if seats < 1 {
		seats = 1
	}
	return roundCents(totalCost / float64(seats))
}

// GetPassengerPricingBreakdown computes the full quote for a booking
func GetPassengerPricingBreakdown(driverPrice float64, seats int) PassengerPricingBreakdown {
	tier := seats
	if tier > 3 {
		tier = 3
	}
	if tier < 1 {
		tier = 1
	}
	totalCost := PassengerCost(driverPrice, seats)
	return PassengerPricingBreakdown{
		TotalCost:          totalCost,
		PricePerSeat:       PricePerSeat(totalCost, seats),
		DiscountPercentage: passengerPricingTiers[tier],
		Savings:            roundCents(driverPrice - totalCost),
	}
}

// GetDriverPricingBreakdown shows what passengers pay at one, two and three
// or more seats for a given asking price
func GetDriverPricingBreakdown(driverPrice float64) DriverPricingBreakdown {
	return DriverPricingBreakdown{
		OneSeat:              PassengerCost(driverPrice, 1),
		TwoSeats:             PassengerCost(driverPrice, 2),
		ThreeSeats:           PassengerCost(driverPrice, 3),
		OneSeatPercentage:    passengerPricingTiers[1],
		TwoSeatsPercentage:   passengerPricingTiers[2],
		ThreeSeatsPercentage: passengerPricingTiers[3],
	}
}

// GetPlatformFees reports the platform margin per tier
func GetPlatformFees(driverPrice float64) PlatformFees {
	return PlatformFees{
		OneSeatFee:     roundCents(driverPrice - PassengerCost(driverPrice, 1)),
		TwoSeatFee:     roundCents(driverPrice - PassengerCost(driverPrice, 2)),
		ThreeSeatFee:   roundCents(driverPrice - PassengerCost(driverPrice, 3)),
		DriverReceives: driverPrice,
	}
}

// ValidateDriverPrice checks a proposed asking price against the route cap
func ValidateDriverPrice(price float64, fromCity, toCity string) (PriceValidation, error) {
	maxPrice, err := MaxDriverPrice(fromCity, toCity)
	if err != nil {
		return PriceValidation{IsValid: false, Error: "Route not supported"}, ErrRouteUnsupported
	}
	if price > maxPrice {
		return PriceValidation{
			IsValid:  false,
			Error:    fmt.Sprintf("Price cannot exceed $%.2f for this route", maxPrice),
			MaxPrice: maxPrice,
		}, ErrPriceExceedsMax
	}
	return PriceValidation{IsValid: true, MaxPrice: maxPrice}, nil
}

// SupportedCities returns the cities present in the distance table
func SupportedCities() []string {
	seen := make(map[string]bool)
	var cities []string
	for key := range cityDistances {
		for i := 0; i < len(key); i++ {
			if key[i] == '-' {
				for _, c := range []string{key[:i], key[i+1:]} {
					if !seen[c] {
						seen[c] = true
						cities = append(cities, c)
					}
				}
				break
			}
		}
	}
	return cities
}
