package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"
	"googlemaps.github.io/maps"
)

var ErrNoRoute = errors.New("no route found")

// Route is the directions result the app consumes
type Route struct {
	DistanceText    string  `json:"distanceText"`
	DistanceMeters  int     `json:"distanceMeters"`
	DurationText    string  `json:"durationText"`
	DurationSeconds int     `json:"durationSeconds"`
	Polyline        string  `json:"polyline"`
	StartLat        float64 `json:"startLat"`
	StartLng        float64 `json:"startLng"`
	EndLat          float64 `json:"endLat"`
	EndLng          float64 `json:"endLng"`
}

// DirectionsService fetches driving routes from Google Maps, with results
// cached in Redis for 24 hours. Cache failures degrade to a live lookup.
type DirectionsService struct {
	client *maps.Client
}

func NewDirectionsService() (*DirectionsService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(os.Getenv("GOOGLE_MAPS_API_KEY")))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &DirectionsService{client: client}, nil
}

// RouteByCoords returns the driving route between two coordinate pairs
func (s *DirectionsService) RouteByCoords(ctx context.Context, fromLat, fromLng, toLat, toLng float64) (*Route, error) {
	key := DirectionsCacheKeyCoords(fromLat, fromLng, toLat, toLng)
	origin := fmt.Sprintf("%f,%f", fromLat, fromLng)
	dest := fmt.Sprintf("%f,%f", toLat, toLng)
	return s.route(ctx, key, origin, dest)
}

// RouteByCities returns the driving route between two city names
func (s *DirectionsService) RouteByCities(ctx context.Context, fromCity, toCity string) (*Route, error) {
	key := DirectionsCacheKeyCities(fromCity, toCity)
	return s.route(ctx, key, fromCity+", FL", toCity+", FL")
}

func (s *DirectionsService) route(ctx context.Context, cacheKey, origin, dest string) (*Route, error) {
	var cached Route
	err := GetCachedRoute(ctx, cacheKey, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, redis.Nil) && !errors.Is(err, ErrCacheUnavailable) {
		log.Printf("Directions cache read failed for %s: %v", cacheKey, err)
	}

	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: dest,
		Mode:        maps.TravelModeDriving,
		Region:      "us",
	}
	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	route := &Route{
		DistanceText:    leg.Distance.HumanReadable,
		DistanceMeters:  leg.Distance.Meters,
		DurationText:    leg.Duration.String(),
		DurationSeconds: int(leg.Duration.Seconds()),
		Polyline:        routes[0].OverviewPolyline.Points,
		StartLat:        leg.StartLocation.Lat,
		StartLng:        leg.StartLocation.Lng,
		EndLat:          leg.EndLocation.Lat,
		EndLng:          leg.EndLocation.Lng,
	}

	if err := SetCachedRoute(ctx, cacheKey, route); err != nil && !errors.Is(err, ErrCacheUnavailable) {
		log.Printf("Directions cache write failed for %s: %v", cacheKey, err)
	}
	return route, nil
}
