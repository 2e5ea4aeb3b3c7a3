package domain

import (
	"context"
	"fmt"
	"log/slog"
)

// LocationQuery describes where an alert is about. Either City or GPS is expected.
type LocationQuery struct {
	City   string `json:"city,omitempty"`
	Region string `json:"region,omitempty"`
	// Coords are caller-known coordinates for City, e.g. from a weather lookup.
	Coords *GPS `json:"coords,omitempty"`
	// GPS is the device position; it takes precedence over City.
	GPS *GPS `json:"gps,omitempty"`
}

// ResolvedLocation is a LocationQuery after optional geocoding.
type ResolvedLocation struct {
	Label string
	// Coords feed the classifier; nil when nothing supplied or found them.
	Coords *GPS
	// FromDevice is true when Coords came from device geolocation.
	FromDevice bool
	// Source is "forward", "reverse", "original" or "failed".
	Source string
}

// ResolveLocation fills in a display label and coordinates for q.
// A nil geocoder or a geocoding failure degrades to the caller's own values.
func ResolveLocation(ctx context.Context, q LocationQuery, geocoder Geocoder, logger *slog.Logger) ResolvedLocation {
	res := ResolvedLocation{Label: q.City, Coords: q.Coords, Source: "original"}

	// Device position: coordinates are authoritative, reverse geocode for a label.
	if q.GPS != nil {
		gps := *q.GPS
		res.Coords = &gps
		res.FromDevice = true
		if res.Label == "" {
			res.Label = fmt.Sprintf("%.4f, %.4f", gps.Lat, gps.Lon)
		}
		if geocoder == nil {
			return res
		}
		result, err := geocoder.ReverseGeocode(ctx, gps.Lat, gps.Lon)
		if err != nil {
			logger.Warn("reverse geocoding failed", "lat", gps.Lat, "lon", gps.Lon, "error", err)
			res.Source = "failed"
			return res
		}
		if result.PlaceName != "" {
			res.Label = result.PlaceName
			res.Source = "reverse"
		}
		return res
	}

	// City lookup: forward geocode only when coordinates are still unknown.
	if geocoder == nil || q.City == "" || q.Coords != nil {
		return res
	}
	result, err := geocoder.ForwardGeocode(ctx, q.City, q.Region)
	if err != nil {
		logger.Warn("forward geocoding failed", "city", q.City, "region", q.Region, "error", err)
		res.Source = "failed"
		return res
	}
	if result.Lat != 0 || result.Lon != 0 {
		res.Coords = &GPS{Lat: result.Lat, Lon: result.Lon}
		if result.PlaceName != "" {
			res.Label = result.PlaceName
		}
		res.Source = "forward"
	}
	return res
}
