package wialon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultGeocodeURL is the base of the Wialon reverse geocoding service
	DefaultGeocodeURL = "https://geocode-maps.wialon.com"
	// DefaultGeocodeFlags selects the address format returned by the geocoder
	DefaultGeocodeFlags int64 = 1255211008

	svcGeocode = "gis_geocode"
)

// Coordinate is a point to reverse geocode
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinate) validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return usageErrorf(svcGeocode, ErrInvalidParams, "latitude %v out of range", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return usageErrorf(svcGeocode, ErrInvalidParams, "longitude %v out of range", c.Lon)
	}
	return nil
}

// ReverseGeocode returns the address of a single point.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64, flags int64) (string, error) {
	addresses, err := c.ReverseGeocodeMany(ctx, []Coordinate{{Lat: lat, Lon: lon}}, flags)
	if err != nil {
		return "", err
	}
	return addresses[0], nil
}

// ReverseGeocodeMany returns one address per point, in order. A zero flags
// value uses DefaultGeocodeFlags.
func (c *Client) ReverseGeocodeMany(ctx context.Context, coords []Coordinate, flags int64) ([]string, error) {
	if len(coords) == 0 {
		return nil, usageErrorf(svcGeocode, ErrInvalidParams, "at least one coordinate is required")
	}
	for _, coord := range coords {
		if err := coord.validate(); err != nil {
			return nil, err
		}
	}
	if c.sessionID == "" {
		return nil, usageErrorf(svcGeocode, ErrNotAuthenticated, "login is required before reverse geocoding")
	}
	if c.userID == 0 {
		return nil, usageErrorf(svcGeocode, ErrUserIDUnknown, "session was resumed without a user id, set it with WithUserID")
	}
	if flags == 0 {
		flags = DefaultGeocodeFlags
	}

	encoded, err := json.Marshal(coords)
	if err != nil {
		return nil, usageErrorf(svcGeocode, ErrInvalidParams, "failed to encode coordinates: %v", err)
	}

	query := url.Values{}
	query.Set("coords", string(encoded))
	query.Set("flags", strconv.FormatInt(flags, 10))
	query.Set("uid", strconv.FormatInt(c.userID, 10))

	endpoint := strings.TrimRight(c.geocodeURL, "/") + "/" + url.PathEscape(c.host) + "/" + svcGeocode
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, usageErrorf(svcGeocode, ErrInvalidConfig, "failed to create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug().
		Int("points", len(coords)).
		Int64("flags", flags).
		Msg("Reverse geocoding")

	raw, err := c.roundTrip(svcGeocode, req)
	if err != nil {
		return nil, err
	}

	var addresses []string
	if err := decodeInto(svcGeocode, raw, &addresses); err != nil {
		return nil, err
	}
	if len(addresses) != len(coords) {
		return nil, &ProtocolError{
			Svc:        svcGeocode,
			StatusCode: http.StatusOK,
			Message:    "geocoder returned " + strconv.Itoa(len(addresses)) + " addresses for " + strconv.Itoa(len(coords)) + " points",
			Body:       raw,
		}
	}
	return addresses, nil
}
