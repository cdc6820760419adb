package filter

import (
	"math"
	"strings"
	"time"

	"github.com/s0up4200/wialon/wialon"
)

const earthRadiusKm = 6371.0

// Unit is the flattened view of a Wialon item that expressions see
type Unit struct {
	ID          int64
	Name        string
	Class       int
	HWType      int64
	UniqueID    string
	Phone       string
	CreatorID   int64
	UserAccess  int64
	HasPosition bool
	Lat         float64
	Lon         float64
	Altitude    float64
	Speed       int
	Course      int
	Satellites  int
	LastSeen    time.Time
}

// NewUnit flattens an item. Position fields stay zero when the item has no
// position.
func NewUnit(item wialon.Item) Unit {
	unit := Unit{
		ID:         item.ID,
		Name:       item.Name,
		Class:      item.Class,
		HWType:     item.HWType,
		UniqueID:   item.UniqueID,
		Phone:      item.Phone,
		CreatorID:  item.CreatorID,
		UserAccess: item.UserAccess,
	}

	if pos := item.Position; pos != nil {
		unit.HasPosition = true
		unit.Lat = pos.Lat
		unit.Lon = pos.Lon
		unit.Altitude = pos.Altitude
		unit.Speed = pos.Speed
		unit.Course = pos.Course
		unit.Satellites = pos.Satellites
		unit.LastSeen = pos.GetTime()
	}

	return unit
}

// distanceKm is the great-circle distance between two points
func distanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// newEnv builds the expression environment for one unit
func newEnv(unit Unit) map[string]any {
	return map[string]any{
		"Unit": unit,

		// Direct unit properties for convenience
		"ID":          unit.ID,
		"Name":        unit.Name,
		"Class":       unit.Class,
		"HWType":      unit.HWType,
		"UniqueID":    unit.UniqueID,
		"Phone":       unit.Phone,
		"CreatorID":   unit.CreatorID,
		"HasPosition": unit.HasPosition,
		"Lat":         unit.Lat,
		"Lon":         unit.Lon,
		"Altitude":    unit.Altitude,
		"Speed":       unit.Speed,
		"Course":      unit.Course,
		"Satellites":  unit.Satellites,
		"LastSeen":    unit.LastSeen,

		// Position helpers
		"distanceTo": func(lat, lon float64) float64 {
			if !unit.HasPosition {
				return -1
			}
			return distanceKm(unit.Lat, unit.Lon, lat, lon)
		},
		"within": func(lat, lon, km float64) bool {
			return unit.HasPosition && distanceKm(unit.Lat, unit.Lon, lat, lon) <= km
		},
		"moving": func() bool {
			return unit.HasPosition && unit.Speed > 0
		},
		"silentFor": func(hours int) bool {
			if unit.LastSeen.IsZero() {
				return true
			}
			return time.Since(unit.LastSeen) >= time.Duration(hours)*time.Hour
		},

		// Date helpers
		"hoursSince": func(t time.Time) int {
			return int(time.Since(t).Hours())
		},
		"daysSince": func(t time.Time) int {
			return int(time.Since(t).Hours() / 24)
		},
		"daysAgo": func(days int) time.Time {
			return time.Now().AddDate(0, 0, -days)
		},
		"parseDate": func(dateStr string) time.Time {
			t, _ := time.Parse("2006-01-02", dateStr)
			return t
		},
		"now": time.Now,

		// String helpers, case insensitive. The operators contains,
		// startsWith and endsWith stay available for exact matching.
		"includes": func(str, substr string) bool {
			return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
		},
		"hasPrefix": func(str, prefix string) bool {
			return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
		},
		"hasSuffix": func(str, suffix string) bool {
			return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
		},
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
	}
}
