package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"waypoint-tracker/internal/route"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// waypointRow mirrors one row of the waypoints table; every column is nullable.
type waypointRow struct {
	City, Region          sql.NullString
	Lat, Lon              sql.NullFloat64
	Ordinal               sql.NullFloat64
	ApproachStart         sql.NullFloat64
	ArrivedAt, DepartedAt sql.NullFloat64
	ItemsA, ItemsB        sql.NullFloat64
	Timezone              sql.NullString
	Population            sql.NullFloat64
	PopulationYear        sql.NullString
	Elevation             sql.NullFloat64
	AttributionURL        sql.NullString
}

func (r waypointRow) waypoint() route.Waypoint {
	return route.Waypoint{
		City:           strings.TrimSpace(r.City.String),
		Region:         strings.TrimSpace(r.Region.String),
		Lat:            nullNum(r.Lat),
		Lon:            nullNum(r.Lon),
		Ordinal:        nullNum(r.Ordinal),
		ApproachStart:  nullNum(r.ApproachStart),
		ArrivedAt:      nullNum(r.ArrivedAt),
		DepartedAt:     nullNum(r.DepartedAt),
		ItemsA:         nullNum(r.ItemsA),
		ItemsB:         nullNum(r.ItemsB),
		Timezone:       strings.TrimSpace(r.Timezone.String),
		Population:     nullNum(r.Population),
		PopulationYear: strings.TrimSpace(r.PopulationYear.String),
		Elevation:      nullNum(r.Elevation),
		AttributionURL: strings.TrimSpace(r.AttributionURL.String),
	}
}

func nullNum(n sql.NullFloat64) float64 {
	if !n.Valid {
		return math.NaN()
	}
	return n.Float64
}

// waypointsQuery selects the itinerary. Coordinates come from latitude and
// longitude columns, or from a PostGIS location column when those are absent.
func waypointsQuery(latLon bool) string {
	coords := `latitude, longitude`
	if !latLon {
		coords = `ST_Y(location::geometry), ST_X(location::geometry)`
	}
	return `SELECT city, region, ` + coords + `, ordinal,
                   approach_start, arrived_at, departed_at,
                   items_a, items_b, timezone,
                   population, population_year, elevation_m, attribution_url
            FROM waypoints
            ORDER BY approach_start NULLS LAST, ordinal`
}

// FetchWaypoints loads the whole itinerary from the waypoints table.
func FetchWaypoints(ctx context.Context, db *sql.DB) (route.Table, error) {
	cols, err := hasColumns(ctx, db, "public", "waypoints", "latitude", "longitude", "location")
	if err != nil {
		return nil, fmt.Errorf("introspect waypoints columns: %w", err)
	}
	latLon := cols["latitude"] && cols["longitude"]
	if !latLon && !cols["location"] {
		return nil, fmt.Errorf("waypoints table missing expected columns (latitude/longitude or location)")
	}
	rows, err := db.QueryContext(ctx, waypointsQuery(latLon))
	if err != nil {
		return nil, fmt.Errorf("query waypoints: %w", err)
	}
	defer rows.Close()

	var wps []route.Waypoint
	for rows.Next() {
		var r waypointRow
		if err := rows.Scan(&r.City, &r.Region, &r.Lat, &r.Lon, &r.Ordinal,
			&r.ApproachStart, &r.ArrivedAt, &r.DepartedAt,
			&r.ItemsA, &r.ItemsB, &r.Timezone,
			&r.Population, &r.PopulationYear, &r.Elevation, &r.AttributionURL); err != nil {
			return nil, err
		}
		wps = append(wps, r.waypoint())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(wps) == 0 {
		return nil, route.ErrEmptyRoute
	}
	return route.NewTable(wps), nil
}

// hasColumns returns a map of requested column names to existence for the given table.
func hasColumns(ctx context.Context, db *sql.DB, schema, table string, cols ...string) (map[string]bool, error) {
	res := make(map[string]bool, len(cols))
	if len(cols) == 0 {
		return res, nil
	}
	for _, c := range cols {
		res[c] = false
	}
	q := `SELECT column_name FROM information_schema.columns
          WHERE table_schema = $1 AND table_name = $2 AND column_name = ANY($3)`
	rows, err := db.QueryContext(ctx, q, schema, table, cols)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		res[name] = true
	}
	return res, rows.Err()
}
