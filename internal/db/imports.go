package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoImport is returned when no successful import matches a route name.
var ErrNoImport = errors.New("no successful route import")

// RouteImport is one row of public.latest_successful_imports.
type RouteImport struct {
	DBName     string
	ImportedAt time.Time
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// routePattern matches database names containing route literally.
func routePattern(route string) string {
	return "%" + likeEscaper.Replace(route) + "%"
}

const latestImportQuery = `
SELECT db_name, imported_at
FROM public.latest_successful_imports
WHERE db_name ILIKE $1 ESCAPE '\'
ORDER BY (lower(db_name) = lower($2)) DESC, imported_at DESC
LIMIT 1`

// LatestRouteImport finds the newest import whose database name contains
// route. A database named exactly after the route wins over newer partial
// matches. meta must be connected to the cluster's MetaDatabase.
func LatestRouteImport(ctx context.Context, meta *sql.DB, route string) (RouteImport, error) {
	route = strings.TrimSpace(route)
	if route == "" {
		return RouteImport{}, fmt.Errorf("route name is required")
	}
	var (
		name sql.NullString
		at   sql.NullTime
	)
	err := meta.QueryRowContext(ctx, latestImportQuery, routePattern(route), route).Scan(&name, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return RouteImport{}, fmt.Errorf("%w for route %q", ErrNoImport, route)
	}
	if err != nil {
		return RouteImport{}, fmt.Errorf("query latest import for route %q: %w", route, err)
	}
	if !name.Valid || strings.TrimSpace(name.String) == "" {
		return RouteImport{}, fmt.Errorf("%w for route %q: empty db_name", ErrNoImport, route)
	}
	return RouteImport{DBName: strings.TrimSpace(name.String), ImportedAt: at.Time}, nil
}
