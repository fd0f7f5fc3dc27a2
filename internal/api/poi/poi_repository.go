package poi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/alpine-guide/app/observability/metrics"
	"github.com/FACorreiaa/alpine-guide/internal/types"
)

// DBTX is satisfied by *pgxpool.Pool and by pgxmock pools.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Repository = (*PostgresRepository)(nil)

// Repository is the read-only POI source used by the dialogue engine.
type Repository interface {
	TerritoryBySlug(ctx context.Context, slug string) (*types.Territory, error)
	Search(ctx context.Context, territoryID uuid.UUID, filters types.POIFilters, limit int) ([]types.POI, error)
}

type PostgresRepository struct {
	logger *slog.Logger
	db     DBTX
}

func NewPostgresRepository(db DBTX, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, logger: logger}
}

// ErrTerritoryNotFound is wrapped when a slug matches no territory.
var ErrTerritoryNotFound = errors.New("territory not found")

func (r *PostgresRepository) TerritoryBySlug(ctx context.Context, slug string) (*types.Territory, error) {
	ctx, span := otel.Tracer("POIRepository").Start(ctx, "TerritoryBySlug", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("territory.slug", slug),
	))
	defer span.End()

	query := `SELECT id, slug, name FROM territories WHERE slug = $1`

	start := time.Now()
	var t types.Territory
	err := r.db.QueryRow(ctx, query, strings.ToLower(slug)).Scan(&t.ID, &t.Slug, &t.Name)
	r.observe(ctx, "territory_by_slug", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Error, "territory not found")
		return nil, fmt.Errorf("territory %q: %w", slug, ErrTerritoryNotFound)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("%w: territory %q: %v", types.ErrRepositoryUnavailable, slug, err)
	}
	return &t, nil
}

// Search returns POIs of the territory matching every non-empty filter.
// Types match case-insensitively; keywords match name or description.
func (r *PostgresRepository) Search(ctx context.Context, territoryID uuid.UUID, filters types.POIFilters, limit int) ([]types.POI, error) {
	ctx, span := otel.Tracer("POIRepository").Start(ctx, "Search", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("territory.id", territoryID.String()),
		attribute.StringSlice("filter.types", filters.Types),
		attribute.StringSlice("filter.keywords", filters.Keywords),
	))
	defer span.End()

	if limit <= 0 {
		limit = DefaultLimit
	}
	query := `
		SELECT id, name, type, COALESCE(description, ''), COALESCE(address, ''),
		       latitude, longitude, COALESCE(gmaps_url, ''), COALESCE(apple_url, ''), start_date
		FROM pois
		WHERE territory_id = $1
		  AND (cardinality($2::text[]) = 0 OR lower(type) = ANY($2))
		  AND (cardinality($3::text[]) = 0 OR name ILIKE ANY($3) OR description ILIKE ANY($3))
		ORDER BY name
		LIMIT $4`

	start := time.Now()
	rows, err := r.db.Query(ctx, query, territoryID, lowerAll(filters.Types), likePatterns(filters.Keywords), limit)
	if err != nil {
		r.observe(ctx, "search", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("%w: search pois: %v", types.ErrRepositoryUnavailable, err)
	}
	defer rows.Close()

	var pois []types.POI
	for rows.Next() {
		var p types.POI
		var google, apple string
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.Description, &p.Address,
			&p.Coordinates.Latitude, &p.Coordinates.Longitude, &google, &apple, &p.StartDate); err != nil {
			r.observe(ctx, "search", start, err)
			span.RecordError(err)
			return nil, fmt.Errorf("%w: scan poi row: %v", types.ErrRepositoryUnavailable, err)
		}
		if google != "" || apple != "" {
			p.MapLinks = &types.MapLinks{GoogleMaps: google, AppleMaps: apple}
		}
		pois = append(pois, p)
	}
	if err := rows.Err(); err != nil {
		r.observe(ctx, "search", start, err)
		span.RecordError(err)
		return nil, fmt.Errorf("%w: iterate poi rows: %v", types.ErrRepositoryUnavailable, err)
	}
	r.observe(ctx, "search", start, nil)

	span.SetAttributes(attribute.Int("pois.count", len(pois)))
	span.SetStatus(codes.Ok, "POIs found")
	r.logger.DebugContext(ctx, "POIs retrieved",
		slog.String("territory_id", territoryID.String()),
		slog.Int("count", len(pois)))
	return pois, nil
}

func (r *PostgresRepository) observe(ctx context.Context, op string, start time.Time, err error) {
	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("db.operation", op))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func likePatterns(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		k = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(k)
		out = append(out, "%"+k+"%")
	}
	return out
}
