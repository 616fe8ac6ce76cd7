package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoCities is returned when the city catalog is empty.
var ErrNoCities = errors.New("no cities available")

// CityRepository handles the city catalog for the word-chain game.
type CityRepository struct {
	pool *pgxpool.Pool
}

// NewCityRepository creates a new CityRepository instance.
func NewCityRepository(pool *pgxpool.Pool) *CityRepository {
	return &CityRepository{pool: pool}
}

// Exists reports whether a city with the given name is in the catalog.
// Matching is case-insensitive.
func (r *CityRepository) Exists(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM cities WHERE lower(name) = lower($1))`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check city: %w", err)
	}
	return exists, nil
}

// StartingWith returns up to limit city names that begin with the given
// letter, excluding the already used names. Exclusion is case-insensitive.
func (r *CityRepository) StartingWith(ctx context.Context, letter string, excluding []string) ([]string, error) {
	const query = `
		SELECT name
		FROM cities
		WHERE upper(substr(name, 1, 1)) = upper($1)
		  AND lower(name) != ALL($2)
		ORDER BY random()
		LIMIT 20
	`

	lowered := make([]string, len(excluding))
	for i, name := range excluding {
		lowered[i] = strings.ToLower(name)
	}

	rows, err := r.pool.Query(ctx, query, letter, lowered)
	if err != nil {
		return nil, fmt.Errorf("failed to get cities: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cities: %w", err)
	}

	return names, nil
}

// RandomStart returns a random city name for the bot's opening move.
// Returns ErrNoCities if the catalog is empty.
func (r *CityRepository) RandomStart(ctx context.Context) (string, error) {
	const query = `SELECT name FROM cities ORDER BY random() LIMIT 1`

	var name string
	err := r.pool.QueryRow(ctx, query).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoCities
		}
		return "", fmt.Errorf("failed to get random city: %w", err)
	}
	return name, nil
}
