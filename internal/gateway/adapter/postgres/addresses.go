package postgres

import (
	"context"
	"fmt"

	"observe/internal/domain"
)

// Allowed reports whether origin matches a stored LIKE pattern.
func (s *Store) Allowed(ctx context.Context, origin string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM addresses WHERE $1 LIKE address)`, origin).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("matching origin: %w", dbError(err))
	}
	return ok, nil
}

// ListAddresses returns every allow-list entry ordered by pattern.
func (s *Store) ListAddresses(ctx context.Context) ([]domain.AddressAllowEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT address FROM addresses ORDER BY address`)
	if err != nil {
		return nil, dbError(err)
	}
	defer rows.Close()

	var entries []domain.AddressAllowEntry
	for rows.Next() {
		var e domain.AddressAllowEntry
		if err := rows.Scan(&e.Pattern); err != nil {
			return nil, dbError(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err)
	}
	return entries, nil
}

// AddAddress stores pattern. Adding an existing pattern is a no-op.
func (s *Store) AddAddress(ctx context.Context, pattern string) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO addresses (address) VALUES ($1) ON CONFLICT (address) DO NOTHING`, pattern); err != nil {
		return fmt.Errorf("adding address %q: %w", pattern, dbError(err))
	}
	return nil
}

// RemoveAddress deletes pattern.
func (s *Store) RemoveAddress(ctx context.Context, pattern string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM addresses WHERE address = $1`, pattern)
	if err != nil {
		return fmt.Errorf("removing address %q: %w", pattern, dbError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("address %q: %w", pattern, domain.ErrNotFound)
	}
	return nil
}
