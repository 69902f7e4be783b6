package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

var _ domain.AliasStore = (*AliasStore)(nil)

// AliasStore reads the team_aliases and league_mappings tables.
type AliasStore struct {
	pool *pgxpool.Pool
}

// NewAliasStore creates an AliasStore.
func NewAliasStore(pool *pgxpool.Pool) *AliasStore {
	return &AliasStore{pool: pool}
}

// LoadAliases returns both tables. Team keys are lower-cased and league keys
// upper-cased; rows with an empty key or value are skipped.
func (s *AliasStore) LoadAliases(ctx context.Context) (domain.AliasTables, error) {
	teams, err := s.loadPairs(ctx, `SELECT alias, canonical FROM team_aliases ORDER BY alias`, strings.ToLower)
	if err != nil {
		return domain.AliasTables{}, fmt.Errorf("postgres: load team_aliases: %w", err)
	}
	leagues, err := s.loadPairs(ctx, `SELECT code, league FROM league_mappings ORDER BY code`, strings.ToUpper)
	if err != nil {
		return domain.AliasTables{}, fmt.Errorf("postgres: load league_mappings: %w", err)
	}
	return domain.AliasTables{Teams: teams, Leagues: leagues}, nil
}

// UpsertTeamAlias inserts or replaces one team alias.
func (s *AliasStore) UpsertTeamAlias(ctx context.Context, alias, canonical string) error {
	const query = `
		INSERT INTO team_aliases (alias, canonical) VALUES ($1, $2)
		ON CONFLICT (alias) DO UPDATE SET canonical = EXCLUDED.canonical, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, query, strings.ToLower(strings.TrimSpace(alias)), canonical); err != nil {
		return fmt.Errorf("postgres: upsert team alias %q: %w", alias, err)
	}
	return nil
}

// UpsertLeagueMapping inserts or replaces one league code.
func (s *AliasStore) UpsertLeagueMapping(ctx context.Context, code, league string) error {
	const query = `
		INSERT INTO league_mappings (code, league) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET league = EXCLUDED.league, updated_at = NOW()`
	if _, err := s.pool.Exec(ctx, query, strings.ToUpper(strings.TrimSpace(code)), league); err != nil {
		return fmt.Errorf("postgres: upsert league mapping %q: %w", code, err)
	}
	return nil
}

func (s *AliasStore) loadPairs(ctx context.Context, query string, fold func(string) string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	var k, v string
	_, err = pgx.ForEachRow(rows, []any{&k, &v}, func() error {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out[fold(k)] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
