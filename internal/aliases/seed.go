package aliases

import (
	"context"
	"fmt"
	"sort"

	"github.com/alanyoungcy/crossarb/internal/domain"
)

// Writer stores alias entries; the Postgres alias store implements it.
type Writer interface {
	UpsertTeamAlias(ctx context.Context, alias, canonical string) error
	UpsertLeagueMapping(ctx context.Context, code, league string) error
}

// Seed writes every entry of the TOML file at path to w, in key order.
func Seed(ctx context.Context, path string, w Writer) (teams, leagues int, err error) {
	raw, err := ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("aliases: seed: %w", err)
	}
	var t domain.AliasTables
	Merge(&t, raw)

	for _, k := range sortedKeys(t.Teams) {
		if err := w.UpsertTeamAlias(ctx, k, t.Teams[k]); err != nil {
			return teams, leagues, fmt.Errorf("aliases: seed: %w", err)
		}
		teams++
	}
	for _, k := range sortedKeys(t.Leagues) {
		if err := w.UpsertLeagueMapping(ctx, k, t.Leagues[k]); err != nil {
			return teams, leagues, fmt.Errorf("aliases: seed: %w", err)
		}
		leagues++
	}
	return teams, leagues, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
