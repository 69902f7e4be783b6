// Package aliases assembles the team and league alias tables from the
// builtin defaults and the configured override sources.
package aliases

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/alanyoungcy/crossarb/internal/matching"
)

// LoaderConfig selects the override sources. Unset sources are skipped.
type LoaderConfig struct {
	// File is a TOML file with [teams] and [leagues] tables.
	File string
	// Store reads the Postgres alias tables.
	Store domain.AliasStore
	// Blobs and S3Key locate a JSON object {"teams":{},"leagues":{}}.
	Blobs  domain.BlobReader
	S3Key  string
	Logger *slog.Logger
}

// Loader merges builtin, file, Postgres and S3 tables in that order; later
// sources override earlier keys.
type Loader struct {
	cfg    LoaderConfig
	logger *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(cfg LoaderConfig) *Loader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loader{cfg: cfg, logger: logger.With(slog.String("component", "aliases"))}
}

type source struct {
	name string
	load func(ctx context.Context) (domain.AliasTables, error)
}

func (l *Loader) sources() []source {
	var out []source
	if l.cfg.File != "" {
		out = append(out, source{"file", func(context.Context) (domain.AliasTables, error) {
			return ReadFile(l.cfg.File)
		}})
	}
	if l.cfg.Store != nil {
		out = append(out, source{"postgres", l.cfg.Store.LoadAliases})
	}
	if l.cfg.Blobs != nil && l.cfg.S3Key != "" {
		out = append(out, source{"s3", l.readBlob})
	}
	return out
}

// Load returns the merged tables. A configured source that fails to load is
// an error.
func (l *Loader) Load(ctx context.Context) (domain.AliasTables, error) {
	tables := matching.DefaultTables()
	for _, src := range l.sources() {
		t, err := src.load(ctx)
		if err != nil {
			return domain.AliasTables{}, fmt.Errorf("aliases: load %s: %w", src.name, err)
		}
		teams, leagues := Merge(&tables, t)
		l.logger.InfoContext(ctx, "alias overrides loaded",
			slog.String("source", src.name),
			slog.Int("teams", teams),
			slog.Int("leagues", leagues),
		)
	}
	return tables, nil
}

func (l *Loader) readBlob(ctx context.Context) (domain.AliasTables, error) {
	body, err := l.cfg.Blobs.Get(ctx, l.cfg.S3Key)
	if err != nil {
		return domain.AliasTables{}, err
	}
	defer body.Close()

	var t domain.AliasTables
	if err := json.NewDecoder(body).Decode(&t); err != nil {
		return domain.AliasTables{}, fmt.Errorf("decode %s: %w", l.cfg.S3Key, err)
	}
	return t, nil
}

// ReadFile decodes a TOML alias file.
func ReadFile(path string) (domain.AliasTables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.AliasTables{}, err
	}
	var t domain.AliasTables
	if err := toml.Unmarshal(data, &t); err != nil {
		return domain.AliasTables{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return t, nil
}

// Merge copies src over dst, folding team entries to lower case and league
// entries to upper case. Blank keys or values are ignored. It returns how
// many entries of each table were applied.
func Merge(dst *domain.AliasTables, src domain.AliasTables) (teams, leagues int) {
	if dst.Teams == nil {
		dst.Teams = make(map[string]string)
	}
	if dst.Leagues == nil {
		dst.Leagues = make(map[string]string)
	}
	for k, v := range src.Teams {
		k, v = fold(k, strings.ToLower), fold(v, strings.ToLower)
		if k == "" || v == "" {
			continue
		}
		dst.Teams[k] = v
		teams++
	}
	for k, v := range src.Leagues {
		k, v = fold(k, strings.ToUpper), fold(v, strings.ToUpper)
		if k == "" || v == "" {
			continue
		}
		dst.Leagues[k] = v
		leagues++
	}
	return teams, leagues
}

func fold(s string, f func(string) string) string {
	return f(strings.Join(strings.Fields(s), " "))
}
