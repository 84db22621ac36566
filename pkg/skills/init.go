package skills

import (
	"context"
	"sort"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillgraph/pkg/logger"
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
)

// Config controls where skills are discovered and which of them are kept
type Config struct {
	Dirs        []string `mapstructure:"dirs" json:"dirs" yaml:"dirs"`
	PluginDirs  []string `mapstructure:"plugin_dirs" json:"plugin_dirs" yaml:"plugin_dirs"`
	Allowed     []string `mapstructure:"allowed" json:"allowed" yaml:"allowed"`
	Concurrency int      `mapstructure:"concurrency" json:"concurrency" yaml:"concurrency"`
}

// Options converts the config into discovery options. With no directories
// configured the default locations are used.
func (c Config) Options() []Option {
	if len(c.Dirs) == 0 && len(c.PluginDirs) == 0 {
		opts := []Option{WithDefaultDirs()}
		if c.Concurrency > 0 {
			opts = append(opts, WithConcurrency(c.Concurrency))
		}
		return opts
	}

	opts := []Option{WithSkillDirs(c.Dirs...), WithPluginDirs(c.PluginDirs...)}
	if c.Concurrency > 0 {
		opts = append(opts, WithConcurrency(c.Concurrency))
	}
	return opts
}

// Load discovers skills according to the config and applies the allowlist.
// Per-bundle load failures are logged and do not fail the load.
func Load(ctx context.Context, cfg Config) (map[string]*Skill, error) {
	discovery, err := NewDiscovery(cfg.Options()...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create skill discovery")
	}

	allSkills, err := discovery.DiscoverSkills(ctx)
	if allSkills == nil {
		return nil, err
	}
	if err != nil {
		logger.G(ctx).WithError(err).Warn("some skills failed to load")
	}

	if len(cfg.Allowed) > 0 {
		allSkills = FilterByAllowlist(allSkills, cfg.Allowed)
	}

	logger.G(ctx).WithField("count", len(allSkills)).Debug("skills loaded")
	return allSkills, nil
}

// FilterByAllowlist keeps the skills whose name matches one of the allowed
// patterns. Patterns use glob syntax with '/' as separator, so "acme/*"
// matches every skill of a plugin. An empty allowlist keeps everything.
func FilterByAllowlist(skills map[string]*Skill, allowed []string) map[string]*Skill {
	if len(allowed) == 0 {
		return skills
	}

	type matcher func(string) bool
	matchers := make([]matcher, 0, len(allowed))
	for _, pattern := range allowed {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			exact := pattern
			matchers = append(matchers, func(name string) bool { return name == exact })
			continue
		}
		matchers = append(matchers, g.Match)
	}

	filtered := make(map[string]*Skill)
	for name, skill := range skills {
		for _, m := range matchers {
			if m(name) {
				filtered[name] = skill
				break
			}
		}
	}

	return filtered
}

// Entries returns the catalog entries of the skills sorted by id
func Entries(skills map[string]*Skill) []catalog.Entry {
	entries := make([]catalog.Entry, 0, len(skills))
	for _, s := range skills {
		entries = append(entries, s.Entry())
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}
