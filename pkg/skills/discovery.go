package skills

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"golang.org/x/sync/errgroup"

	"github.com/jingkaihe/skillgraph/pkg/logger"
)

const (
	skillFileName      = "SKILL.md"
	defaultConcurrency = 8
)

// Discovery handles skill discovery from configured directories
type Discovery struct {
	skillDirs   []string
	pluginDirs  []pluginDirConfig
	concurrency int
}

// pluginDirConfig represents a plugin directory with its prefix
type pluginDirConfig struct {
	dir    string
	prefix string
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithSkillDirs sets custom skill directories, highest precedence first
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.skillDirs = dirs
		return nil
	}
}

// WithPluginDirs scans plugin roots for org/repo/skills directories
func WithPluginDirs(roots ...string) Option {
	return func(d *Discovery) error {
		for _, root := range roots {
			d.addPluginDirs(root)
		}
		return nil
	}
}

// WithConcurrency bounds the number of bundles parsed in parallel
func WithConcurrency(n int) Option {
	return func(d *Discovery) error {
		if n < 1 {
			return errors.Errorf("concurrency must be positive, got %d", n)
		}
		d.concurrency = n
		return nil
	}
}

// WithDefaultDirs initializes with default skill directories
func WithDefaultDirs() Option {
	return func(d *Discovery) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		d.skillDirs = []string{
			"./.skillgraph/skills",                          // Repo-local (highest precedence)
			filepath.Join(homeDir, ".skillgraph", "skills"), // User-global
		}

		d.pluginDirs = []pluginDirConfig{}
		d.addPluginDirs("./.skillgraph/plugins")
		d.addPluginDirs(filepath.Join(homeDir, ".skillgraph", "plugins"))

		return nil
	}
}

// addPluginDirs scans a plugins directory and adds all plugin skill directories
// Supports nested org/repo directory structure
func (d *Discovery) addPluginDirs(pluginsDir string) {
	_ = filepath.Walk(pluginsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}

		skillsDir := filepath.Join(path, "skills")
		if _, err := os.Stat(skillsDir); err != nil {
			return nil
		}

		relPath, err := filepath.Rel(pluginsDir, path)
		if err != nil {
			return nil
		}

		d.pluginDirs = append(d.pluginDirs, pluginDirConfig{
			dir:    skillsDir,
			prefix: filepath.ToSlash(relPath) + "/",
		})

		return filepath.SkipDir
	})
}

// NewDiscovery creates a new skill discovery instance
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{concurrency: defaultConcurrency}

	if len(opts) == 0 {
		if err := WithDefaultDirs()(d); err != nil {
			return nil, err
		}
	} else {
		for _, opt := range opts {
			if err := opt(d); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

// bundle is a SKILL.md file found during the scan
type bundle struct {
	path   string
	prefix string
}

// DiscoverSkills finds all available skills from configured directories.
// When the same name appears more than once the first occurrence wins,
// following directory precedence and then path order.
//
// Bundles that fail to load are skipped. The returned error, when non-nil,
// is a *multierror.Error naming each of them; the skills map is valid either way.
func (d *Discovery) DiscoverSkills(ctx context.Context) (map[string]*Skill, error) {
	var bundles []bundle
	for _, dir := range d.skillDirs {
		bundles = append(bundles, findBundles(dir, "")...)
	}
	for _, pluginDir := range d.pluginDirs {
		bundles = append(bundles, findBundles(pluginDir.dir, pluginDir.prefix)...)
	}

	loaded := make([]*Skill, len(bundles))
	failures := make([]error, len(bundles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, b := range bundles {
		i, b := i, b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			skill, err := loadSkill(b.path)
			if err != nil {
				failures[i] = errors.Wrapf(err, "failed to load %s", b.path)
				return nil
			}
			if b.prefix != "" {
				skill.Name = b.prefix + skill.Name
			}
			loaded[i] = skill
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "skill discovery interrupted")
	}

	skills := make(map[string]*Skill)
	var result *multierror.Error
	for i, skill := range loaded {
		if failures[i] != nil {
			result = multierror.Append(result, failures[i])
			continue
		}
		if _, exists := skills[skill.Name]; exists {
			logger.WithSkill(ctx, skill.Name).WithField("path", bundles[i].path).Debug("skill shadowed by an earlier bundle")
			continue
		}
		skills[skill.Name] = skill
		if len(skill.Issues) > 0 {
			logger.WithSkill(ctx, skill.Name).WithField("issues", len(skill.Issues)).Debug("skill has tag issues")
		}
	}

	return skills, result.ErrorOrNil()
}

// findBundles returns every SKILL.md below dir in lexical path order
func findBundles(dir, prefix string) []bundle {
	matches, err := doublestar.Glob(os.DirFS(dir), "**/"+skillFileName)
	if err != nil {
		return nil
	}
	sort.Strings(matches)

	out := make([]bundle, 0, len(matches))
	for _, m := range matches {
		// a SKILL.md directly in dir is not a bundle
		if !strings.Contains(m, "/") {
			continue
		}
		out = append(out, bundle{path: filepath.Join(dir, filepath.FromSlash(m)), prefix: prefix})
	}
	return out
}

// GetSkill returns a specific skill by name
func (d *Discovery) GetSkill(ctx context.Context, name string) (*Skill, error) {
	skills, err := d.DiscoverSkills(ctx)
	if skills == nil {
		return nil, err
	}

	skill, exists := skills[name]
	if !exists {
		return nil, errors.Errorf("skill '%s' not found", name)
	}

	return skill, nil
}

// loadSkill loads a single skill from its SKILL.md file
func loadSkill(path string) (*Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData, err := meta.TryGet(pctx)
	if err != nil {
		return nil, errors.Wrap(err, "invalid frontmatter")
	}
	if len(metaData) == 0 {
		return nil, errors.New("missing frontmatter")
	}

	var raw Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raw,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create frontmatter decoder")
	}
	if err := decoder.Decode(metaData); err != nil {
		return nil, errors.Wrap(err, "failed to decode frontmatter")
	}

	raw.Name = strings.TrimSpace(raw.Name)
	raw.Description = strings.TrimSpace(raw.Description)
	if raw.Name == "" {
		return nil, errors.New("skill name is required in frontmatter")
	}
	if raw.Description == "" {
		return nil, errors.New("skill description is required in frontmatter")
	}

	skill := &Skill{
		Name:        raw.Name,
		Description: raw.Description,
		Directory:   filepath.Dir(path),
		Content:     extractBodyContent(string(content)),
		Raw:         raw,
	}
	skill.normalize()
	return skill, nil
}

// extractBodyContent removes YAML frontmatter and returns the body
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}
