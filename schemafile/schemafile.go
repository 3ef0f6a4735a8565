package schemafile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/keyfactory/querykey"
)

// Option configures loading.
type Option func(*config)

type config struct {
	fetchers    map[string]querykey.FetchFunc
	composeOpts []querykey.Option
	family      querykey.Family
	mergeMode   querykey.MergeMode
	logger      zerolog.Logger
}

// WithFetch registers fn under name for use in `fetch:` fields.
func WithFetch(name string, fn querykey.FetchFunc) Option {
	return func(c *config) {
		c.fetchers[name] = fn
	}
}

// WithFetchers registers every function in fns.
func WithFetchers(fns map[string]querykey.FetchFunc) Option {
	return func(c *config) {
		for name, fn := range fns {
			c.fetchers[name] = fn
		}
	}
}

// WithComposeOptions passes options through to the key composer.
func WithComposeOptions(opts ...querykey.Option) Option {
	return func(c *config) {
		c.composeOpts = append(c.composeOpts, opts...)
	}
}

// WithMutations composes every root as a mutation scope.
func WithMutations() Option {
	return func(c *config) {
		c.family = querykey.FamilyMutation
	}
}

// WithMergeMode sets how roots declared more than once are combined.
// The default is querykey.MergeFields.
func WithMergeMode(mode querykey.MergeMode) Option {
	return func(c *config) {
		c.mergeMode = mode
	}
}

// WithLogger sets the logger for load, compose and merge events.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func newConfig(opts []Option) config {
	c := config{
		fetchers:  make(map[string]querykey.FetchFunc),
		family:    querykey.FamilyQuery,
		mergeMode: querykey.MergeFields,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Parse loads a registry from YAML bytes.
func Parse(data []byte, opts ...Option) (*querykey.Registry, error) {
	return Load(bytes.NewReader(data), opts...)
}

// Load reads every YAML document in r and merges the composed scopes into
// one registry, in document order.
func Load(r io.Reader, opts ...Option) (*querykey.Registry, error) {
	l := &loader{cfg: newConfig(opts)}
	scopes, err := l.read(r, "")
	if err != nil {
		return nil, err
	}
	return l.merge(scopes)
}

// LoadFile loads a registry from the YAML file at path.
func LoadFile(path string, opts ...Option) (*querykey.Registry, error) {
	l := &loader{cfg: newConfig(opts)}
	scopes, err := l.readFile(path)
	if err != nil {
		return nil, err
	}
	return l.merge(scopes)
}

// LoadDir loads every .yaml and .yml file directly inside dir, in file name
// order, into one registry.
func LoadDir(dir string, opts ...Option) (*querykey.Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("schemafile: read dir %s: %w", dir, err)
	}

	l := &loader{cfg: newConfig(opts)}
	var scopes []*querykey.Scope
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		fileScopes, err := l.readFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, fileScopes...)
	}
	return l.merge(scopes)
}

type loader struct {
	cfg config
}

func (l *loader) readFile(path string) ([]*querykey.Scope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schemafile: open %s: %w", path, err)
	}
	defer f.Close()
	return l.read(f, path)
}

func (l *loader) read(r io.Reader, source string) ([]*querykey.Scope, error) {
	dec := yaml.NewDecoder(r)
	var scopes []*querykey.Scope
	for docIndex := 0; ; docIndex++ {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if source != "" {
				return nil, fmt.Errorf("schemafile: parse %s: %w", source, err)
			}
			return nil, fmt.Errorf("schemafile: parse yaml: %w", err)
		}

		docScopes, err := l.document(&doc, source)
		if err != nil {
			return nil, err
		}
		l.cfg.logger.Debug().
			Str("source", source).
			Int("document", docIndex).
			Int("roots", len(docScopes)).
			Msg("loaded schema document")
		scopes = append(scopes, docScopes...)
	}
	return scopes, nil
}

func (l *loader) merge(scopes []*querykey.Scope) (*querykey.Registry, error) {
	merger := querykey.NewMerger(
		querykey.WithMergeMode(l.cfg.mergeMode),
		querykey.WithMergeLogger(l.cfg.logger),
	)
	reg, err := merger.Merge(scopes...)
	if err != nil {
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	return reg, nil
}

func (l *loader) compose(root string, schema querykey.Schema) (*querykey.Scope, error) {
	opts := append([]querykey.Option{querykey.WithLogger(l.cfg.logger)}, l.cfg.composeOpts...)
	if l.cfg.family == querykey.FamilyMutation {
		return querykey.ComposeMutations(root, schema, opts...)
	}
	return querykey.Compose(root, schema, opts...)
}
