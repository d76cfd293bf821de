package mapper

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/strata-db/strata/internal/annotation"
)

// ClassFinder enumerates candidate classes under a directory. The builder
// treats it as an opaque enumerator.
type ClassFinder interface {
	FindClasses(rootPath string) ([]string, error)
}

// AnnotationSource provides structured annotation records for classes and
// their properties. Implementations must make an absent single-valued
// annotation distinguishable from a present one.
type AnnotationSource interface {
	ClassAnnotations(class string) ([]annotation.Annotation, error)
	ClassAnnotation(class string, kind annotation.Kind) (annotation.Annotation, bool, error)
	Properties(class string) ([]string, error)
	PropertyAnnotations(class, property string) ([]annotation.Annotation, error)
}

// Config wires a Builder. RootNamespace scopes the build and drives
// table-name derivation; SourceRoot is the directory the root namespace
// lives in. A nil Logger means no logging.
type Config struct {
	RootNamespace string
	SourceRoot    string
	Source        AnnotationSource
	Finder        ClassFinder
	Logger        *zap.Logger
}

// Builder orchestrates one metadata build: discovery, namespace filtering,
// per-class parsing, and cross-entity validation. Each Build call works on
// its own accumulator, so one Builder may be reused across builds.
type Builder struct {
	cfg       Config
	naming    *Resolver
	parser    *Parser
	validator *Validator
	logger    *zap.Logger
}

// NewBuilder returns a builder for the given configuration.
func NewBuilder(cfg Config) *Builder {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	naming := NewResolver(cfg.RootNamespace)
	return &Builder{
		cfg:       cfg,
		naming:    naming,
		parser:    NewParser(naming, cfg.Source),
		validator: NewValidator(),
		logger:    logger,
	}
}

// Naming returns the builder's naming resolver.
func (b *Builder) Naming() *Resolver {
	return b.naming
}

// Build parses the given classes into a validated Mapping. Classes outside
// the root namespace and classes without the entity marker are skipped. Any
// configuration error fails the whole build; no partial mapping is returned.
func (b *Builder) Build(classes []string) (*Mapping, error) {
	mapping := newMapping()
	for _, class := range classes {
		if !b.naming.InNamespace(class) {
			b.logger.Debug("skipping class outside root namespace", zap.String("class", class))
			continue
		}
		entity, ok, err := b.parser.ParseClass(class)
		if err != nil {
			return nil, err
		}
		if !ok {
			b.logger.Debug("skipping class without entity marker", zap.String("class", class))
			continue
		}
		mapping.add(entity)
		b.logger.Debug("mapped entity",
			zap.String("class", class),
			zap.String("table", entity.Table.Name))
	}
	if err := b.validator.Validate(mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// BuildAll discovers every class under the root namespace and builds the
// mapping for them.
func (b *Builder) BuildAll() (*Mapping, error) {
	classes, err := b.DiscoverClasses("")
	if err != nil {
		return nil, err
	}
	return b.Build(classes)
}

// DiscoverClasses enumerates class identifiers for a namespace, defaulting
// to the configured root. The namespace is mapped to a directory by the
// naming resolver's path convention and handed to the class finder; the
// finder's list is returned as reported.
func (b *Builder) DiscoverClasses(namespace string) ([]string, error) {
	if namespace == "" {
		namespace = b.cfg.RootNamespace
	}
	path, err := b.naming.PathForNamespace(b.cfg.SourceRoot, namespace)
	if err != nil {
		return nil, err
	}
	classes, err := b.cfg.Finder.FindClasses(path)
	if err != nil {
		return nil, fmt.Errorf("discovering classes in %s: %w", path, err)
	}
	return classes, nil
}
