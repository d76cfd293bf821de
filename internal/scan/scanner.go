// Package scan discovers annotated struct types in a Go source tree and
// extracts their mapping annotations as structured records. It implements
// the class-discovery and annotation-extraction collaborators the mapper
// builds from.
//
// Classes are exported struct types; their identifier is
// "<namespace>.<TypeName>", where the namespace is the configured root
// namespace extended with the type's subdirectory. Class-level annotations
// are //strata: doc-comment directives; property-level annotations live in
// the `strata` struct tag key, several separated by semicolons. A tag of
// "-" marks a field as not persisted.
package scan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/strata-db/strata/internal/annotation"
)

const (
	tagKey          = "strata"
	directivePrefix = "strata:"
)

// Config configures a Scanner. Root is the directory holding the root
// namespace's packages.
type Config struct {
	Root          string
	RootNamespace string
	Logger        *zap.Logger
}

// Scanner walks a source tree once, lazily, and serves class and annotation
// lookups from the in-memory index. It is not safe for concurrent use.
type Scanner struct {
	root          string
	rootNamespace string
	logger        *zap.Logger

	scanned bool
	scanErr error
	classes map[string]*classInfo
	order   []string
	hash    string
}

type classInfo struct {
	name       string
	file       string
	directives []string
	properties []property
	propIndex  map[string]int
}

type property struct {
	name      string
	tag       string
	tagSet    bool
	typeClass string
}

// New returns a scanner over the given source root.
func New(cfg Config) *Scanner {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		root:          filepath.Clean(cfg.Root),
		rootNamespace: strings.Trim(cfg.RootNamespace, "/"),
		logger:        logger,
		classes:       make(map[string]*classInfo),
	}
}

// FindClasses returns the identifiers of every class whose source file lives
// under rootPath, in file-walk order.
func (s *Scanner) FindClasses(rootPath string) ([]string, error) {
	if err := s.ensureScanned(); err != nil {
		return nil, err
	}
	prefix := filepath.Clean(rootPath)
	var classes []string
	for _, name := range s.order {
		info := s.classes[name]
		dir := filepath.Dir(info.file)
		if dir == prefix || strings.HasPrefix(dir, prefix+string(filepath.Separator)) {
			classes = append(classes, name)
		}
	}
	return classes, nil
}

// ClassAnnotations returns the class-level annotation records of a class.
// An unknown class has no annotations; that keeps references to types
// outside the scanned tree (time.Time and friends) a mapping-level error
// instead of an I/O failure.
func (s *Scanner) ClassAnnotations(class string) ([]annotation.Annotation, error) {
	if err := s.ensureScanned(); err != nil {
		return nil, err
	}
	info, ok := s.classes[class]
	if !ok {
		return nil, nil
	}
	anns := make([]annotation.Annotation, 0, len(info.directives))
	for _, src := range info.directives {
		ann, err := annotation.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("%s: class %s: %w", info.file, class, err)
		}
		anns = append(anns, ann)
	}
	return anns, nil
}

// ClassAnnotation returns the single class-level annotation of the given
// kind, with presence reported separately from errors.
func (s *Scanner) ClassAnnotation(class string, kind annotation.Kind) (annotation.Annotation, bool, error) {
	anns, err := s.ClassAnnotations(class)
	if err != nil {
		return nil, false, err
	}
	for _, ann := range anns {
		if ann.Kind() == kind {
			return ann, true, nil
		}
	}
	return nil, false, nil
}

// Properties returns a class's exported field names in declaration order.
func (s *Scanner) Properties(class string) ([]string, error) {
	if err := s.ensureScanned(); err != nil {
		return nil, err
	}
	info, ok := s.classes[class]
	if !ok {
		return nil, nil
	}
	names := make([]string, len(info.properties))
	for i, p := range info.properties {
		names[i] = p.name
	}
	return names, nil
}

// PropertyAnnotations returns the annotation records of one property. A
// relation's related class and an embedded property's class are resolved
// from the field type when the annotation does not name them; bare names in
// annotations resolve against the owner's package.
func (s *Scanner) PropertyAnnotations(class, propertyName string) ([]annotation.Annotation, error) {
	if err := s.ensureScanned(); err != nil {
		return nil, err
	}
	info, ok := s.classes[class]
	if !ok {
		return nil, nil
	}
	i, ok := info.propIndex[propertyName]
	if !ok {
		return nil, nil
	}
	prop := info.properties[i]
	if !prop.tagSet || prop.tag == "-" {
		return nil, nil
	}

	anns, err := annotation.ParseList(prop.tag)
	if err != nil {
		return nil, fmt.Errorf("%s: property %s.%s: %w", info.file, class, propertyName, err)
	}

	namespace, _ := splitIdentifier(class)
	for _, ann := range anns {
		switch a := ann.(type) {
		case *annotation.Relation:
			if a.Related == "" && a.Type != annotation.RelationMorphTo {
				a.Related = prop.typeClass
			} else {
				a.Related = qualify(a.Related, namespace)
			}
			a.Options.Through = qualify(a.Options.Through, namespace)
		case *annotation.Embedded:
			if a.Class == "" {
				a.Class = prop.typeClass
			} else {
				a.Class = qualify(a.Class, namespace)
			}
		}
	}
	return anns, nil
}

// SourceHash returns a hex sha256 over every scanned file's path and
// contents, stable across runs for unchanged sources.
func (s *Scanner) SourceHash() (string, error) {
	if err := s.ensureScanned(); err != nil {
		return "", err
	}
	return s.hash, nil
}

func (s *Scanner) ensureScanned() error {
	if s.scanned {
		return s.scanErr
	}
	s.scanned = true
	s.scanErr = s.scan()
	return s.scanErr
}

func (s *Scanner) scan() error {
	hasher := sha256.New()
	fset := token.NewFileSet()

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		if base := d.Name(); strings.HasPrefix(base, "_") || strings.HasPrefix(base, ".") {
			return nil
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			rel = path
		}
		hasher.Write([]byte(filepath.ToSlash(rel)))
		hasher.Write(src)

		file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		s.indexFile(path, file)
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning %s: %w", s.root, err)
	}

	s.hash = hex.EncodeToString(hasher.Sum(nil))
	s.logger.Debug("source scan complete",
		zap.String("root", s.root),
		zap.Int("classes", len(s.order)))
	return nil
}

func skipDir(name string) bool {
	return name == "testdata" || name == "vendor" ||
		strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func (s *Scanner) indexFile(path string, file *ast.File) {
	namespace := s.namespaceFor(filepath.Dir(path))
	imports := fileImports(file)

	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok || !ts.Name.IsExported() {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				continue
			}

			doc := ts.Doc
			if doc == nil {
				doc = gen.Doc
			}
			info := &classInfo{
				name:       classID(ts.Name.Name, namespace),
				file:       path,
				directives: directives(doc),
				propIndex:  make(map[string]int),
			}
			s.indexFields(info, st, imports, namespace)

			if _, exists := s.classes[info.name]; exists {
				continue
			}
			s.classes[info.name] = info
			s.order = append(s.order, info.name)
		}
	}
}

func (s *Scanner) indexFields(info *classInfo, st *ast.StructType, imports map[string]string, namespace string) {
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			// Go-embedded fields are not properties; embedding into a
			// table is declared explicitly with the embedded annotation.
			continue
		}
		tag, tagSet := fieldTag(field)
		typeClass := typeClassOf(field.Type, imports, namespace)
		for _, name := range field.Names {
			if !name.IsExported() {
				continue
			}
			info.propIndex[name.Name] = len(info.properties)
			info.properties = append(info.properties, property{
				name:      name.Name,
				tag:       tag,
				tagSet:    tagSet,
				typeClass: typeClass,
			})
		}
	}
}

func (s *Scanner) namespaceFor(dir string) string {
	rel, err := filepath.Rel(s.root, dir)
	if err != nil || rel == "." {
		return s.rootNamespace
	}
	if s.rootNamespace == "" {
		return filepath.ToSlash(rel)
	}
	return s.rootNamespace + "/" + filepath.ToSlash(rel)
}

// classID joins a type name with its namespace. An empty namespace leaves
// the bare name as the identifier.
func classID(name, namespace string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// directives extracts strata: directive expressions from a doc comment.
// ast.CommentGroup.Text strips directive lines, so the raw list is walked.
func directives(doc *ast.CommentGroup) []string {
	if doc == nil {
		return nil
	}
	var out []string
	for _, comment := range doc.List {
		text := strings.TrimPrefix(comment.Text, "//")
		if !strings.HasPrefix(text, directivePrefix) {
			continue
		}
		out = append(out, strings.TrimSpace(strings.TrimPrefix(text, directivePrefix)))
	}
	return out
}

func fieldTag(field *ast.Field) (string, bool) {
	if field.Tag == nil {
		return "", false
	}
	raw := strings.Trim(field.Tag.Value, "`")
	return reflect.StructTag(raw).Lookup(tagKey)
}

// typeClassOf resolves a field type to a class identifier: pointers and
// slices unwrap, named types resolve to the owning package, selector types
// resolve through the file's imports. Anything else (builtins, interfaces,
// maps) is not a class.
func typeClassOf(expr ast.Expr, imports map[string]string, namespace string) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return typeClassOf(t.X, imports, namespace)
	case *ast.ArrayType:
		return typeClassOf(t.Elt, imports, namespace)
	case *ast.Ident:
		if t.IsExported() {
			return classID(t.Name, namespace)
		}
	case *ast.SelectorExpr:
		if pkg, ok := t.X.(*ast.Ident); ok {
			if path, ok := imports[pkg.Name]; ok {
				return path + "." + t.Sel.Name
			}
		}
	}
	return ""
}

// fileImports maps the local package name of each import to its path. For
// unnamed imports the last path segment stands in for the package name.
func fileImports(file *ast.File) map[string]string {
	imports := make(map[string]string, len(file.Imports))
	for _, imp := range file.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		name := path
		if i := strings.LastIndex(path, "/"); i >= 0 {
			name = path[i+1:]
		}
		if imp.Name != nil {
			name = imp.Name.Name
		}
		if name == "_" || name == "." {
			continue
		}
		imports[name] = path
	}
	return imports
}

func splitIdentifier(class string) (string, string) {
	dot := strings.LastIndex(class, ".")
	if dot <= strings.LastIndex(class, "/") {
		return "", class
	}
	return class[:dot], class[dot+1:]
}

// qualify resolves a bare class name against a namespace. Names already
// carrying a namespace, and empty names, pass through.
func qualify(name, namespace string) string {
	if name == "" || namespace == "" {
		return name
	}
	if strings.ContainsAny(name, "./") {
		return name
	}
	return namespace + "." + name
}
