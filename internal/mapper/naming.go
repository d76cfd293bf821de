package mapper

import (
	"fmt"
	"path/filepath"
	"strings"

	utilstrings "github.com/strata-db/strata/internal/util/strings"
)

// Resolver derives table, column, and pivot-table names from class
// identifiers and annotation overrides. All derivations are pure; explicit
// annotation overrides always win over derived defaults and are used
// verbatim.
type Resolver struct {
	rootNamespace string
	prefixLen     int
}

// NewResolver returns a resolver for the given root namespace. The root's
// segment count is the prefix dropped during table-name derivation.
func NewResolver(rootNamespace string) *Resolver {
	rootNamespace = strings.Trim(rootNamespace, "/")
	prefixLen := 0
	if rootNamespace != "" {
		prefixLen = strings.Count(rootNamespace, "/") + 1
	}
	return &Resolver{rootNamespace: rootNamespace, prefixLen: prefixLen}
}

// RootNamespace returns the configured root namespace.
func (r *Resolver) RootNamespace() string {
	return r.rootNamespace
}

// SplitClass splits a class identifier into its namespace and bare name.
// "myapp/models/blog.Post" becomes ("myapp/models/blog", "Post"); a bare
// name has an empty namespace.
func SplitClass(class string) (string, string) {
	dot := strings.LastIndex(class, ".")
	if dot <= strings.LastIndex(class, "/") {
		return "", class
	}
	return class[:dot], class[dot+1:]
}

// InNamespace reports whether the class lives in or under the root
// namespace. An empty root accepts everything.
func (r *Resolver) InNamespace(class string) bool {
	if r.rootNamespace == "" {
		return true
	}
	ns, _ := SplitClass(class)
	return ns == r.rootNamespace || strings.HasPrefix(ns, r.rootNamespace+"/")
}

// TableName derives an entity's table name from its class identifier: the
// root-namespace prefix is dropped, the remaining namespace segments and the
// bare name are split into lowercase words, adjacent duplicate words are
// collapsed, and the words are joined with underscores.
//
//	myapp/models/blog.Post     -> blog_post
//	myapp/models/blog.BlogPost -> blog_post
//	myapp/models.UserProfile   -> user_profile
func (r *Resolver) TableName(class string) string {
	ns, base := SplitClass(class)
	var words []string
	if ns != "" {
		segments := strings.Split(ns, "/")
		if len(segments) > r.prefixLen {
			segments = segments[r.prefixLen:]
		} else {
			segments = nil
		}
		for _, segment := range segments {
			words = append(words, utilstrings.SplitWords(segment)...)
		}
	}
	words = append(words, utilstrings.SplitWords(base)...)
	return strings.Join(collapseAdjacent(words), "_")
}

func collapseAdjacent(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if len(out) > 0 && out[len(out)-1] == w {
			continue
		}
		out = append(out, w)
	}
	return out
}

// ColumnName derives a column name from a property name (snake_case).
func (r *Resolver) ColumnName(property string) string {
	return utilstrings.ToSnakeCase(property)
}

// ForeignKeyColumn derives the default foreign-key column name for a class:
// its bare name lower-cased-first, suffixed _id (User -> user_id,
// BlogPost -> blogPost_id).
func (r *Resolver) ForeignKeyColumn(class string) string {
	_, base := SplitClass(class)
	return utilstrings.LowerFirst(base) + "_id"
}

// MorphName derives the default morph name from a relation's property name.
func (r *Resolver) MorphName(property string) string {
	return utilstrings.ToSnakeCase(property)
}

// PivotTableName derives the default pivot-table name for a belongsToMany
// relation.
func (r *Resolver) PivotTableName(ownerTable, relatedClass string) string {
	_, base := SplitClass(relatedClass)
	return ownerTable + "_" + utilstrings.LowerFirst(base) + "_pivot"
}

// MorphPivotTableName derives the default pivot-table name for a morphToMany
// relation.
func (r *Resolver) MorphPivotTableName(ownerTable, morphName string) string {
	return ownerTable + "_" + morphName + "_pivot"
}

// PathForNamespace maps a namespace to the directory it lives in: namespace
// separators become path separators under the base directory that hosts the
// root namespace. Namespaces outside the root are rejected.
func (r *Resolver) PathForNamespace(baseDir, namespace string) (string, error) {
	namespace = strings.Trim(namespace, "/")
	if namespace == r.rootNamespace {
		return filepath.Clean(baseDir), nil
	}
	if r.rootNamespace == "" || !strings.HasPrefix(namespace, r.rootNamespace+"/") {
		return "", fmt.Errorf("namespace %s is outside the root namespace %s", namespace, r.rootNamespace)
	}
	rel := strings.TrimPrefix(namespace, r.rootNamespace+"/")
	return filepath.Join(baseDir, filepath.FromSlash(rel)), nil
}
