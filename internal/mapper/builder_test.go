package mapper

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/internal/annotation"
)

func TestBuildBlogFixture(t *testing.T) {
	mapping, err := buildClasses(blogSource(), blogClasses...)
	require.NoError(t, err)

	assert.Equal(t, 4, mapping.Len(), "the embeddable contributes no entity")
	assert.Equal(t, []string{
		"myapp/models.User",
		"myapp/models.Post",
		"myapp/models.Tag",
		"myapp/models.Comment",
	}, mapping.Classes(), "mapping preserves input order")

	post, ok := mapping.Entity("myapp/models.Post")
	require.True(t, ok)
	assert.Equal(t, "post", post.Table.Name)
	assert.True(t, post.SoftDeletes)
	assert.True(t, post.Timestamps)

	// belongsTo author adds an unsigned integer user_id to the post table.
	userID, ok := post.Table.Column("user_id")
	require.True(t, ok)
	assert.Equal(t, annotation.TypeInteger, userID.Type)
	assert.True(t, userID.Options.IsUnsigned())

	// belongsToMany tags builds the pivot without touching the post table.
	tags, ok := post.Relation("Tags")
	require.True(t, ok)
	require.NotNil(t, tags.PivotTable)
	assert.Equal(t, "post_tag_pivot", tags.PivotTable.Name)
	assert.True(t, tags.PivotTable.HasColumn("post_id"))
	assert.True(t, tags.PivotTable.HasColumn("tag_id"))
	assert.False(t, post.Table.HasColumn("tag_id"))

	// morphTo commentable adds the id/type column pair to the comment table.
	comment, ok := mapping.Entity("myapp/models.Comment")
	require.True(t, ok)
	assert.True(t, comment.Table.HasColumn("commentable_id"))
	assert.True(t, comment.Table.HasColumn("commentable_type"))

	// hasMany stays metadata-only.
	user, ok := mapping.Entity("myapp/models.User")
	require.True(t, ok)
	posts, ok := user.Relation("Posts")
	require.True(t, ok)
	assert.Equal(t, annotation.RelationHasMany, posts.Type)
	assert.Nil(t, posts.PivotTable)
	assert.False(t, user.Table.HasColumn("post_id"))
}

func TestBuildIsIdempotent(t *testing.T) {
	source := blogSource()

	first, err := buildClasses(source, blogClasses...)
	require.NoError(t, err)
	second, err := buildClasses(source, blogClasses...)
	require.NoError(t, err)

	assert.Equal(t, first, second, "two builds over the same classes must be structurally identical")
}

func TestBuildFiltersNamespace(t *testing.T) {
	s := blogSource()
	s.class("myapp/services.Mailer", "entity")
	s.property("myapp/services.Mailer", "ID", "integer(primary)")

	classes := append([]string{"myapp/services.Mailer"}, blogClasses...)
	mapping, err := buildClasses(s, classes...)
	require.NoError(t, err)

	_, ok := mapping.Entity("myapp/services.Mailer")
	assert.False(t, ok, "classes outside the root namespace are ignored even when annotated")
	assert.Equal(t, 4, mapping.Len())
}

func TestBuildIgnoresDuplicateInput(t *testing.T) {
	s := blogSource()
	classes := append([]string{"myapp/models.User"}, blogClasses...)

	mapping, err := buildClasses(s, classes...)
	require.NoError(t, err)
	assert.Equal(t, 4, mapping.Len())
	assert.Equal(t, "myapp/models.User", mapping.Classes()[0])
}

func TestBuildFailsWithoutPrimaryKey(t *testing.T) {
	s := newFakeSource()
	s.class("myapp/models.Note", "entity")
	s.property("myapp/models.Note", "Body", "text")

	_, err := buildClasses(s, "myapp/models.Note")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "myapp/models.Note")
	assert.Contains(t, err.Error(), "no primary key")
}

func TestBuildFailsWithCompositePrimaryKey(t *testing.T) {
	s := newFakeSource()
	s.class("myapp/models.Pair", "entity")
	s.property("myapp/models.Pair", "Left", "integer(primary)")
	s.property("myapp/models.Pair", "Right", "integer(primary)")

	_, err := buildClasses(s, "myapp/models.Pair")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "myapp/models.Pair")
	assert.Contains(t, err.Error(), "2 primary key columns")
	assert.Contains(t, err.Error(), "expected 1")
}

func TestBuildFailsWholeBatch(t *testing.T) {
	s := blogSource()
	s.class("myapp/models.Broken", "entity")
	s.property("myapp/models.Broken", "Body", "text")

	classes := append([]string{"myapp/models.Broken"}, blogClasses...)
	mapping, err := buildClasses(s, classes...)
	require.Error(t, err, "one malformed entity fails the whole batch")
	assert.Nil(t, mapping, "no partial mapping on failure")
}

func TestBuildReportsEveryInvalidEntity(t *testing.T) {
	s := newFakeSource()
	s.class("myapp/models.A", "entity")
	s.property("myapp/models.A", "Body", "text")
	s.class("myapp/models.B", "entity")
	s.property("myapp/models.B", "Body", "text")

	_, err := buildClasses(s, "myapp/models.A", "myapp/models.B")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "myapp/models.A")
	assert.Contains(t, err.Error(), "myapp/models.B")
}

func TestDiscoverClasses(t *testing.T) {
	finder := &fakeFinder{classes: []string{"myapp/models.User", "myapp/models.Post"}}
	b := NewBuilder(Config{
		RootNamespace: "myapp/models",
		SourceRoot:    "./models",
		Source:        blogSource(),
		Finder:        finder,
	})

	classes, err := b.DiscoverClasses("")
	require.NoError(t, err)
	assert.Equal(t, []string{"myapp/models.User", "myapp/models.Post"}, classes)
	assert.Equal(t, "models", finder.lastPath)

	_, err = b.DiscoverClasses("myapp/models/blog")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("models", "blog"), finder.lastPath)

	_, err = b.DiscoverClasses("other/pkg")
	require.Error(t, err, "namespaces outside the root are rejected before discovery")
}

func TestDiscoverClassesFinderError(t *testing.T) {
	finder := &fakeFinder{err: errors.New("boom")}
	b := NewBuilder(Config{
		RootNamespace: "myapp/models",
		SourceRoot:    "./models",
		Source:        newFakeSource(),
		Finder:        finder,
	})

	_, err := b.DiscoverClasses("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestBuildAll(t *testing.T) {
	finder := &fakeFinder{classes: blogClasses}
	b := NewBuilder(Config{
		RootNamespace: "myapp/models",
		SourceRoot:    "./models",
		Source:        blogSource(),
		Finder:        finder,
	})

	mapping, err := b.BuildAll()
	require.NoError(t, err)
	assert.Equal(t, 4, mapping.Len())
	assert.Equal(t, "models", finder.lastPath)
}
