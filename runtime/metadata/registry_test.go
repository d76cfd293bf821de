package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryEntityLookup(t *testing.T) {
	r := NewRegistry(sampleSnapshot())

	entity, err := r.Entity("myapp/models.Post")
	require.NoError(t, err)
	assert.Equal(t, "post", entity.Table.Name)

	_, err = r.Entity("myapp/models.Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity not found")
}

func TestRegistryEntityByTable(t *testing.T) {
	r := NewRegistry(sampleSnapshot())

	entity, err := r.EntityByTable("user")
	require.NoError(t, err)
	assert.Equal(t, "myapp/models.User", entity.Class)

	_, err = r.EntityByTable("post_tag_pivot")
	require.Error(t, err)
}

func TestRegistryTableLookup(t *testing.T) {
	r := NewRegistry(sampleSnapshot())

	table, err := r.Table("post")
	require.NoError(t, err)
	assert.Len(t, table.Columns, 3)

	// Pivot tables resolve too.
	pivot, err := r.Table("post_tag_pivot")
	require.NoError(t, err)
	assert.Len(t, pivot.Columns, 2)

	_, err = r.Table("missing")
	require.Error(t, err)
}

func TestRegistryClasses(t *testing.T) {
	r := NewRegistry(sampleSnapshot())
	assert.Equal(t, []string{
		"myapp/models.User",
		"myapp/models.Post",
		"myapp/models.Tag",
	}, r.Classes())
}

func TestRegistryRelations(t *testing.T) {
	r := NewRegistry(sampleSnapshot())

	from, err := r.RelationsFrom("myapp/models.Post")
	require.NoError(t, err)
	require.Len(t, from, 2)
	assert.Equal(t, "Author", from[0].Name)

	to := r.RelationsTo("myapp/models.User")
	require.Len(t, to, 1)
	assert.Equal(t, "myapp/models.Post", to[0].SourceClass)
	assert.Equal(t, "belongsTo", to[0].Relation.Kind)

	assert.Empty(t, r.RelationsTo("myapp/models.Orphan"))
}

func TestRegistryReturnsCopies(t *testing.T) {
	r := NewRegistry(sampleSnapshot())

	entity, err := r.Entity("myapp/models.User")
	require.NoError(t, err)
	entity.Class = "mutated"

	again, err := r.Entity("myapp/models.User")
	require.NoError(t, err)
	assert.Equal(t, "myapp/models.User", again.Class)
}

func TestRegistryEntitiesMatching(t *testing.T) {
	r := NewRegistry(sampleSnapshot())

	assert.Len(t, r.EntitiesMatching("*"), 3)
	assert.Len(t, r.EntitiesMatching("myapp/models.*"), 3)

	posts := r.EntitiesMatching("*.Post")
	require.Len(t, posts, 1)
	assert.Equal(t, "myapp/models.Post", posts[0].Class)

	assert.Len(t, r.EntitiesMatching("*Tag*"), 1)
	assert.Empty(t, r.EntitiesMatching("other/*"))
}

func TestRegistryNilSnapshot(t *testing.T) {
	r := NewRegistry(nil)

	assert.Nil(t, r.Classes())
	assert.Empty(t, r.Entities())
	_, err := r.Entity("anything")
	require.Error(t, err)
}
