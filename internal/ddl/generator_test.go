package ddl

import (
	"strings"
	"testing"

	"github.com/strata-db/strata/runtime/metadata"
)

// schemaSnapshot builds the snapshot of a small blog mapping the way the
// compiler would emit it: relations carry declared options only, and the
// expander's side-effect columns are already present on the tables.
func schemaSnapshot() *metadata.Snapshot {
	return &metadata.Snapshot{
		FormatVersion: metadata.FormatVersion,
		RootNamespace: "myapp/models",
		Entities: []metadata.EntityMetadata{
			{
				Class:       "myapp/models.Post",
				Versionable: true,
				Table: metadata.TableMetadata{
					Name: "post",
					Columns: []metadata.ColumnMetadata{
						{Name: "id", Type: "integer", Primary: true, AutoIncrement: true},
						{Name: "title", Type: "string"},
						{Name: "user_id", Type: "integer", Unsigned: true},
						{Name: "subject_id", Type: "integer", Unsigned: true},
						{Name: "subject_type", Type: "string"},
					},
				},
				Relations: []metadata.RelationMetadata{
					{Name: "Author", Kind: "belongsTo", Related: "myapp/models.User"},
					{Name: "Subject", Kind: "morphTo", MorphName: "subject"},
					{Name: "Tags", Kind: "belongsToMany", Related: "myapp/models.Tag", PivotTable: "post_tag_pivot"},
					{Name: "Votes", Kind: "morphToMany", MorphName: "votable", PivotTable: "post_votable_pivot"},
				},
				Pivots: []metadata.TableMetadata{
					{
						Name: "post_tag_pivot",
						Columns: []metadata.ColumnMetadata{
							{Name: "post_id", Type: "integer", Unsigned: true},
							{Name: "tag_id", Type: "integer", Unsigned: true},
						},
					},
					{
						Name: "post_votable_pivot",
						Columns: []metadata.ColumnMetadata{
							{Name: "post_id", Type: "integer", Unsigned: true},
							{Name: "votable_id", Type: "integer", Unsigned: true},
							{Name: "votable_type", Type: "string"},
						},
					},
				},
			},
			{
				Class: "myapp/models.Tag",
				Table: metadata.TableMetadata{
					Name: "tag",
					Columns: []metadata.ColumnMetadata{
						{Name: "id", Type: "integer", Primary: true, AutoIncrement: true},
						{Name: "label", Type: "string", Index: true},
					},
				},
			},
			{
				Class:       "myapp/models.User",
				SoftDeletes: true,
				Timestamps:  true,
				Table: metadata.TableMetadata{
					Name: "user",
					Columns: []metadata.ColumnMetadata{
						{Name: "id", Type: "integer", Primary: true, AutoIncrement: true},
						{Name: "email", Type: "string", Length: 150, Unique: true},
						{Name: "bio", Type: "text", Nullable: true},
						{Name: "balance", Type: "decimal", Precision: 10, Scale: 2, Default: "0"},
						{Name: "admin", Type: "boolean", Default: "false"},
					},
				},
				Relations: []metadata.RelationMetadata{
					{Name: "Posts", Kind: "hasMany", Related: "myapp/models.Post"},
				},
			},
		},
	}
}

func mustGenerate(t *testing.T, snap *metadata.Snapshot) string {
	t.Helper()
	gen, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	out, err := gen.Generate(snap)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return out
}

func TestGenerator_Generate_TableOrder(t *testing.T) {
	out := mustGenerate(t, schemaSnapshot())

	tables := []string{
		`CREATE TABLE IF NOT EXISTS "tag" (`,
		`CREATE TABLE IF NOT EXISTS "user" (`,
		`CREATE TABLE IF NOT EXISTS "post" (`,
		`CREATE TABLE IF NOT EXISTS "post_tag_pivot" (`,
		`CREATE TABLE IF NOT EXISTS "post_votable_pivot" (`,
	}

	last := -1
	for _, table := range tables {
		idx := strings.Index(out, table)
		if idx == -1 {
			t.Fatalf("Generate() missing %q\nGot:\n%s", table, out)
		}
		if idx < last {
			t.Errorf("Generate() emitted %q out of order\nGot:\n%s", table, out)
		}
		last = idx
	}
}

func TestGenerator_Generate_Columns(t *testing.T) {
	out := mustGenerate(t, schemaSnapshot())

	expected := []string{
		`"id" SERIAL PRIMARY KEY`,
		`"title" VARCHAR(255) NOT NULL`,
		`"email" VARCHAR(150) NOT NULL UNIQUE`,
		`"bio" TEXT NULL`,
		`"balance" NUMERIC(10,2) NOT NULL DEFAULT 0`,
		`"admin" BOOLEAN NOT NULL DEFAULT FALSE`,
		`"user_id" INTEGER NOT NULL CHECK ("user_id" >= 0)`,
		`"subject_id" INTEGER NOT NULL CHECK ("subject_id" >= 0)`,
		`"subject_type" VARCHAR(255) NOT NULL`,
	}

	for _, exp := range expected {
		if !strings.Contains(out, exp) {
			t.Errorf("Generate() missing %q\nGot:\n%s", exp, out)
		}
	}
}

func TestGenerator_Generate_AmbientColumns(t *testing.T) {
	out := mustGenerate(t, schemaSnapshot())

	expected := []string{
		`"created_at" TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP`,
		`"updated_at" TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP`,
		`"deleted_at" TIMESTAMP WITH TIME ZONE NULL`,
		`"version" INTEGER NOT NULL DEFAULT 0`,
	}

	for _, exp := range expected {
		if !strings.Contains(out, exp) {
			t.Errorf("Generate() missing %q\nGot:\n%s", exp, out)
		}
	}
}

func TestGenerator_Generate_AmbientColumnsDeclaredWins(t *testing.T) {
	snap := schemaSnapshot()
	user, _ := snap.Entity("myapp/models.User")
	user.Table.Columns = append(user.Table.Columns,
		metadata.ColumnMetadata{Name: "deleted_at", Type: "dateTime", Nullable: true})

	out := mustGenerate(t, snap)

	if !strings.Contains(out, `"deleted_at" TIMESTAMP NULL`) {
		t.Errorf("Generate() missing declared deleted_at column\nGot:\n%s", out)
	}
	if strings.Contains(out, `"deleted_at" TIMESTAMP WITH TIME ZONE NULL`) {
		t.Errorf("Generate() emitted the ambient deleted_at alongside the declared one\nGot:\n%s", out)
	}
}

func TestGenerator_Generate_Indexes(t *testing.T) {
	out := mustGenerate(t, schemaSnapshot())

	expected := []string{
		`CREATE INDEX IF NOT EXISTS "idx_tag_label" ON "tag" ("label");`,
		`CREATE INDEX IF NOT EXISTS "idx_post_user_id" ON "post" ("user_id");`,
		`CREATE INDEX IF NOT EXISTS "idx_post_subject" ON "post" ("subject_id", "subject_type");`,
		`CREATE INDEX IF NOT EXISTS "idx_post_tag_pivot_post_id" ON "post_tag_pivot" ("post_id");`,
		`CREATE INDEX IF NOT EXISTS "idx_post_tag_pivot_tag_id" ON "post_tag_pivot" ("tag_id");`,
		`CREATE INDEX IF NOT EXISTS "idx_post_votable_pivot_post_id" ON "post_votable_pivot" ("post_id");`,
		`CREATE INDEX IF NOT EXISTS "idx_post_votable_pivot_votable" ON "post_votable_pivot" ("votable_id", "votable_type");`,
	}

	for _, exp := range expected {
		if !strings.Contains(out, exp) {
			t.Errorf("Generate() missing %q\nGot:\n%s", exp, out)
		}
	}
}

func TestGenerator_Generate_ForeignKeys(t *testing.T) {
	out := mustGenerate(t, schemaSnapshot())

	expected := []string{
		`ALTER TABLE "post" ADD CONSTRAINT "post_user_id_fkey" FOREIGN KEY ("user_id") REFERENCES "user" ("id");`,
		`ALTER TABLE "post_tag_pivot" ADD CONSTRAINT "post_tag_pivot_post_id_fkey" FOREIGN KEY ("post_id") REFERENCES "post" ("id");`,
		`ALTER TABLE "post_tag_pivot" ADD CONSTRAINT "post_tag_pivot_tag_id_fkey" FOREIGN KEY ("tag_id") REFERENCES "tag" ("id");`,
		`ALTER TABLE "post_votable_pivot" ADD CONSTRAINT "post_votable_pivot_post_id_fkey" FOREIGN KEY ("post_id") REFERENCES "post" ("id");`,
	}

	for _, exp := range expected {
		if !strings.Contains(out, exp) {
			t.Errorf("Generate() missing %q\nGot:\n%s", exp, out)
		}
	}

	// The polymorphic side of a morph pivot references no single table.
	if strings.Contains(out, "votable_id_fkey") {
		t.Errorf("Generate() emitted a foreign key for the morph side of a pivot\nGot:\n%s", out)
	}
	// morphTo columns on the entity table are polymorphic too.
	if strings.Contains(out, "subject_id_fkey") {
		t.Errorf("Generate() emitted a foreign key for a morphTo column\nGot:\n%s", out)
	}
}

func TestGenerator_Generate_SkipsUnmappedTarget(t *testing.T) {
	snap := schemaSnapshot()
	post, _ := snap.Entity("myapp/models.Post")
	post.Table.Columns = append(post.Table.Columns,
		metadata.ColumnMetadata{Name: "ghost_id", Type: "integer", Unsigned: true})
	post.Relations = append(post.Relations,
		metadata.RelationMetadata{Name: "Ghost", Kind: "belongsTo", Related: "myapp/models.Ghost"})

	out := mustGenerate(t, snap)

	if strings.Contains(out, "ghost_id_fkey") {
		t.Errorf("Generate() emitted a foreign key for an unmapped class\nGot:\n%s", out)
	}
	if !strings.Contains(out, `CREATE INDEX IF NOT EXISTS "idx_post_ghost_id" ON "post" ("ghost_id");`) {
		t.Errorf("Generate() missing the foreign-key index for ghost_id\nGot:\n%s", out)
	}
}

func TestGenerator_Generate_Deterministic(t *testing.T) {
	gen, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	first, err := gen.Generate(schemaSnapshot())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, err := gen.Generate(schemaSnapshot())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if first != second {
		t.Errorf("Generate() output differs between runs\nFirst:\n%s\nSecond:\n%s", first, second)
	}
}

func TestGenerator_Generate_UnknownColumnType(t *testing.T) {
	snap := &metadata.Snapshot{
		FormatVersion: metadata.FormatVersion,
		Entities: []metadata.EntityMetadata{
			{
				Class: "myapp/models.Broken",
				Table: metadata.TableMetadata{
					Name:    "broken",
					Columns: []metadata.ColumnMetadata{{Name: "blob", Type: "uuid"}},
				},
			},
		},
	}

	gen, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := gen.Generate(snap); err == nil || !strings.Contains(err.Error(), "unmappable column type") {
		t.Errorf("Generate() error = %v, want unmappable column type", err)
	}
}

func TestGenerator_Generate_NilSnapshot(t *testing.T) {
	gen, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := gen.Generate(nil); err == nil {
		t.Error("Generate(nil) expected an error")
	}
}

func TestNew_UnsupportedDialect(t *testing.T) {
	if _, err := New(Config{Dialect: "mysql"}); err == nil || !strings.Contains(err.Error(), "unsupported dialect") {
		t.Errorf("New() error = %v, want unsupported dialect", err)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user", `"user"`},
		{"post_tag_pivot", `"post_tag_pivot"`},
		{`we"ird`, `"we""ird"`},
	}

	for _, tt := range tests {
		if got := QuoteIdentifier(tt.in); got != tt.want {
			t.Errorf("QuoteIdentifier(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFormatDefault(t *testing.T) {
	tests := []struct {
		name string
		col  metadata.ColumnMetadata
		want string
	}{
		{"integer", metadata.ColumnMetadata{Type: "integer", Default: "42"}, "42"},
		{"decimal", metadata.ColumnMetadata{Type: "decimal", Default: "9.99"}, "9.99"},
		{"boolean true", metadata.ColumnMetadata{Type: "boolean", Default: "true"}, "TRUE"},
		{"boolean false", metadata.ColumnMetadata{Type: "boolean", Default: "false"}, "FALSE"},
		{"string", metadata.ColumnMetadata{Type: "string", Default: "draft"}, "'draft'"},
		{"string quoted", metadata.ColumnMetadata{Type: "string", Default: "it's"}, "'it''s'"},
		{"timestamp now", metadata.ColumnMetadata{Type: "timestamp", Default: "now()"}, "CURRENT_TIMESTAMP"},
		{"timestamp literal", metadata.ColumnMetadata{Type: "timestamp", Default: "2026-01-01"}, "'2026-01-01'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDefault(tt.col); got != tt.want {
				t.Errorf("formatDefault() = %s, want %s", got, tt.want)
			}
		})
	}
}
