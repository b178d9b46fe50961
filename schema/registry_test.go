package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntities() []*Entity {
	return []*Entity{
		{Name: "movie", Fields: []*Field{
			{Name: "title", DataType: String, NotNull: true},
			{Name: "releaseYear", DataType: Int},
		}},
		{Name: "quote", Fields: []*Field{
			{Name: "text", DataType: Text},
		}},
		{Name: "tag", Fields: []*Field{
			{Name: "label", DataType: String, Unique: true},
		}},
		{Name: "profile", Fields: []*Field{
			{Name: "bio", DataType: Text},
		}},
		{Name: "user", Fields: []*Field{
			{Name: "email", DataType: String, NotNull: true, Unique: true},
		}},
	}
}

func testRelationships() []*Relationship {
	return []*Relationship{
		{Name: "movie_quotes", Kind: OneToMany, One: "movie", Many: "quote", OnDelete: Cascade},
		{Name: "movie_tags", Kind: ManyToMany, SideA: "movie", SideB: "tag", OnDelete: SoftDelete,
			ExtraFields: []*Field{{Name: "grantedAt", DataType: Time}}},
		{Name: "user_profile", Kind: OneToOne, SideA: "user", SideB: "profile"},
	}
}

func TestNewRegistry(t *testing.T) {
	registry, err := NewRegistry(NamingStrategy{}, testEntities(), testRelationships())
	require.NoError(t, err)

	movie := registry.Entity("movie")
	require.NotNil(t, movie)
	assert.Equal(t, "movies", movie.Table)
	assert.Equal(t, "release_year", movie.Fields[1].DBName)
	require.NotNil(t, movie.LookUpField("release_year"))
	assert.Nil(t, registry.Entity("unknown"))

	quotes := registry.Relationship("movie_quotes")
	require.NotNil(t, quotes)
	assert.Equal(t, "rel_1_movie_M_quote", quotes.Table)
	assert.Equal(t, "one_movie_id", quotes.LeftColumn)
	assert.Equal(t, "many_quote_id", quotes.RightColumn)

	tags := registry.Relationship("movie_tags")
	require.NotNil(t, tags)
	assert.Equal(t, "rel_N_movie_M_tag", tags.Table)
	assert.Equal(t, "movie_id", tags.LeftColumn)
	assert.Equal(t, "tag_id", tags.RightColumn)
	assert.Equal(t, "granted_at", tags.ExtraFields[0].DBName)

	profile := registry.Relationship("user_profile")
	require.NotNil(t, profile)
	assert.Equal(t, "rel_1_user_1_profile", profile.Table)
	assert.Equal(t, Restrict, profile.OnDelete, "cascade action defaults to restrict")
}

func TestRegistrySelectionFields(t *testing.T) {
	registry, err := NewRegistry(NamingStrategy{}, testEntities(), testRelationships())
	require.NoError(t, err)

	quote := registry.SelectionFields("quote")
	require.Contains(t, quote, "movie_id")
	assert.Equal(t, "movie_quotes", quote["movie_id"].Name)

	// one side of a one_to_many does not select its children
	assert.NotContains(t, registry.SelectionFields("movie"), "quote_id")

	// one_to_one selects from both sides
	assert.Contains(t, registry.SelectionFields("user"), "profile_id")
	assert.Contains(t, registry.SelectionFields("profile"), "user_id")

	// many_to_many has no selection fields at all
	assert.Empty(t, registry.SelectionFields("tag"))
}

func TestRegistryRelationshipsFor(t *testing.T) {
	registry, err := NewRegistry(NamingStrategy{}, testEntities(), testRelationships())
	require.NoError(t, err)

	names := []string{}
	for _, rel := range registry.RelationshipsFor("movie") {
		names = append(names, rel.Name)
	}
	assert.Equal(t, []string{"movie_quotes", "movie_tags"}, names)
	assert.Empty(t, registry.RelationshipsFor("unrelated"))
}

func TestNewRegistryValidation(t *testing.T) {
	cases := []struct {
		name          string
		entities      []*Entity
		relationships []*Relationship
		wantErr       string
	}{
		{
			name:     "duplicate entity",
			entities: []*Entity{{Name: "movie"}, {Name: "movie"}},
			wantErr:  "registered twice",
		},
		{
			name:     "invalid entity name",
			entities: []*Entity{{Name: "9lives"}},
			wantErr:  "invalid entity name",
		},
		{
			name:     "reserved column",
			entities: []*Entity{{Name: "movie", Fields: []*Field{{Name: "deletedAt", DataType: Time}}}},
			wantErr:  "reserved column",
		},
		{
			name:     "duplicate column",
			entities: []*Entity{{Name: "movie", Fields: []*Field{{Name: "title"}, {Name: "Title"}}}},
			wantErr:  "declares column title twice",
		},
		{
			name:          "unknown participant",
			entities:      []*Entity{{Name: "movie"}},
			relationships: []*Relationship{{Name: "movie_quotes", Kind: OneToMany, One: "movie", Many: "quote"}},
			wantErr:       "unregistered entity quote",
		},
		{
			name:          "self relationship",
			entities:      []*Entity{{Name: "movie"}},
			relationships: []*Relationship{{Name: "movie_movie", Kind: ManyToMany, SideA: "movie", SideB: "movie"}},
			wantErr:       "joins movie to itself",
		},
		{
			name:          "missing roles",
			entities:      []*Entity{{Name: "movie"}, {Name: "quote"}},
			relationships: []*Relationship{{Name: "movie_quotes", Kind: OneToMany, SideA: "movie", SideB: "quote"}},
			wantErr:       "needs explicit one and many roles",
		},
		{
			name:          "unsupported kind",
			entities:      []*Entity{{Name: "movie"}, {Name: "quote"}},
			relationships: []*Relationship{{Name: "movie_quotes", Kind: "many_to_one", SideA: "movie", SideB: "quote"}},
			wantErr:       "unsupported kind",
		},
		{
			name:          "unsupported cascade action",
			entities:      []*Entity{{Name: "movie"}, {Name: "quote"}},
			relationships: []*Relationship{{Name: "movie_quotes", Kind: OneToMany, One: "movie", Many: "quote", OnDelete: "detach"}},
			wantErr:       "unsupported cascade action",
		},
		{
			name:          "extra field collides with reference column",
			entities:      []*Entity{{Name: "movie"}, {Name: "tag"}},
			relationships: []*Relationship{{Name: "movie_tags", Kind: ManyToMany, SideA: "movie", SideB: "tag", ExtraFields: []*Field{{Name: "movieID"}}}},
			wantErr:       "collides with column movie_id",
		},
		{
			name: "selection field collides with declared field",
			entities: []*Entity{
				{Name: "movie"},
				{Name: "quote", Fields: []*Field{{Name: "movieID", DataType: String}}},
			},
			relationships: []*Relationship{{Name: "movie_quotes", Kind: OneToMany, One: "movie", Many: "quote"}},
			wantErr:       "selection field movie_id collides",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewRegistry(NamingStrategy{}, c.entities, c.relationships)
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.wantErr)
		})
	}
}

func TestRelationshipMetadata(t *testing.T) {
	registry, err := NewRegistry(NamingStrategy{}, testEntities(), testRelationships())
	require.NoError(t, err)

	rel := registry.Relationship("movie_quotes")
	assert.True(t, rel.IsOne("movie"))
	assert.True(t, rel.IsMany("quote"))
	assert.False(t, rel.IsOne("quote"))

	other, err := rel.OtherSide("movie")
	require.NoError(t, err)
	assert.Equal(t, "quote", other)

	_, err = rel.OtherSide("tag")
	assert.Error(t, err)

	column, err := rel.ColumnFor("quote")
	require.NoError(t, err)
	assert.Equal(t, "many_quote_id", column)

	_, err = rel.ColumnFor("tag")
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	doc := `{
		"entities": [
			{"name": "movie", "fields": [{"name": "title", "type": "string"}]},
			{"name": "quote", "fields": [{"name": "text", "type": "text"}]}
		],
		"relationships": [
			{"name": "movie_quotes", "kind": "one_to_many", "one": "movie", "many": "quote", "on_delete": "cascade"}
		]
	}`

	registry, err := Load(strings.NewReader(doc), NamingStrategy{})
	require.NoError(t, err)
	require.NotNil(t, registry.Entity("movie"))
	require.NotNil(t, registry.Relationship("movie_quotes"))

	_, err = Load(strings.NewReader(`{"entities": [{"name": "movie", "bogus": 1}]}`), NamingStrategy{})
	assert.Error(t, err, "unknown descriptor keys are rejected")
}
