package dorm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dorm.io/dorm"
	"dorm.io/dorm/schema"
)

func TestAddRemoveHasRoundTrip(t *testing.T) {
	e, ctx := setupEngine(t, nil)
	r, err := e.Relation("movie_tags")
	require.NoError(t, err)

	movie := createRecord(t, e, ctx, "movie", map[string]interface{}{"title": "Heat"})
	tag := createRecord(t, e, ctx, "tag", map[string]interface{}{"label": "crime"})

	added, err := r.Add(ctx, "curator", movie, tag, nil)
	require.NoError(t, err)
	assert.True(t, added)

	linked, err := r.Has(ctx, movie, tag)
	require.NoError(t, err)
	assert.True(t, linked)

	// Passing the pair in the opposite order hits the same row.
	linked, err = r.Has(ctx, tag, movie)
	require.NoError(t, err)
	assert.True(t, linked)

	added, err = r.Add(ctx, "curator", movie, tag, nil)
	require.NoError(t, err)
	assert.False(t, added)

	rows, err := r.Related(ctx, movie)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "movie_tags", rows[0].Entity)
	assert.Equal(t, movie.ID, rows[0].Ref("movie_id"))
	assert.Equal(t, tag.ID, rows[0].Ref("tag_id"))
	assert.Equal(t, "curator", rows[0].CreatedBy)

	removed, err := r.Remove(ctx, "curator", movie, tag)
	require.NoError(t, err)
	assert.True(t, removed)

	linked, err = r.Has(ctx, movie, tag)
	require.NoError(t, err)
	assert.False(t, linked)

	removed, err = r.Remove(ctx, "curator", movie, tag)
	require.NoError(t, err)
	assert.False(t, removed)

	deleted, err := r.DeletedRelationshipRecords(ctx, movie)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.True(t, deleted[0].Deleted())
	assert.Equal(t, "curator", deleted[0].DeletedBy.String)

	// A removed pair can be linked again with a fresh row.
	added, err = r.Add(ctx, "curator", movie, tag, nil)
	require.NoError(t, err)
	assert.True(t, added)
}

func TestAddValidation(t *testing.T) {
	e, ctx := setupEngine(t, nil)
	r, _ := e.Relation("movie_tags")

	movie := createRecord(t, e, ctx, "movie", map[string]interface{}{"title": "Heat"})
	director := createRecord(t, e, ctx, "director", map[string]interface{}{"name": "Mann"})
	other := createRecord(t, e, ctx, "movie", map[string]interface{}{"title": "Thief"})

	_, err := r.Add(ctx, "", nil, movie, nil)
	assert.ErrorIs(t, err, dorm.ErrMissingID)

	_, err = r.Add(ctx, "", movie, &dorm.Record{Entity: "tag"}, nil)
	assert.ErrorIs(t, err, dorm.ErrMissingID)

	_, err = r.Add(ctx, "", movie, director, nil)
	assert.ErrorIs(t, err, dorm.ErrEntityNotParticipant)

	_, err = r.Add(ctx, "", movie, other, nil)
	assert.ErrorIs(t, err, dorm.ErrEntityNotParticipant)
}

func TestAddExtraFields(t *testing.T) {
	e, ctx := setupEngine(t, nil)
	r, _ := e.Relation("movie_quotes")

	movie := createRecord(t, e, ctx, "movie", map[string]interface{}{"title": "Heat"})
	quote := createRecord(t, e, ctx, "quote", map[string]interface{}{"content": "Don't let yourself get attached."})

	added, err := r.Add(ctx, "", movie, quote, map[string]interface{}{"position": 2})
	require.NoError(t, err)
	assert.True(t, added)

	rows, err := r.Related(ctx, quote)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].Fields["position"])
	assert.Equal(t, movie.ID, rows[0].Ref("one_movie_id"))
	assert.Equal(t, quote.ID, rows[0].Ref("many_quote_id"))

	_, err = r.Add(ctx, "", movie, createRecord(t, e, ctx, "quote", map[string]interface{}{"content": "x"}), map[string]interface{}{"weight": 1})
	var fieldErr schema.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "weight", fieldErr.Field)
}

func TestUpdateRelation(t *testing.T) {
	e, ctx := setupEngine(t, nil)
	r, _ := e.Relation("movie_quotes")

	movie := createRecord(t, e, ctx, "movie", map[string]interface{}{"title": "Heat"})
	quote := createRecord(t, e, ctx, "quote", map[string]interface{}{"content": "x"})
	stray := createRecord(t, e, ctx, "quote", map[string]interface{}{"content": "y"})

	_, err := r.Add(ctx, "curator", movie, quote, map[string]interface{}{"position": 1})
	require.NoError(t, err)

	updated, err := r.UpdateRelation(ctx, "editor", movie, quote, map[string]interface{}{"position": 9})
	require.NoError(t, err)
	assert.True(t, updated)

	rows, err := r.Related(ctx, quote)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(9), rows[0].Fields["position"])
	assert.Equal(t, "curator", rows[0].CreatedBy)
	assert.Equal(t, "editor", rows[0].UpdatedBy)

	updated, err = r.UpdateRelation(ctx, "editor", movie, stray, map[string]interface{}{"position": 3})
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestOneToOneReplacement(t *testing.T) {
	e, ctx := setupEngine(t, nil)
	o, err := e.OneToOne("movie_director")
	require.NoError(t, err)

	movie := createRecord(t, e, ctx, "movie", map[string]interface{}{"title": "Heat"})
	mann := createRecord(t, e, ctx, "director", map[string]interface{}{"name": "Mann"})
	scott := createRecord(t, e, ctx, "director", map[string]interface{}{"name": "Scott"})

	set, err := o.SetRelation(ctx, "", movie, mann, nil)
	require.NoError(t, err)
	assert.True(t, set)

	partner, err := o.Partner(ctx, movie)
	require.NoError(t, err)
	assert.Equal(t, mann.ID, partner.Ref("director_id"))

	// Linking the same movie elsewhere displaces the old pairing.
	set, err = o.SetRelation(ctx, "", movie, scott, nil)
	require.NoError(t, err)
	assert.True(t, set)

	linked, err := o.Has(ctx, movie, mann)
	require.NoError(t, err)
	assert.False(t, linked)

	linked, err = o.Has(ctx, movie, scott)
	require.NoError(t, err)
	assert.True(t, linked)

	// The displaced director is free again.
	thief := createRecord(t, e, ctx, "movie", map[string]interface{}{"title": "Thief"})
	set, err = o.SetRelation(ctx, "", thief, mann, nil)
	require.NoError(t, err)
	assert.True(t, set)

	// Claiming an already-linked director frees their previous movie.
	set, err = o.SetRelation(ctx, "", movie, mann, nil)
	require.NoError(t, err)
	assert.True(t, set)

	_, err = o.Partner(ctx, thief)
	assert.ErrorIs(t, err, dorm.ErrRecordNotFound)
}

func TestOneToOneOtherEntity(t *testing.T) {
	e, _ := setupEngine(t, nil)
	o, _ := e.OneToOne("movie_director")

	other, err := o.OtherEntity("movie")
	require.NoError(t, err)
	assert.Equal(t, "director", other)

	other, err = o.OtherEntity("director")
	require.NoError(t, err)
	assert.Equal(t, "movie", other)

	_, err = o.OtherEntity("tag")
	assert.ErrorIs(t, err, dorm.ErrEntityNotParticipant)
}

func TestDeleteRecordRestrict(t *testing.T) {
	e, ctx := setupEngine(t, nil)

	movie := createRecord(t, e, ctx, "movie", map[string]interface{}{"title": "Heat"})
	mann := createRecord(t, e, ctx, "director", map[string]interface{}{"name": "Mann"})
	quote := createRecord(t, e, ctx, "quote", map[string]interface{}{"content": "x"})

	oneToOne, _ := e.OneToOne("movie_director")
	_, err := oneToOne.SetRelation(ctx, "", movie, mann, nil)
	require.NoError(t, err)

	oneToMany, _ := e.OneToMany("movie_quotes")
	_, err = oneToMany.Add(ctx, "", movie, quote, nil)
	require.NoError(t, err)

	err = e.DeleteRecord(ctx, "janitor", movie)
	assert.ErrorIs(t, err, dorm.ErrRestricted)

	// The conflict left everything in place, including the cascade-bound
	// quote link that would have been swept otherwise.
	store, _ := e.Records("movie")
	_, err = store.First(ctx, movie.ID)
	require.NoError(t, err)

	linked, err := oneToMany.Has(ctx, movie, quote)
	require.NoError(t, err)
	assert.True(t, linked)

	// With the blocking link removed the deletion goes through.
	_, err = oneToOne.Remove(ctx, "", movie, mann)
	require.NoError(t, err)
	require.NoError(t, e.DeleteRecord(ctx, "janitor", movie))

	_, err = store.First(ctx, movie.ID)
	assert.ErrorIs(t, err, dorm.ErrRecordNotFound)
}

func TestDeleteRecordCascadeFromOne(t *testing.T) {
	e, ctx := setupEngine(t, nil)

	movie := createRecord(t, e, ctx, "movie", map[string]interface{}{"title": "Heat"})
	first := createRecord(t, e, ctx, "quote", map[string]interface{}{"content": "a"})
	second := createRecord(t, e, ctx, "quote", map[string]interface{}{"content": "b"})
	kept := createRecord(t, e, ctx, "quote", map[string]interface{}{"content": "c"})

	r, _ := e.Relation("movie_quotes")
	for _, q := range []*dorm.Record{first, second} {
		_, err := r.Add(ctx, "", movie, q, nil)
		require.NoError(t, err)
	}

	require.NoError(t, e.DeleteRecord(ctx, "janitor", movie))

	// The one side takes its quotes down with it.
	quotes, _ := e.Records("quote")
	for _, q := range []*dorm.Record{first, second} {
		_, err := quotes.First(ctx, q.ID)
		assert.ErrorIs(t, err, dorm.ErrRecordNotFound)
	}
	_, err := quotes.First(ctx, kept.ID)
	require.NoError(t, err)

	rows, err := r.Related(ctx, movie)
	require.NoError(t, err)
	assert.Empty(t, rows)

	deleted, err := r.DeletedRelationshipRecords(ctx, movie)
	require.NoError(t, err)
	assert.Len(t, deleted, 2)
}

func TestDeleteRecordCascadeFromMany(t *testing.T) {
	e, ctx := setupEngine(t, nil)

	movie := createRecord(t, e, ctx, "movie", map[string]interface{}{"title": "Heat"})
	quote := createRecord(t, e, ctx, "quote", map[string]interface{}{"content": "a"})

	r, _ := e.Relation("movie_quotes")
	_, err := r.Add(ctx, "", movie, quote, nil)
	require.NoError(t, err)

	require.NoError(t, e.DeleteRecord(ctx, "janitor", quote))

	// A leaving quote only takes its own link; the movie survives.
	movies, _ := e.Records("movie")
	_, err = movies.First(ctx, movie.ID)
	require.NoError(t, err)

	rows, err := r.Related(ctx, movie)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeleteRecordManyToManyHardDelete(t *testing.T) {
	e, ctx := setupEngine(t, nil)
	r, _ := e.Relation("movie_tags")

	movie := createRecord(t, e, ctx, "movie", map[string]interface{}{"title": "Heat"})
	crime := createRecord(t, e, ctx, "tag", map[string]interface{}{"label": "crime"})
	noir := createRecord(t, e, ctx, "tag", map[string]interface{}{"label": "noir"})

	for _, tag := range []*dorm.Record{crime, noir} {
		_, err := r.Add(ctx, "", movie, tag, nil)
		require.NoError(t, err)
	}
	// Leave a soft-deleted row behind as link history.
	_, err := r.Remove(ctx, "", movie, noir)
	require.NoError(t, err)

	require.NoError(t, e.DeleteRecord(ctx, "janitor", movie))

	// Join rows are purged outright, history included; tags are untouched.
	rows, err := r.Related(ctx, movie)
	require.NoError(t, err)
	assert.Empty(t, rows)

	deleted, err := r.DeletedRelationshipRecords(ctx, movie)
	require.NoError(t, err)
	assert.Empty(t, deleted)

	tags, _ := e.Records("tag")
	for _, tag := range []*dorm.Record{crime, noir} {
		_, err := tags.First(ctx, tag.ID)
		require.NoError(t, err)
	}
}

func TestHandleEntityDeletionActions(t *testing.T) {
	e, ctx := setupEngine(t, nil)
	r, _ := e.Relation("movie_quotes")

	movie := createRecord(t, e, ctx, "movie", map[string]interface{}{"title": "Heat"})
	quote := createRecord(t, e, ctx, "quote", map[string]interface{}{"content": "a"})
	_, err := r.Add(ctx, "", movie, quote, nil)
	require.NoError(t, err)

	// Soft delete sweeps the link rows but leaves partner records alone.
	require.NoError(t, r.HandleEntityDeletion(ctx, "janitor", movie, schema.SoftDelete))

	rows, err := r.Related(ctx, movie)
	require.NoError(t, err)
	assert.Empty(t, rows)

	quotes, _ := e.Records("quote")
	_, err = quotes.First(ctx, quote.ID)
	require.NoError(t, err)

	err = r.HandleEntityDeletion(ctx, "", movie, schema.SetDefault)
	assert.ErrorIs(t, err, dorm.ErrNotImplemented)

	err = r.HandleEntityDeletion(ctx, "", movie, schema.CascadeAction("explode"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cascade action")
}

func TestDeleteRecordValidation(t *testing.T) {
	e, ctx := setupEngine(t, nil)

	err := e.DeleteRecord(ctx, "", nil)
	assert.ErrorIs(t, err, dorm.ErrMissingID)

	err = e.DeleteRecord(ctx, "", &dorm.Record{Entity: "movie"})
	assert.ErrorIs(t, err, dorm.ErrMissingID)
}
