// Package gateway exposes generic CRUD, soft-delete lifecycle and
// relationship operations over every registered entity. One wildcard route
// table serves all entities; literal patterns outrank wildcards by score,
// so a purpose-built route can shadow the generic surface per entity.
package gateway

import (
	"context"
	"net/http"
	"sort"

	"dorm.io/dorm"
	"dorm.io/dorm/logger"
	"dorm.io/dorm/schema"
)

// Gateway dispatches record requests against an engine's registered
// metadata. Entity and relationship names resolve per request, so metadata
// registered at startup is the only coupling.
type Gateway struct {
	engine *dorm.Engine
	logger logger.Interface
	router *Router
}

// New wires the full route table.
func New(engine *dorm.Engine) *Gateway {
	g := &Gateway{engine: engine, logger: engine.Logger, router: NewRouter()}

	g.router.Handle(http.MethodGet, "/*", []string{"entity"}, g.list)
	g.router.Handle(http.MethodGet, "/*/*", []string{"entity", "id"}, g.retrieve)
	g.router.Handle(http.MethodGet, "/*/deleted", []string{"entity"}, g.listDeleted)
	g.router.Handle(http.MethodGet, "/*/*/link/*", []string{"entity", "id", "rel"}, g.listRelated)
	g.router.Handle(http.MethodPost, "/*", []string{"entity"}, g.create)
	g.router.Handle(http.MethodPost, "/*/*/link/*", []string{"entity", "id", "rel"}, g.createAndLink)
	g.router.Handle(http.MethodPut, "/*/*", []string{"entity", "id"}, g.update)
	g.router.Handle(http.MethodPut, "/*/*/restore", []string{"entity", "id"}, g.restore)
	g.router.Handle(http.MethodPut, "/*/*/link/*/*", []string{"entity", "id", "rel", "otherId"}, g.link)
	g.router.Handle(http.MethodDelete, "/*/*", []string{"entity", "id"}, g.remove)
	g.router.Handle(http.MethodDelete, "/*/*/link/*/*", []string{"entity", "id", "rel", "otherId"}, g.unlink)

	return g
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}

// Router exposes the dispatch table so callers can shadow routes or replace
// the not-found handler before serving.
func (g *Gateway) Router() *Router {
	return g.router
}

// fail classifies, logs internal failures with their full cause, and writes
// the error response.
func (g *Gateway) fail(w http.ResponseWriter, r *http.Request, err error) {
	err = classify(err)
	if HTTPStatus(err) == http.StatusInternalServerError {
		g.logger.Error(r.Context(), "gateway %s %s: %v", r.Method, r.URL.Path, err)
	}
	writeError(w, err)
}

func (g *Gateway) store(name string) (*dorm.Records, error) {
	if err := validName("entity", name); err != nil {
		return nil, err
	}
	store, err := g.engine.Records(name)
	if err != nil {
		return nil, classify(err)
	}
	return store, nil
}

func (g *Gateway) relation(name string) (*dorm.Relation, error) {
	if err := validName("relationship", name); err != nil {
		return nil, err
	}
	relation, err := g.engine.Relation(name)
	if err != nil {
		return nil, classify(err)
	}
	return relation, nil
}

func (g *Gateway) list(w http.ResponseWriter, r *http.Request, params Params) {
	store, err := g.store(params["entity"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	query, format, err := parseListQuery(r)
	if err != nil {
		g.fail(w, r, err)
		return
	}

	ctx := r.Context()
	records, err := store.Find(ctx, query)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	total, err := store.Count(ctx, query)
	if err != nil {
		g.fail(w, r, err)
		return
	}

	if format == formatGrid {
		writeJSON(w, http.StatusOK, buildGrid(store.Entity(), records, total))
		return
	}

	response := Response{Data: records, Filter: query.Filters, Sort: sortClause(query)}
	if query.PerPage > 0 {
		page := query.Page
		if page < 1 {
			page = 1
		}
		pagination := dorm.PageOf(page, query.PerPage, total)
		response.Pagination = &pagination
	}
	writeJSON(w, http.StatusOK, response)
}

func sortClause(query *dorm.Query) string {
	if query.Sort == "" || query.Order == "" {
		return query.Sort
	}
	return query.Sort + " " + query.Order
}

func (g *Gateway) retrieve(w http.ResponseWriter, r *http.Request, params Params) {
	store, err := g.store(params["entity"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	record, err := store.First(r.Context(), params["id"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, record, "")
}

func (g *Gateway) create(w http.ResponseWriter, r *http.Request, params Params) {
	store, err := g.store(params["entity"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	payload, err := decodeBody(r, true)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	plain, selections, err := g.splitSelections(store.Entity().Name, payload)
	if err != nil {
		g.fail(w, r, err)
		return
	}

	ctx, actor := r.Context(), actorOf(r)
	record, err := store.Create(ctx, actor, plain)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	for _, sel := range selections {
		if err := g.applySelection(ctx, actor, record, sel); err != nil {
			g.fail(w, r, err)
			return
		}
	}
	writeData(w, http.StatusCreated, record, "record created")
}

func (g *Gateway) update(w http.ResponseWriter, r *http.Request, params Params) {
	store, err := g.store(params["entity"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	payload, err := decodeBody(r, true)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	plain, selections, err := g.splitSelections(store.Entity().Name, payload)
	if err != nil {
		g.fail(w, r, err)
		return
	}

	ctx, actor := r.Context(), actorOf(r)
	record, err := store.Update(ctx, actor, params["id"], plain)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	for _, sel := range selections {
		if err := g.applySelection(ctx, actor, record, sel); err != nil {
			g.fail(w, r, err)
			return
		}
	}
	writeData(w, http.StatusOK, record, "record updated")
}

// remove soft-deletes a record after the engine applies every relationship's
// cascade policy.
func (g *Gateway) remove(w http.ResponseWriter, r *http.Request, params Params) {
	store, err := g.store(params["entity"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	ctx := r.Context()
	record, err := store.First(ctx, params["id"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	if err := g.engine.DeleteRecord(ctx, actorOf(r), record); err != nil {
		g.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"id": record.ID}, "record deleted")
}

func (g *Gateway) restore(w http.ResponseWriter, r *http.Request, params Params) {
	store, err := g.store(params["entity"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	ctx := r.Context()
	if err := store.Restore(ctx, actorOf(r), params["id"]); err != nil {
		g.fail(w, r, err)
		return
	}
	record, err := store.First(ctx, params["id"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, record, "record restored")
}

func (g *Gateway) listDeleted(w http.ResponseWriter, r *http.Request, params Params) {
	store, err := g.store(params["entity"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	records, err := store.FindDeleted(r.Context())
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, records, "")
}

func (g *Gateway) listRelated(w http.ResponseWriter, r *http.Request, params Params) {
	relation, err := g.relation(params["rel"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	store, err := g.store(params["entity"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	ctx := r.Context()
	record, err := store.First(ctx, params["id"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	rows, err := relation.Related(ctx, record)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, rows, "")
}

// createAndLink creates a record of the relationship's other side and links
// it to an existing parent. Two separate writes; a link failure leaves the
// created record in place.
func (g *Gateway) createAndLink(w http.ResponseWriter, r *http.Request, params Params) {
	relation, err := g.relation(params["rel"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	parentStore, err := g.store(params["entity"])
	if err != nil {
		g.fail(w, r, err)
		return
	}
	ctx := r.Context()
	parent, err := parentStore.First(ctx, params["id"])
	if err != nil {
		g.fail(w, r, err)
		return
	}

	rel := relation.Descriptor()
	childEntity, err := rel.OtherSide(parent.Entity)
	if err != nil {
		g.fail(w, r, newError(CodeRequestInvalid, "entity %s does not participate in relationship %s", parent.Entity, rel.Name))
		return
	}
	childStore, err := g.engine.Records(childEntity)
	if err != nil {
		g.fail(w, r, err)
		return
	}

	payload, err := decodeBody(r, true)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	plain, selections, err := g.splitSelections(childEntity, payload)
	if err != nil {
		g.fail(w, r, err)
		return
	}

	actor := actorOf(r)
	child, err := childStore.Create(ctx, actor, plain)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	for _, sel := range selections {
		if err := g.applySelection(ctx, actor, child, sel); err != nil {
			g.fail(w, r, err)
			return
		}
	}

	// Many-to-many pairs stack, every other kind holds one partner per
	// side, so the parent link goes through the replacing path there.
	if rel.Kind == schema.ManyToMany {
		_, err = relation.Add(ctx, actor, parent, child, nil)
	} else {
		err = g.setPartner(ctx, actor, child, rel, parent.ID)
	}
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, child, "record created and linked")
}

func (g *Gateway) link(w http.ResponseWriter, r *http.Request, params Params) {
	relation, record, other, err := g.resolvePair(r.Context(), params)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	extra, err := decodeBody(r, false)
	if err != nil {
		g.fail(w, r, err)
		return
	}

	added, err := relation.Add(r.Context(), actorOf(r), record, other, extra)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	message := "records linked"
	if !added {
		message = "records already linked"
	}
	writeData(w, http.StatusOK, map[string]interface{}{"linked": added}, message)
}

func (g *Gateway) unlink(w http.ResponseWriter, r *http.Request, params Params) {
	relation, record, other, err := g.resolvePair(r.Context(), params)
	if err != nil {
		g.fail(w, r, err)
		return
	}

	removed, err := relation.Remove(r.Context(), actorOf(r), record, other)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	if !removed {
		g.fail(w, r, newError(CodeRowNotFound, "no active link between %s and %s", record.ID, other.ID))
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"removed": true}, "records unlinked")
}

// resolvePair loads the two records a link or unlink names: the addressed
// record and the relationship's other side by otherId.
func (g *Gateway) resolvePair(ctx context.Context, params Params) (*dorm.Relation, *dorm.Record, *dorm.Record, error) {
	relation, err := g.relation(params["rel"])
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := g.store(params["entity"])
	if err != nil {
		return nil, nil, nil, err
	}
	record, err := store.First(ctx, params["id"])
	if err != nil {
		return nil, nil, nil, classify(err)
	}

	rel := relation.Descriptor()
	otherEntity, err := rel.OtherSide(record.Entity)
	if err != nil {
		return nil, nil, nil, newError(CodeRequestInvalid, "entity %s does not participate in relationship %s", record.Entity, rel.Name)
	}
	otherStore, err := g.engine.Records(otherEntity)
	if err != nil {
		return nil, nil, nil, classify(err)
	}
	other, err := otherStore.First(ctx, params["otherId"])
	if err != nil {
		return nil, nil, nil, classify(err)
	}
	return relation, record, other, nil
}

// selection is one relationship-selection field split out of a payload:
// `{partner}_id` naming the record's single partner, or null to clear it.
type selection struct {
	column    string
	rel       *schema.Relationship
	partnerID string
	clear     bool
}

// splitSelections separates plain entity fields from relationship-selection
// fields using registry metadata, never naming conventions.
func (g *Gateway) splitSelections(entity string, payload map[string]interface{}) (map[string]interface{}, []selection, error) {
	selectionFields := g.engine.Registry().SelectionFields(entity)

	plain := make(map[string]interface{}, len(payload))
	var selections []selection
	for name, value := range payload {
		rel, ok := selectionFields[name]
		if !ok {
			plain[name] = value
			continue
		}
		switch partnerID := value.(type) {
		case nil:
			selections = append(selections, selection{column: name, rel: rel, clear: true})
		case string:
			if partnerID == "" {
				return nil, nil, newError(CodeRequestInvalid, "selection field %s needs a record id", name)
			}
			selections = append(selections, selection{column: name, rel: rel, partnerID: partnerID})
		default:
			return nil, nil, newError(CodeRequestInvalid, "selection field %s needs a record id, got %T", name, value)
		}
	}
	sort.Slice(selections, func(i, j int) bool {
		return selections[i].column < selections[j].column
	})
	return plain, selections, nil
}

func (g *Gateway) applySelection(ctx context.Context, actor string, record *dorm.Record, sel selection) error {
	if sel.clear {
		return g.clearPartner(ctx, actor, record, sel.rel)
	}
	return g.setPartner(ctx, actor, record, sel.rel, sel.partnerID)
}

// setPartner points the record's single-partner relationship at partnerID:
// a no-op when the partner is unchanged, otherwise prior rows with a
// different partner are removed before the new link is added.
func (g *Gateway) setPartner(ctx context.Context, actor string, record *dorm.Record, rel *schema.Relationship, partnerID string) error {
	relation, err := g.engine.Relation(rel.Name)
	if err != nil {
		return classify(err)
	}
	partnerEntity, err := rel.OtherSide(record.Entity)
	if err != nil {
		return newError(CodeRequestInvalid, "entity %s does not participate in relationship %s", record.Entity, rel.Name)
	}
	partnerColumn, err := rel.ColumnFor(partnerEntity)
	if err != nil {
		return classify(err)
	}

	rows, err := relation.Related(ctx, record)
	if err != nil {
		return classify(err)
	}
	for _, row := range rows {
		if row.Ref(partnerColumn) == partnerID {
			return nil
		}
	}
	for _, row := range rows {
		prior := &dorm.Record{ID: row.Ref(partnerColumn), Entity: partnerEntity}
		if _, err := relation.Remove(ctx, actor, record, prior); err != nil {
			return classify(err)
		}
	}

	partnerStore, err := g.engine.Records(partnerEntity)
	if err != nil {
		return classify(err)
	}
	partner, err := partnerStore.First(ctx, partnerID)
	if err != nil {
		return classify(err)
	}
	_, err = relation.Add(ctx, actor, record, partner, nil)
	return classify(err)
}

func (g *Gateway) clearPartner(ctx context.Context, actor string, record *dorm.Record, rel *schema.Relationship) error {
	relation, err := g.engine.Relation(rel.Name)
	if err != nil {
		return classify(err)
	}
	partnerEntity, err := rel.OtherSide(record.Entity)
	if err != nil {
		return newError(CodeRequestInvalid, "entity %s does not participate in relationship %s", record.Entity, rel.Name)
	}
	partnerColumn, err := rel.ColumnFor(partnerEntity)
	if err != nil {
		return classify(err)
	}

	rows, err := relation.Related(ctx, record)
	if err != nil {
		return classify(err)
	}
	for _, row := range rows {
		prior := &dorm.Record{ID: row.Ref(partnerColumn), Entity: partnerEntity}
		if _, err := relation.Remove(ctx, actor, record, prior); err != nil {
			return classify(err)
		}
	}
	return nil
}
