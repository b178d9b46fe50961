package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"dorm.io/dorm"
	"dorm.io/dorm/schema"
)

// ActorHeader names the request header carrying the audit identity. Absent
// or empty, mutations are recorded under the engine's default actor.
const ActorHeader = "X-Actor"

func actorOf(r *http.Request) string {
	return r.Header.Get(ActorHeader)
}

const (
	formatPlain = "plain"
	formatGrid  = "grid"
)

// parseListQuery reads page, per_page, sort, order, q and repeated
// filter=field=value parameters, plus the response format.
func parseListQuery(r *http.Request) (*dorm.Query, string, error) {
	values := r.URL.Query()
	query := &dorm.Query{Sort: values.Get("sort"), Search: values.Get("q")}

	var err error
	if query.Page, err = intParam(values, "page"); err != nil {
		return nil, "", err
	}
	if query.PerPage, err = intParam(values, "per_page"); err != nil {
		return nil, "", err
	}

	switch order := strings.ToLower(values.Get("order")); order {
	case "", "asc", "desc":
		query.Order = order
	default:
		return nil, "", newError(CodeRequestInvalid, "order must be asc or desc, got %q", order)
	}

	for _, raw := range values["filter"] {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || name == "" {
			return nil, "", newError(CodeRequestInvalid, "filter %q is not field=value", raw)
		}
		if query.Filters == nil {
			query.Filters = map[string]interface{}{}
		}
		query.Filters[name] = value
	}

	format := values.Get("format")
	switch format {
	case "", formatPlain:
		format = formatPlain
	case formatGrid:
	default:
		return nil, "", newError(CodeRequestInvalid, "unknown format %q", format)
	}
	return query, format, nil
}

func intParam(values map[string][]string, name string) (int, error) {
	raw := ""
	if vs := values[name]; len(vs) > 0 {
		raw = vs[0]
	}
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, newError(CodeRequestInvalid, "%s must be a non-negative integer, got %q", name, raw)
	}
	return n, nil
}

// decodeBody reads the JSON object payload. Optional callers get an empty
// map for an empty body instead of an error.
func decodeBody(r *http.Request, required bool) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	err := json.NewDecoder(r.Body).Decode(&fields)
	switch {
	case errors.Is(err, io.EOF):
		if required {
			return nil, newError(CodeRequestInvalid, "request body required")
		}
		return fields, nil
	case err != nil:
		return nil, wrapError(err, CodeRequestInvalid, "malformed request body")
	}
	return fields, nil
}

// validName bounds path parameters before they reach the registry.
func validName(kind, name string) error {
	if !schema.NameRegexp.MatchString(name) {
		return newError(CodeRequestInvalid, "invalid %s name %q", kind, name)
	}
	return nil
}
