package query

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SortField is one ORDER BY term. Field is a view property name resolved
// through the ProjectionMap.
type SortField struct {
	Field      string
	Descending bool
}

// ParseSortFields reads "title,-created_at" style sort strings. A leading
// "-" sorts descending. Empty input yields nil.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// params allocates positional placeholders in the order arguments are bound.
type params struct {
	args []any
}

func (p *params) bind(v any) string {
	p.args = append(p.args, v)
	return "$" + strconv.Itoa(len(p.args))
}

type predicate func(p *params) string

// Builder assembles SELECT statements over a ProjectionMap. Where methods
// ignore nil or empty values so optional filters chain without branching.
type Builder struct {
	projection  *ProjectionMap
	predicates  []predicate
	order       []SortField
	defaultSort []SortField
}

// NewBuilder starts a query over projection. defaultSort applies when no
// OrderByFields call supplies a mapped field.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{projection: projection, defaultSort: defaultSort}
}

// Build returns the full SELECT with conditions and ordering.
func (b *Builder) Build() (string, []any) {
	var p params
	where := b.where(&p)
	return fmt.Sprintf("SELECT %s FROM %s%s%s",
		b.projection.Columns(), b.projection.From(), where, b.orderBy()), p.args
}

// BuildCount returns a COUNT(*) over the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	var p params
	where := b.where(&p)
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.projection.From(), where), p.args
}

// BuildPage returns Build limited to one page. page is 1-based.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	q, args := b.Build()
	offset := max(page-1, 0) * pageSize
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", q, pageSize, offset), args
}

// BuildSingle selects the row whose idField equals id, ignoring other conditions.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		b.projection.Columns(), b.projection.From(), b.projection.Column(idField)), []any{id}
}

// BuildSingleOrNull selects at most one row matching the current conditions.
func (b *Builder) BuildSingleOrNull() (string, []any) {
	var p params
	where := b.where(&p)
	return fmt.Sprintf("SELECT %s FROM %s%s%s LIMIT 1",
		b.projection.Columns(), b.projection.From(), where, b.orderBy()), p.args
}

// OrderByFields replaces the default ordering. Fields the projection does
// not map are dropped.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.order = fields
	return b
}

// WhereEquals matches field = value.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	return b.add(func(p *params) string {
		return b.projection.Column(field) + " = " + p.bind(value)
	})
}

// WhereContains matches field ILIKE %value%.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	return b.add(func(p *params) string {
		return b.projection.Column(field) + " ILIKE " + p.bind(likePattern(*value))
	})
}

// WhereIn matches field IN (values...).
func (b *Builder) WhereIn(field string, values []any) *Builder {
	if len(values) == 0 {
		return b
	}
	return b.add(func(p *params) string {
		marks := make([]string, len(values))
		for i, v := range values {
			marks[i] = p.bind(v)
		}
		return b.projection.Column(field) + " IN (" + strings.Join(marks, ", ") + ")"
	})
}

// WhereNullable matches field = value, or field IS NULL when value is nil.
func (b *Builder) WhereNullable(field string, value any) *Builder {
	if isNil(value) {
		return b.WhereNull(field, true)
	}
	return b.WhereEquals(field, value)
}

// WhereNull matches field IS NULL when null is true and IS NOT NULL otherwise.
func (b *Builder) WhereNull(field string, null bool) *Builder {
	op := " IS NOT NULL"
	if null {
		op = " IS NULL"
	}
	return b.add(func(*params) string {
		return b.projection.Column(field) + op
	})
}

// WhereHasNull applies WhereNull only when null is set.
func (b *Builder) WhereHasNull(field string, null *bool) *Builder {
	if null == nil {
		return b
	}
	return b.WhereNull(field, *null)
}

// WhereCompare matches field <op> value for one of =, <>, <, <=, >, >=.
// Unknown operators panic since they are programming errors.
func (b *Builder) WhereCompare(field, op string, value any) *Builder {
	switch op {
	case "=", "<>", "<", "<=", ">", ">=":
	default:
		panic(fmt.Sprintf("query: unsupported operator %q", op))
	}
	if isNil(value) {
		return b
	}
	return b.add(func(p *params) string {
		return b.projection.Column(field) + " " + op + " " + p.bind(value)
	})
}

// WhereJSONContains matches a jsonb field containing doc (field @> doc).
// doc is marshaled to JSON; a marshal failure matches nothing.
func (b *Builder) WhereJSONContains(field string, doc any) *Builder {
	if isNil(doc) {
		return b
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return b.add(func(*params) string { return "FALSE" })
	}
	return b.add(func(p *params) string {
		return b.projection.Column(field) + " @> " + p.bind(string(data)) + "::jsonb"
	})
}

// WhereSearch matches search against any of fields with ILIKE.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || strings.TrimSpace(*search) == "" || len(fields) == 0 {
		return b
	}
	pattern := likePattern(strings.TrimSpace(*search))
	return b.add(func(p *params) string {
		terms := make([]string, len(fields))
		for i, f := range fields {
			terms[i] = b.projection.Column(f) + " ILIKE " + p.bind(pattern)
		}
		return "(" + strings.Join(terms, " OR ") + ")"
	})
}

func (b *Builder) add(pred predicate) *Builder {
	b.predicates = append(b.predicates, pred)
	return b
}

func (b *Builder) where(p *params) string {
	if len(b.predicates) == 0 {
		return ""
	}
	clauses := make([]string, len(b.predicates))
	for i, pred := range b.predicates {
		clauses[i] = pred(p)
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

func (b *Builder) orderBy() string {
	terms := b.sortTerms(b.order)
	if len(terms) == 0 {
		terms = b.sortTerms(b.defaultSort)
	}
	if len(terms) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func (b *Builder) sortTerms(fields []SortField) []string {
	var terms []string
	for _, f := range fields {
		col, ok := b.projection.Lookup(f.Field)
		if !ok {
			continue
		}
		if f.Descending {
			terms = append(terms, col+" DESC")
		} else {
			terms = append(terms, col+" ASC")
		}
	}
	return terms
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
