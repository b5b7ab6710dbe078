package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonwraymond/blockpress/hooks"
	"github.com/jonwraymond/blockpress/store"
)

// Clause is a SQL fragment with the arguments of its placeholders.
type Clause struct {
	SQL  string
	Args []any
}

func (c *Clause) add(sql string, args ...any) {
	c.SQL += sql
	c.Args = append(c.Args, args...)
}

// PostClauses are the parts of a post query. Filters may rewrite any of
// them; Args is the normalized input and is informational.
type PostClauses struct {
	Args     PostArgs
	Distinct bool
	Fields   string
	Join     Clause
	Where    Clause
	GroupBy  string
	OrderBy  Clause
	// Limit is the page size, or -1 for no limit.
	Limit  int
	Offset int
}

// TermClauses are the parts of a term query.
type TermClauses struct {
	Args     TermArgs
	Distinct bool
	Fields   string
	Join     Clause
	Where    Clause
	OrderBy  Clause
	Limit    int
	Offset   int
}

// Hooks are the query extension points. The zero value has no callbacks.
// Filters are skipped for queries with suppress_filters set.
type Hooks struct {
	PostsClauses hooks.Filter[PostClauses]
	TermsClauses hooks.Filter[TermClauses]
}

const likeEscape = ` ESCAPE '\'`

// likeArg returns a LIKE pattern matching s anywhere, with '%' carried as
// the store's placeholder escape.
func likeArg(s string) string {
	return store.AddPlaceholderEscape("%" + store.EscapeLike(s) + "%")
}

func inList[T any](column string, values []T, not bool) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	op := " IN "
	if not {
		op = " NOT IN "
	}
	return column + op + "(" + placeholders(len(values)) + ")", args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// postClauses builds the clauses for normalized args.
func postClauses(a PostArgs, types *Types) (PostClauses, error) {
	c := PostClauses{Args: a, Fields: "posts.id", Limit: a.PostsPerPage}

	addIn := func(column string, values any, not bool) {
		var sql string
		var args []any
		switch v := values.(type) {
		case []string:
			if len(v) == 0 {
				return
			}
			sql, args = inList(column, v, not)
		case []int64:
			if len(v) == 0 {
				return
			}
			sql, args = inList(column, v, not)
		}
		c.Where.add(" AND "+sql, args...)
	}
	addIn("posts.post_type", a.PostType, false)
	addIn("posts.post_status", a.PostStatus, false)
	addIn("posts.post_author", a.Author, false)
	addIn("posts.id", a.IDs, false)
	addIn("posts.id", a.ExcludeIDs, true)
	if a.Name != "" {
		c.Where.add(" AND posts.post_name = ?", a.Name)
	}

	for _, term := range strings.Fields(a.Search) {
		like := likeArg(term)
		c.Where.add(" AND ((posts.post_title LIKE ?"+likeEscape+") OR (posts.post_excerpt LIKE ?"+likeEscape+
			") OR (posts.post_content LIKE ?"+likeEscape+"))", like, like, like)
	}

	for i, m := range a.MetaQuery {
		if err := addMetaClause(&c, i, m); err != nil {
			return PostClauses{}, err
		}
	}
	for _, t := range a.TaxQuery {
		if err := addTaxClause(&c, t, types); err != nil {
			return PostClauses{}, err
		}
	}

	addPostOrder(&c, a)

	if a.PostsPerPage > 0 {
		c.Offset = a.Offset
		if c.Offset == 0 {
			c.Offset = (a.Paged - 1) * a.PostsPerPage
		}
	}
	return c, nil
}

func addMetaClause(c *PostClauses, i int, m MetaClause) error {
	alias := "mt" + strconv.Itoa(i)
	switch m.Compare {
	case "EXISTS":
		c.Join.add(" INNER JOIN postmeta AS "+alias+" ON (posts.id = "+alias+".post_id AND "+alias+".meta_key = ?)", m.Key)
	case "NOT EXISTS":
		c.Join.add(" LEFT JOIN postmeta AS "+alias+" ON (posts.id = "+alias+".post_id AND "+alias+".meta_key = ?)", m.Key)
		c.Where.add(" AND " + alias + ".meta_id IS NULL")
	default:
		c.Join.add(" INNER JOIN postmeta AS " + alias + " ON (posts.id = " + alias + ".post_id)")
		value := alias + ".meta_value"
		if m.Type == "NUMERIC" {
			value = "CAST(" + value + " AS NUMERIC)"
		}
		c.Where.add(" AND ("+alias+".meta_key = ?", m.Key)
		switch m.Compare {
		case "IN", "NOT IN":
			sql, args := inList(value, m.Value, m.Compare == "NOT IN")
			c.Where.add(" AND "+sql+")", args...)
		case "LIKE", "NOT LIKE":
			c.Where.add(" AND "+value+" "+m.Compare+" ?"+likeEscape+")", likeArg(m.Value[0]))
		default:
			c.Where.add(" AND "+value+" "+m.Compare+" ?)", m.Value[0])
		}
	}
	c.GroupBy = "posts.id"
	return nil
}

var taxFieldColumns = map[string]string{
	"term_id":          "t.term_id",
	"slug":             "t.slug",
	"name":             "t.name",
	"term_taxonomy_id": "tt.term_taxonomy_id",
}

func addTaxClause(c *PostClauses, t TaxClause, types *Types) error {
	if _, ok := types.Taxonomy(t.Taxonomy); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTaxonomy, t.Taxonomy)
	}

	if t.Operator == "EXISTS" || t.Operator == "NOT EXISTS" {
		sql := "posts.id IN (SELECT tr.object_id FROM term_relationships AS tr" +
			" INNER JOIN term_taxonomy AS tt ON tr.term_taxonomy_id = tt.term_taxonomy_id WHERE tt.taxonomy = ?)"
		if t.Operator == "NOT EXISTS" {
			sql = strings.Replace(sql, " IN ", " NOT IN ", 1)
		}
		c.Where.add(" AND "+sql, t.Taxonomy)
		return nil
	}

	terms := make([]any, len(t.Terms))
	for i, term := range t.Terms {
		terms[i] = term
		if t.Field == "term_id" || t.Field == "term_taxonomy_id" {
			id, err := strconv.ParseInt(term, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: tax_query %s %q is not numeric", ErrInvalidArgs, t.Field, term)
			}
			terms[i] = id
		}
	}
	selected := "SELECT tt.term_taxonomy_id FROM term_taxonomy AS tt INNER JOIN terms AS t ON t.term_id = tt.term_id" +
		" WHERE tt.taxonomy = ? AND " + taxFieldColumns[t.Field] + " IN (" + placeholders(len(terms)) + ")"
	args := append([]any{t.Taxonomy}, terms...)

	switch t.Operator {
	case "AND":
		c.Where.add(" AND (SELECT COUNT(DISTINCT tr.term_taxonomy_id) FROM term_relationships AS tr"+
			" WHERE tr.object_id = posts.id AND tr.term_taxonomy_id IN ("+selected+")) = ?",
			append(args, len(terms))...)
		return nil
	case "IN", "NOT IN":
		if t.IncludeChildren != nil && *t.IncludeChildren {
			selected = "WITH RECURSIVE tree(id) AS (" + selected +
				" UNION SELECT c.term_taxonomy_id FROM term_taxonomy AS c" +
				" INNER JOIN term_taxonomy AS p ON c.parent = p.term_id AND c.taxonomy = p.taxonomy" +
				" INNER JOIN tree ON tree.id = p.term_taxonomy_id) SELECT id FROM tree"
		}
		op := " IN "
		if t.Operator == "NOT IN" {
			op = " NOT IN "
		}
		c.Where.add(" AND posts.id"+op+"(SELECT tr.object_id FROM term_relationships AS tr"+
			" WHERE tr.term_taxonomy_id IN ("+selected+"))", args...)
		return nil
	default:
		return fmt.Errorf("%w: tax_query operator %q", ErrInvalidArgs, t.Operator)
	}
}

func addPostOrder(c *PostClauses, a PostArgs) {
	var parts []string
	for _, key := range a.OrderBy {
		switch key {
		case "none":
			return
		case "rand":
			parts = append(parts, "RANDOM()")
		case "post__in":
			if len(a.IDs) == 0 {
				continue
			}
			var b strings.Builder
			b.WriteString("CASE posts.id")
			for i, id := range a.IDs {
				fmt.Fprintf(&b, " WHEN %d THEN %d", id, i)
			}
			b.WriteString(" END")
			parts = append(parts, b.String())
		default:
			parts = append(parts, postOrderColumns[key]+" "+a.Order)
		}
	}
	if len(parts) == 0 {
		return
	}
	last := a.OrderBy[len(a.OrderBy)-1]
	if last != "rand" && last != "id" {
		parts = append(parts, "posts.id "+a.Order)
	}
	c.OrderBy.add(" ORDER BY " + strings.Join(parts, ", "))
}

// postRequests assembles the row query and, when rows are counted, the
// found-rows query.
func postRequests(c PostClauses) (store.Request, store.Request) {
	var main Clause
	main.add("SELECT ")
	if c.Distinct {
		main.add("DISTINCT ")
	}
	main.add(c.Fields + " FROM posts")
	main.add(c.Join.SQL, c.Join.Args...)
	main.add(" WHERE 1=1")
	main.add(c.Where.SQL, c.Where.Args...)
	if c.GroupBy != "" {
		main.add(" GROUP BY " + c.GroupBy)
	}
	main.add(c.OrderBy.SQL, c.OrderBy.Args...)
	main.add(limitSQL(c.Limit, c.Offset))

	var count Clause
	count.add("SELECT COUNT(DISTINCT posts.id) FROM posts")
	count.add(c.Join.SQL, c.Join.Args...)
	count.add(" WHERE 1=1")
	count.add(c.Where.SQL, c.Where.Args...)

	return store.Request{SQL: main.SQL, Args: main.Args}, store.Request{SQL: count.SQL, Args: count.Args}
}

// termClauses builds the clauses for normalized term args.
func termClauses(a TermArgs) TermClauses {
	c := TermClauses{Args: a, Limit: a.Number, Offset: a.Offset}

	switch {
	case a.Fields == FieldsCount && len(a.ObjectIDs) > 0:
		c.Fields = "COUNT(DISTINCT tt.term_taxonomy_id)"
	case a.Fields == FieldsCount:
		c.Fields = "COUNT(*)"
	case a.Fields == FieldsWithObjID:
		c.Fields = store.TermColumns + ", tr.object_id"
	default:
		c.Fields = store.TermColumns
		c.Distinct = len(a.ObjectIDs) > 0
	}

	if len(a.ObjectIDs) > 0 {
		c.Join.add(" INNER JOIN term_relationships AS tr ON tr.term_taxonomy_id = tt.term_taxonomy_id")
	}

	addIn := func(sql string, args []any) { c.Where.add(" AND "+sql, args...) }
	if len(a.Taxonomy) > 0 {
		addIn(inList("tt.taxonomy", a.Taxonomy, false))
	}
	if len(a.Include) > 0 {
		addIn(inList("t.term_id", a.Include, false))
	}
	if len(a.Exclude) > 0 {
		addIn(inList("t.term_id", a.Exclude, true))
	}
	if len(a.Slug) > 0 {
		addIn(inList("t.slug", a.Slug, false))
	}
	if len(a.Name) > 0 {
		addIn(inList("t.name", a.Name, false))
	}
	if len(a.ObjectIDs) > 0 {
		addIn(inList("tr.object_id", a.ObjectIDs, false))
	}
	if a.Search != "" {
		like := likeArg(a.Search)
		c.Where.add(" AND ((t.name LIKE ?"+likeEscape+") OR (t.slug LIKE ?"+likeEscape+"))", like, like)
	}
	if boolValue(a.HideEmpty, true) {
		c.Where.add(" AND tt.count > 0")
	}
	if a.Parent != nil {
		c.Where.add(" AND tt.parent = ?", *a.Parent)
	}

	if a.Fields == FieldsCount {
		c.Limit, c.Offset = 0, 0
		return c
	}
	switch a.OrderBy {
	case "none":
	case "include":
		if len(a.Include) > 0 {
			var b strings.Builder
			b.WriteString(" ORDER BY CASE t.term_id")
			for i, id := range a.Include {
				fmt.Fprintf(&b, " WHEN %d THEN %d", id, i)
			}
			b.WriteString(" END")
			c.OrderBy.add(b.String())
		}
	default:
		c.OrderBy.add(" ORDER BY " + termOrderColumns[a.OrderBy] + " " + a.Order + ", t.term_id " + a.Order)
	}
	return c
}

func termRequest(c TermClauses) store.Request {
	var q Clause
	q.add("SELECT ")
	if c.Distinct {
		q.add("DISTINCT ")
	}
	q.add(c.Fields + " FROM terms AS t INNER JOIN term_taxonomy AS tt ON t.term_id = tt.term_id")
	q.add(c.Join.SQL, c.Join.Args...)
	q.add(" WHERE 1=1")
	q.add(c.Where.SQL, c.Where.Args...)
	q.add(c.OrderBy.SQL, c.OrderBy.Args...)
	limit := c.Limit
	if limit == 0 {
		limit = -1
	}
	q.add(limitSQL(limit, c.Offset))
	return store.Request{SQL: q.SQL, Args: q.Args}
}

func limitSQL(limit, offset int) string {
	switch {
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case offset > 0:
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
	default:
		return ""
	}
}
