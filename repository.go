package sesame

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/knakk/rdf"
)

// Repository is one RDF repository hosted by a Server. All methods are
// stateless: build an endpoint, issue one HTTP exchange, classify,
// decode. A Repository is safe for concurrent use to the extent its
// Server's HTTP client is.
type Repository struct {
	id     string
	server *Server
}

// ID returns the repository identifier within its server.
func (r *Repository) ID() string { return r.id }

// Count reports the number of statements in the repository. The size
// endpoint is best-effort, so by contract Count never fails: error
// responses and non-decimal bodies report 0.
func (r *Repository) Count() int {
	resp, err := r.server.do("GET", buildPath(r.id, "size", nil), "", "", nil)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(resp.body)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// IsEmpty reports whether the repository holds no statements.
func (r *Repository) IsEmpty() bool {
	return r.Count() == 0
}

// QueryPattern returns the statements matching the bound fields of p.
// When p carries an explicit graph filter, that filter is the
// authoritative graph of every returned statement, overriding anything
// the wire serialization implies.
func (r *Repository) QueryPattern(p Pattern) ([]Statement, error) {
	q, err := p.values()
	if err != nil {
		return nil, err
	}
	resp, err := r.server.do("GET", buildPath(r.id, "statements", q), mediaNTriples, "", nil)
	if err != nil {
		return nil, err
	}
	contentType := resp.contentType
	if contentType == "" {
		// An empty 200 may carry no Content-Type; we asked for N-Triples.
		contentType = mediaNTriples
	}
	v, err := decodeBody(resp.body, contentType, p.Graph)
	if err != nil {
		return nil, err
	}
	sts, ok := v.([]Statement)
	if !ok {
		return nil, &UnsupportedContentTypeError{ContentType: contentType}
	}
	return sts, nil
}

// HasStatement reports whether at least one statement matches p.
func (r *Repository) HasStatement(p Pattern) (bool, error) {
	sts, err := r.QueryPattern(p)
	if err != nil {
		return false, err
	}
	return len(sts) > 0, nil
}

// GraphNames lists the named graphs (contexts) present in the
// repository, each an IRI or a blank node.
func (r *Repository) GraphNames() ([]rdf.Term, error) {
	resp, err := r.server.do("GET", buildPath(r.id, "contexts", nil), mediaSPARQLResultsJSON, "", nil)
	if err != nil {
		return nil, err
	}
	res, err := ParseJSON(bytes.NewReader(resp.body))
	if err != nil {
		return nil, err
	}

	bn := make(blankNodes)
	var names []rdf.Term
	for _, row := range res.Results.Bindings {
		b, ok := row["contextID"]
		if !ok {
			continue
		}
		t, err := termFromBinding(b, bn)
		if err != nil {
			return nil, err
		}
		names = append(names, t)
	}
	return names, nil
}

// Namespaces returns the repository's prefix to namespace URI mapping.
func (r *Repository) Namespaces() (map[string]string, error) {
	resp, err := r.server.do("GET", buildPath(r.id, "namespaces", nil), mediaSPARQLResultsJSON, "", nil)
	if err != nil {
		return nil, err
	}
	res, err := ParseJSON(bytes.NewReader(resp.body))
	if err != nil {
		return nil, err
	}

	ns := make(map[string]string, len(res.Results.Bindings))
	for _, row := range res.Results.Bindings {
		prefix, ok := row["prefix"]
		if !ok {
			continue
		}
		ns[prefix.Value] = row["namespace"].Value
	}
	return ns, nil
}

// A StatementIterator streams the full contents of a repository, one
// HTTP exchange per graph scope, pulled lazily as the caller advances.
// It is not restartable; enumerate again by creating a new iterator.
type StatementIterator struct {
	repo    *Repository
	started bool
	scopes  []Pattern
	buf     []Statement
	cur     Statement
	err     error
}

// Statements returns an iterator over every statement in the
// repository: the default graph first, then each named graph. No
// request is issued until the first call to Next.
func (r *Repository) Statements() *StatementIterator {
	return &StatementIterator{repo: r}
}

func (it *StatementIterator) init() error {
	names, err := it.repo.GraphNames()
	if err != nil {
		return err
	}
	it.scopes = []Pattern{{DefaultGraph: true}}
	seen := make(map[string]bool, len(names))
	for _, g := range names {
		key := g.Serialize(rdf.NTriples)
		if key == "null" || seen[key] {
			continue
		}
		seen[key] = true
		it.scopes = append(it.scopes, Pattern{Graph: g})
	}
	return nil
}

// Next advances the iterator, fetching the next graph scope when the
// current one is exhausted. It returns false at the end of the sequence
// or on error; check Err afterwards.
func (it *StatementIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.started {
		it.started = true
		if err := it.init(); err != nil {
			it.err = err
			return false
		}
	}
	for len(it.buf) == 0 {
		if len(it.scopes) == 0 {
			return false
		}
		scope := it.scopes[0]
		it.scopes = it.scopes[1:]
		sts, err := it.repo.QueryPattern(scope)
		if err != nil {
			it.err = err
			return false
		}
		it.buf = sts
	}
	it.cur = it.buf[0]
	it.buf = it.buf[1:]
	return true
}

// Statement returns the statement the iterator currently points at. It
// is only valid after Next has returned true.
func (it *StatementIterator) Statement() Statement { return it.cur }

// Err returns the first error the iteration hit, if any.
func (it *StatementIterator) Err() error { return it.err }

// Insert adds statements to the repository. The whole batch travels in
// one N-Triples POST per graph scope — the statements endpoint applies
// a single context to its payload, so the batch is grouped by graph
// first. Success requires 204 from every exchange.
func (r *Repository) Insert(statements ...Statement) error {
	if len(statements) == 0 {
		return nil
	}
	var order []rdf.Term
	groups := make(map[rdf.Term][]Statement)
	for _, st := range statements {
		if _, ok := groups[st.Graph]; !ok {
			order = append(order, st.Graph)
		}
		groups[st.Graph] = append(groups[st.Graph], st)
	}

	for _, g := range order {
		q := url.Values{}
		if g != nil {
			q.Set("context", g.Serialize(rdf.NTriples))
		}
		var buf bytes.Buffer
		for _, st := range groups[g] {
			buf.WriteString(ntriplesLine(st.Triple))
		}
		resp, err := r.server.do("POST", buildPath(r.id, "statements", q), "", mediaNTriples, buf.Bytes())
		if err != nil {
			return err
		}
		if err := expectNoContent(resp); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes statements. A single statement maps to a DELETE on the
// statements endpoint filtered to exactly that statement; a larger
// batch goes out as one SPARQL DELETE DATA update.
func (r *Repository) Delete(statements ...Statement) error {
	switch len(statements) {
	case 0:
		return nil
	case 1:
		return r.deleteOne(statements[0])
	}

	var b strings.Builder
	b.WriteString("DELETE DATA {\n")
	for _, st := range statements {
		if st.Graph != nil {
			b.WriteString("GRAPH " + st.Graph.Serialize(rdf.NTriples) + " { ")
			b.WriteString(st.Subj.Serialize(rdf.NTriples) + " " +
				st.Pred.Serialize(rdf.NTriples) + " " +
				st.Obj.Serialize(rdf.NTriples))
			b.WriteString(" . }\n")
			continue
		}
		b.WriteString(ntriplesLine(st.Triple))
	}
	b.WriteString("}")
	return r.Update(b.String())
}

func (r *Repository) deleteOne(st Statement) error {
	q, err := statementFilter(st).values()
	if err != nil {
		return err
	}
	resp, err := r.server.do("DELETE", buildPath(r.id, "statements", q), "", "", nil)
	if err != nil {
		return err
	}
	return expectNoContent(resp)
}

// Clear removes every statement matching the bound fields of p. The
// zero Pattern wipes the whole repository.
func (r *Repository) Clear(p Pattern) error {
	q, err := p.values()
	if err != nil {
		return err
	}
	resp, err := r.server.do("DELETE", buildPath(r.id, "statements", q), "", "", nil)
	if err != nil {
		return err
	}
	return expectNoContent(resp)
}

// Update executes a SPARQL update against the repository.
func (r *Repository) Update(q string) error {
	resp, err := r.server.do("POST", buildPath(r.id, "statements", nil), "", mediaSPARQLUpdate, []byte(q))
	if err != nil {
		return err
	}
	return expectNoContent(resp)
}

var (
	updateKeyword    = regexp.MustCompile(`(?i)\b(insert|delete)\b`)
	constructKeyword = regexp.MustCompile(`(?i)\bconstruct\b`)
)

type queryOptions struct {
	format string
	raw    bool
}

// QueryOption alters how a raw query is dispatched and decoded.
type QueryOption func(*queryOptions)

// Format overrides the Accept header, and thereby the decoder, for a
// raw query.
func Format(contentType string) QueryOption {
	return func(o *queryOptions) { o.format = contentType }
}

// Raw disables result decoding; Query returns the response body bytes.
func Raw() QueryOption {
	return func(o *queryOptions) { o.raw = true }
}

// Query forwards SPARQL text verbatim. Updates, detected by an
// insert/delete keyword, are posted to the statements endpoint and
// report true on success. Queries default their Accept header from the
// query form (CONSTRUCT to N-Triples, everything else to SPARQL-JSON)
// unless Format overrides it, and decode per the response media type:
// the result is a *Results, a []Statement, a bool, or raw []byte under
// the Raw option.
func (r *Repository) Query(q string, options ...QueryOption) (interface{}, error) {
	var opts queryOptions
	for _, opt := range options {
		opt(&opts)
	}

	if updateKeyword.MatchString(q) {
		if err := r.Update(q); err != nil {
			return false, err
		}
		return true, nil
	}

	accept := opts.format
	if accept == "" {
		if constructKeyword.MatchString(q) {
			accept = mediaNTriples
		} else {
			accept = mediaSPARQLResultsJSON
		}
	}
	resp, err := r.query(q, accept)
	if err != nil {
		return nil, err
	}
	if opts.raw {
		return resp.body, nil
	}
	return decodeBody(resp.body, resp.contentType, nil)
}

// query dispatches a read query, preferring a cacheable GET and falling
// back to a POST body when the URL would exceed the configured maximum
// length.
func (r *Repository) query(q, accept string) (*response, error) {
	v := url.Values{}
	v.Set("query", q)
	path := buildPath(r.id, "", v)
	if len(r.server.endpoint)+1+len(path) <= r.server.maxURILength {
		return r.server.do("GET", path, accept, "", nil)
	}
	return r.server.do("POST", buildPath(r.id, "", nil), accept, mediaSPARQLQuery, []byte(q))
}

// Select runs a SELECT query and returns the parsed solution rows.
func (r *Repository) Select(q string) (*Results, error) {
	resp, err := r.query(q, mediaSPARQLResultsJSON)
	if err != nil {
		return nil, err
	}
	return ParseJSON(bytes.NewReader(resp.body))
}

// Ask runs an ASK query.
func (r *Repository) Ask(q string) (bool, error) {
	resp, err := r.query(q, mediaSPARQLResultsJSON)
	if err != nil {
		return false, err
	}
	res, err := ParseJSON(bytes.NewReader(resp.body))
	if err != nil {
		return false, err
	}
	return res.Boolean != nil && *res.Boolean, nil
}

// Construct runs a CONSTRUCT query and returns the resulting statements
// in the default graph.
func (r *Repository) Construct(q string) ([]Statement, error) {
	resp, err := r.query(q, mediaNTriples)
	if err != nil {
		return nil, err
	}
	return decodeStatements(resp.body, rdf.NTriples, nil)
}
