package sesame

import (
	"net/url"

	"github.com/knakk/rdf"
)

// A Pattern is a statement template used to filter wire operations. A
// nil field is a wildcard: its filter key is omitted from the query
// string entirely. DefaultGraph instead binds the context filter to the
// unnamed default graph, which the protocol spells as the literal
// string "null" — a different thing from leaving the graph unbound.
type Pattern struct {
	Subject      rdf.Term
	Predicate    rdf.Term
	Object       rdf.Term
	Graph        rdf.Term
	DefaultGraph bool
}

// values encodes the bound fields of p as statement-endpoint query
// parameters. Bound terms are N-Triples-serialized; url.Values takes
// care of percent-escaping on Encode.
func (p Pattern) values() (url.Values, error) {
	q := url.Values{}
	if p.Subject != nil {
		if p.Subject.Type() == rdf.TermLiteral {
			return nil, &PatternError{Field: "subj", Reason: "a literal cannot be a subject"}
		}
		q.Set("subj", p.Subject.Serialize(rdf.NTriples))
	}
	if p.Predicate != nil {
		if p.Predicate.Type() != rdf.TermIRI {
			return nil, &PatternError{Field: "pred", Reason: "predicate must be an IRI"}
		}
		q.Set("pred", p.Predicate.Serialize(rdf.NTriples))
	}
	if p.Object != nil {
		q.Set("obj", p.Object.Serialize(rdf.NTriples))
	}
	switch {
	case p.Graph != nil && p.DefaultGraph:
		return nil, &PatternError{Field: "context", Reason: "cannot bind both a named graph and the default graph"}
	case p.Graph != nil:
		if p.Graph.Type() == rdf.TermLiteral {
			return nil, &PatternError{Field: "context", Reason: "a literal cannot name a graph"}
		}
		q.Set("context", p.Graph.Serialize(rdf.NTriples))
	case p.DefaultGraph:
		q.Set("context", "null")
	}
	return q, nil
}

// statementFilter narrows a pattern down to one exact statement. A
// statement in the default graph pins context=null so the delete cannot
// leak into named graphs.
func statementFilter(st Statement) Pattern {
	return Pattern{
		Subject:      st.Subj,
		Predicate:    st.Pred,
		Object:       st.Obj,
		Graph:        st.Graph,
		DefaultGraph: st.Graph == nil,
	}
}

// buildPath emits repositories/{id}[/{resource}][?query]. The id is
// path-escaped exactly once, here.
func buildPath(repoID, resource string, q url.Values) string {
	p := "repositories/" + url.PathEscape(repoID)
	if resource != "" {
		p += "/" + resource
	}
	if enc := q.Encode(); enc != "" {
		p += "?" + enc
	}
	return p
}
