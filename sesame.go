// Package sesame is a client for RDF repositories speaking the Sesame
// 2.0 HTTP protocol. It maps the repository REST surface (statement
// CRUD, size, contexts, namespaces, SPARQL query and update) onto typed
// RDF values, so a remote repository can be treated as a mutable
// collection of statements.
package sesame

import (
	"github.com/knakk/rdf"
)

// Media types spoken by the protocol.
const (
	mediaSPARQLResultsJSON = "application/sparql-results+json"
	mediaSPARQLResultsXML  = "application/sparql-results+xml"
	mediaSPARQLQuery       = "application/sparql-query"
	mediaSPARQLUpdate      = "application/sparql-update"
	mediaBoolean           = "text/boolean"
	mediaNTriples          = "text/plain"
	mediaTurtle            = "text/turtle"
	mediaXTurtle           = "application/x-turtle"
	mediaRDFJSON           = "application/rdf+json"
)

var xsdString rdf.IRI

func init() {
	xsdString, _ = rdf.NewIRI("http://www.w3.org/2001/XMLSchema#string")
}

// Statement is an RDF triple optionally tagged with the named graph it
// belongs to. A nil Graph denotes the default graph.
type Statement struct {
	rdf.Triple
	Graph rdf.Term
}

// ntriplesLine renders one statement as an N-Triples line. The graph is
// never part of the line; it travels in the context query parameter.
func ntriplesLine(t rdf.Triple) string {
	return t.Subj.Serialize(rdf.NTriples) + " " +
		t.Pred.Serialize(rdf.NTriples) + " " +
		t.Obj.Serialize(rdf.NTriples) + " .\n"
}
