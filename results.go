package sesame

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"mime"
	"strings"

	"github.com/knakk/rdf"
)

type header struct {
	Link []string
	Vars []string
}

// Results holds a parsed SPARQL result document, either a sequence of
// solution rows or, for the ASK shape, a bare boolean.
type Results struct {
	Head    header
	Boolean *bool
	Results results
}

// Binding is a single variable binding as it appears on the wire.
type Binding struct {
	Type     string // "uri", "literal", "typed-literal" or "bnode"
	Value    string
	Lang     string `json:"xml:lang"`
	DataType string
}

type results struct {
	Distinct bool
	Ordered  bool
	Bindings []map[string]Binding
}

// ParseJSON takes an application/sparql-results+json response and parses
// it into a Results struct.
func ParseJSON(r io.Reader) (*Results, error) {
	var res Results
	err := json.NewDecoder(r).Decode(&res)

	return &res, err
}

// The XML results grammar carries the same information as the JSON one;
// it is unmarshalled into the identical Results shape so everything
// downstream is encoding-agnostic.

type xmlLiteral struct {
	Value    string     `xml:",chardata"`
	DataType string     `xml:"datatype,attr"`
	Attrs    []xml.Attr `xml:",any,attr"`
}

// lang digs the xml:lang attribute out of the attribute list; matching
// on the local name sidesteps namespace-prefix resolution quirks.
func (l *xmlLiteral) lang() string {
	for _, a := range l.Attrs {
		if a.Name.Local == "lang" {
			return a.Value
		}
	}
	return ""
}

type xmlDocument struct {
	Head struct {
		Vars []struct {
			Name string `xml:"name,attr"`
		} `xml:"variable"`
		Links []struct {
			Href string `xml:"href,attr"`
		} `xml:"link"`
	} `xml:"head"`
	Boolean *bool `xml:"boolean"`
	Results struct {
		Rows []struct {
			Bindings []struct {
				Name    string      `xml:"name,attr"`
				URI     *string     `xml:"uri"`
				BNode   *string     `xml:"bnode"`
				Literal *xmlLiteral `xml:"literal"`
			} `xml:"binding"`
		} `xml:"result"`
	} `xml:"results"`
}

// ParseXML takes an application/sparql-results+xml response and parses
// it into a Results struct.
func ParseXML(r io.Reader) (*Results, error) {
	var doc xmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	var res Results
	for _, v := range doc.Head.Vars {
		res.Head.Vars = append(res.Head.Vars, v.Name)
	}
	for _, l := range doc.Head.Links {
		res.Head.Link = append(res.Head.Link, l.Href)
	}
	res.Boolean = doc.Boolean
	for _, row := range doc.Results.Rows {
		solution := make(map[string]Binding, len(row.Bindings))
		for _, b := range row.Bindings {
			switch {
			case b.URI != nil:
				solution[b.Name] = Binding{Type: "uri", Value: *b.URI}
			case b.BNode != nil:
				solution[b.Name] = Binding{Type: "bnode", Value: *b.BNode}
			case b.Literal != nil:
				bd := Binding{Type: "literal", Value: b.Literal.Value, Lang: b.Literal.lang(), DataType: b.Literal.DataType}
				if bd.DataType != "" {
					bd.Type = "typed-literal"
				}
				solution[b.Name] = bd
			}
		}
		res.Results.Bindings = append(res.Results.Bindings, solution)
	}

	return &res, nil
}

// blankNodes maps server-assigned blank node labels to local nodes for
// the duration of one decode session. The same label within one
// response always resolves to the same node; servers are free to mint
// new labels on every round-trip, so nothing here survives a session.
type blankNodes map[string]rdf.Blank

func (bn blankNodes) node(label string) (rdf.Blank, error) {
	if b, ok := bn[label]; ok {
		return b, nil
	}
	b, err := rdf.NewBlank(label)
	if err != nil {
		return rdf.Blank{}, err
	}
	bn[label] = b
	return b, nil
}

// Bindings returns a map of the bound variables in the SPARQL response,
// where each variable points to one or more RDF terms.
func (r *Results) Bindings() map[string][]rdf.Term {
	rb := make(map[string][]rdf.Term)
	bn := make(blankNodes)
	for _, v := range r.Head.Vars {
		for _, s := range r.Results.Bindings {
			b, ok := s[v]
			if !ok {
				continue
			}
			t, err := termFromBinding(b, bn)
			if err == nil {
				rb[v] = append(rb[v], t)
			}
		}
	}

	return rb
}

// Solutions returns a slice of the query solutions, each containing a
// map of all bindings to RDF terms. Row order is the server's; rows are
// not deduplicated. Each call is one decode session with its own blank
// node scope.
func (r *Results) Solutions() []map[string]rdf.Term {
	var rs []map[string]rdf.Term
	bn := make(blankNodes)

	for _, s := range r.Results.Bindings {
		solution := make(map[string]rdf.Term)
		for k, v := range s {
			term, err := termFromBinding(v, bn)
			if err == nil {
				solution[k] = term
			}
		}
		rs = append(rs, solution)
	}

	return rs
}

// termFromBinding converts a wire binding into a rdf.Term. Untyped
// literals are typed as xsd:string; blank node labels resolve through
// the session registry.
func termFromBinding(b Binding, bn blankNodes) (rdf.Term, error) {
	switch b.Type {
	case "bnode":
		return bn.node(b.Value)
	case "uri":
		return rdf.NewIRI(b.Value)
	case "literal":
		if b.Lang != "" {
			return rdf.NewLangLiteral(b.Value, b.Lang)
		}
		return rdf.NewTypedLiteral(b.Value, xsdString), nil
	case "typed-literal":
		iri, err := rdf.NewIRI(b.DataType)
		if err != nil {
			return nil, err
		}
		return rdf.NewTypedLiteral(b.Value, iri), nil
	default:
		return nil, errors.New("unknown term type")
	}
}

// decodeBody interprets a response body according to its declared media
// type only — never by sniffing the content. graph, when non-nil, is
// the caller's explicit graph filter and overrides whatever graph the
// serialization may imply for each decoded statement.
func decodeBody(body []byte, contentType string, graph rdf.Term) (interface{}, error) {
	media := contentType
	if m, _, err := mime.ParseMediaType(contentType); err == nil {
		media = m
	}
	switch media {
	case mediaBoolean:
		return strings.TrimSpace(string(body)) == "true", nil
	case mediaSPARQLResultsJSON:
		res, err := ParseJSON(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if res.Boolean != nil {
			return *res.Boolean, nil
		}
		return res, nil
	case mediaSPARQLResultsXML:
		res, err := ParseXML(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if res.Boolean != nil {
			return *res.Boolean, nil
		}
		return res, nil
	case mediaRDFJSON, "application/json":
		var v map[string]interface{}
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, err
		}
		return v, nil
	case mediaNTriples, "application/n-triples":
		return decodeStatements(body, rdf.NTriples, graph)
	case mediaTurtle, mediaXTurtle:
		return decodeStatements(body, rdf.Turtle, graph)
	default:
		return nil, &UnsupportedContentTypeError{ContentType: contentType}
	}
}

// decodeStatements parses a triple serialization into statements, all
// assigned to the given graph (nil for the default graph).
func decodeStatements(body []byte, f rdf.Format, graph rdf.Term) ([]Statement, error) {
	dec := rdf.NewTripleDecoder(bytes.NewReader(body), f)
	triples, err := dec.DecodeAll()
	if err != nil {
		return nil, err
	}
	sts := make([]Statement, 0, len(triples))
	for _, t := range triples {
		sts = append(sts, Statement{Triple: t, Graph: graph})
	}
	return sts, nil
}
