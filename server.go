package sesame

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/knakk/digest"
)

// DefaultMaxURILength is the longest request URL sent as a GET; a raw
// query that would exceed it is posted as a request body instead. A
// tunable, not a protocol requirement.
const DefaultMaxURILength = 2500

// Server represents a Sesame 2.0 HTTP endpoint hosting zero or more RDF
// repositories. Configuration is applied once through functional
// options and read-only afterwards; every operation is a fresh one-shot
// HTTP exchange with no connection state kept here.
type Server struct {
	endpoint     string
	client       *http.Client
	maxURILength int
}

// NewServer creates a new representation of a Sesame server. It takes a
// variadic list of functional options which can alter the configuration
// of the server.
func NewServer(addr string, options ...func(*Server) error) (*Server, error) {
	s := Server{
		endpoint:     strings.TrimRight(addr, "/"),
		client:       &http.Client{},
		maxURILength: DefaultMaxURILength,
	}
	return &s, s.SetOption(options...)
}

// SetOption takes one or more option function and applies them in order
// to Server.
func (s *Server) SetOption(options ...func(*Server) error) error {
	for _, opt := range options {
		if err := opt(s); err != nil {
			return err
		}
	}
	return nil
}

// DigestAuth configures Server to use digest authentication on HTTP
// requests.
func DigestAuth(username, password string) func(*Server) error {
	return func(s *Server) error {
		s.client.Transport = digest.NewTransport(username, password)
		return nil
	}
}

// Timeout instructs the underlying HTTP transport to timeout after
// given duration.
func Timeout(t time.Duration) func(*Server) error {
	return func(s *Server) error {
		s.client.Timeout = t
		return nil
	}
}

// HTTPClient replaces the HTTP client entirely, for callers that need
// their own transport, proxy or TLS setup.
func HTTPClient(c *http.Client) func(*Server) error {
	return func(s *Server) error {
		s.client = c
		return nil
	}
}

// MaxURILength overrides DefaultMaxURILength.
func MaxURILength(n int) func(*Server) error {
	return func(s *Server) error {
		if n <= 0 {
			return errors.New("sesame: max URI length must be positive")
		}
		s.maxURILength = n
		return nil
	}
}

type response struct {
	status      int
	contentType string
	body        []byte
}

// do performs a single HTTP exchange against a protocol path relative
// to the server endpoint. Transport failures come back as-is, without
// classification or retry; any response status is classified, so a nil
// error means 2xx.
func (s *Server) do(method, path, accept, contentType string, body []byte) (*response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, s.endpoint+"/"+path, r)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if body != nil {
		req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if err := classify(resp.StatusCode, data); err != nil {
		return nil, err
	}
	return &response{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        data,
	}, nil
}

// ProtocolVersion reports the protocol version implemented by the
// server. By contract it never fails; error responses and unparseable
// bodies report 0.
func (s *Server) ProtocolVersion() int {
	resp, err := s.do("GET", "protocol", "", "", nil)
	if err != nil {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(resp.body)))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// RepositoryInfo describes one entry of the server's repository
// catalog. Descriptors are materialized fresh on every catalog fetch
// and never mutated.
type RepositoryInfo struct {
	ID       string
	Title    string
	URI      string
	Readable bool
	Writable bool
}

// Repositories fetches the repository catalog, itself a SPARQL-JSON
// result, keyed by repository id.
func (s *Server) Repositories() (map[string]RepositoryInfo, error) {
	resp, err := s.do("GET", "repositories", mediaSPARQLResultsJSON, "", nil)
	if err != nil {
		return nil, err
	}
	res, err := ParseJSON(bytes.NewReader(resp.body))
	if err != nil {
		return nil, err
	}

	repos := make(map[string]RepositoryInfo, len(res.Results.Bindings))
	for _, row := range res.Results.Bindings {
		info := RepositoryInfo{
			ID:       row["id"].Value,
			Title:    row["title"].Value,
			URI:      row["uri"].Value,
			Readable: row["readable"].Value == "true",
			Writable: row["writable"].Value == "true",
		}
		if info.ID == "" {
			continue
		}
		repos[info.ID] = info
	}
	return repos, nil
}

// Repository looks id up in the catalog and binds a Repository to it.
// An id absent from the catalog is not an error: the result is
// (nil, nil).
func (s *Server) Repository(id string) (*Repository, error) {
	repos, err := s.Repositories()
	if err != nil {
		return nil, err
	}
	if _, ok := repos[id]; !ok {
		return nil, nil
	}
	return &Repository{id: id, server: s}, nil
}

// NewRepository binds a repository id on addr directly, skipping the
// catalog lookup.
func NewRepository(addr, id string, options ...func(*Server) error) (*Repository, error) {
	s, err := NewServer(addr, options...)
	if err != nil {
		return nil, err
	}
	return &Repository{id: id, server: s}, nil
}
