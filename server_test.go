package sesame

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogJSON = `{"head":{"vars":["uri","id","title","readable","writable"]},"results":{"bindings":[
	{
		"uri":{"type":"uri","value":"http://localhost:8080/openrdf-sesame/repositories/SYSTEM"},
		"id":{"type":"literal","value":"SYSTEM"},
		"title":{"type":"literal","value":"System configuration repository"},
		"readable":{"type":"typed-literal","value":"true","datatype":"http://www.w3.org/2001/XMLSchema#boolean"},
		"writable":{"type":"typed-literal","value":"false","datatype":"http://www.w3.org/2001/XMLSchema#boolean"}
	},
	{
		"uri":{"type":"uri","value":"http://localhost:8080/openrdf-sesame/repositories/mem"},
		"id":{"type":"literal","value":"mem"},
		"title":{"type":"literal","value":"Main memory repository"},
		"readable":{"type":"typed-literal","value":"true","datatype":"http://www.w3.org/2001/XMLSchema#boolean"},
		"writable":{"type":"typed-literal","value":"true","datatype":"http://www.w3.org/2001/XMLSchema#boolean"}
	}
]}}`

func newTestServer(t *testing.T, handler http.Handler, options ...func(*Server) error) *Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	srv, err := NewServer(ts.URL, options...)
	require.NoError(t, err)
	return srv
}

func TestRepositoriesCatalog(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repositories", r.URL.Path)
		assert.Equal(t, mediaSPARQLResultsJSON, r.Header.Get("Accept"))
		w.Header().Set("Content-Type", mediaSPARQLResultsJSON)
		io.WriteString(w, catalogJSON)
	}))

	repos, err := srv.Repositories()
	require.NoError(t, err)
	require.Len(t, repos, 2)

	sys := repos["SYSTEM"]
	assert.Equal(t, "System configuration repository", sys.Title)
	assert.Equal(t, "http://localhost:8080/openrdf-sesame/repositories/SYSTEM", sys.URI)
	assert.True(t, sys.Readable)
	assert.False(t, sys.Writable)
	assert.True(t, repos["mem"].Writable)
}

func TestRepositoryLookup(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", mediaSPARQLResultsJSON)
		io.WriteString(w, catalogJSON)
	}))

	repo, err := srv.Repository("mem")
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Equal(t, "mem", repo.ID())

	// An unknown id is not-found, not an error.
	repo, err = srv.Repository("nope")
	require.NoError(t, err)
	assert.Nil(t, repo)
}

func TestRepositoryLookupServerError(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	_, err := srv.Repository("mem")
	var se *ServerError
	require.ErrorAs(t, err, &se)
}

func TestProtocolVersion(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/protocol", r.URL.Path)
		io.WriteString(w, "4\n")
	}))
	assert.Equal(t, 4, srv.ProtocolVersion())
}

func TestProtocolVersionLenient(t *testing.T) {
	status := http.StatusInternalServerError
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "down", status)
			return
		}
		io.WriteString(w, "not a version")
	}))
	assert.Equal(t, 0, srv.ProtocolVersion())

	status = http.StatusOK
	assert.Equal(t, 0, srv.ProtocolVersion())
}

func TestServerTrimsTrailingSlash(t *testing.T) {
	srv, err := NewServer("http://localhost:8080/openrdf-sesame/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/openrdf-sesame", srv.endpoint)
}

func TestOptions(t *testing.T) {
	srv, err := NewServer("http://localhost:8080/openrdf-sesame",
		Timeout(0),
		MaxURILength(100),
	)
	require.NoError(t, err)
	assert.Equal(t, 100, srv.maxURILength)

	_, err = NewServer("http://localhost:8080/openrdf-sesame", MaxURILength(-1))
	require.Error(t, err)

	c := &http.Client{}
	srv, err = NewServer("http://localhost:8080/openrdf-sesame", HTTPClient(c))
	require.NoError(t, err)
	assert.Same(t, c, srv.client)
}

func TestTransportErrorPropagates(t *testing.T) {
	repo, err := NewRepository("http://127.0.0.1:0", "SYSTEM")
	require.NoError(t, err)
	_, err = repo.QueryPattern(Pattern{})
	require.Error(t, err)

	// Connection failures come back as-is from the transport, never
	// classified into the protocol error kinds.
	var se *ServerError
	assert.False(t, errors.As(err, &se))
}
