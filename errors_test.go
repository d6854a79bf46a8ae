package sesame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySuccess(t *testing.T) {
	assert.NoError(t, classify(200, nil))
	assert.NoError(t, classify(204, nil))
}

func TestClassifyMalformedQuery(t *testing.T) {
	err := classify(400, []byte("parse error at line 1"))
	var mq *MalformedQueryError
	require.ErrorAs(t, err, &mq)
	assert.Equal(t, 400, mq.StatusCode)
	assert.Contains(t, mq.Error(), "parse error at line 1")
}

func TestClassifyClientError(t *testing.T) {
	err := classify(404, []byte("no such repository"))
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "no such repository", ce.Body)
}

func TestClassifyServerError(t *testing.T) {
	var se *ServerError
	require.ErrorAs(t, classify(500, nil), &se)

	// 1xx and 3xx reaching this layer are unexpected transport behavior.
	require.ErrorAs(t, classify(302, nil), &se)
	require.ErrorAs(t, classify(101, nil), &se)
}
