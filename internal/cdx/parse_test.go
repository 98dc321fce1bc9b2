package cdx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openwebindex/cdxq/internal/fetch"
)

func TestParseResponse404IsEmpty(t *testing.T) {
	records, err := ParseResponse(&fetch.Response{
		StatusCode: http.StatusNotFound,
		Body:       []byte(`{"error": "No Captures found for: www.example.com/*"}`),
	})
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestParseResponseJSONLines(t *testing.T) {
	body := `{"url": "http://a.com/", "status": "200", "timestamp": "20200101000000"}
{"url": "http://a.com/b", "status": "301", "timestamp": "20200102000000"}
`
	records, err := ParseResponse(&fetch.Response{StatusCode: 200, Body: []byte(body)})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "http://a.com/", records[0]["url"])
	require.Equal(t, "301", records[1]["status"])
}

func TestParseResponseListOfLists(t *testing.T) {
	body := `[["urlkey","timestamp","original","statuscode"],
["com,x)/","20200101000000","http://x.com","200"],
["com,x)/y","20200102000000","http://x.com/y","404"]]`
	records, err := ParseResponse(&fetch.Response{StatusCode: 200, Body: []byte(body)})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, Record{
		"urlkey":     "com,x)/",
		"timestamp":  "20200101000000",
		"original":   "http://x.com",
		"statuscode": "200",
	}, records[0])
}

func TestParseResponseEmptyBody(t *testing.T) {
	records, err := ParseResponse(&fetch.Response{StatusCode: 200, Body: nil})
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestParseResponseHeaderOnlyList(t *testing.T) {
	records, err := ParseResponse(&fetch.Response{StatusCode: 200, Body: []byte(`[["urlkey","timestamp"]]`)})
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestParseResponseUndecodable(t *testing.T) {
	_, err := ParseResponse(&fetch.Response{StatusCode: 200, Body: []byte("<html>error page</html>")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot decode response")
	require.Contains(t, err.Error(), "<html>")
}

func TestParseResponseBadList(t *testing.T) {
	_, err := ParseResponse(&fetch.Response{StatusCode: 200, Body: []byte(`[{"not": "a list"}]`)})
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot decode response")
}
