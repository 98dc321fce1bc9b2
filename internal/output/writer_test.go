package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openwebindex/cdxq/internal/cdx"
)

func sampleRecord() cdx.Record {
	return cdx.Record{
		"url":       "http://x.com",
		"status":    "200",
		"timestamp": "20200101000000",
		"digest":    "ABCDEF",
	}
}

func TestJSONLProjectsAndSortsKeys(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONL(&buf, []string{"url", "status", "timestamp"})
	require.NoError(t, w.Write(sampleRecord()))
	require.NoError(t, w.Close())

	line := strings.TrimRight(buf.String(), "\n")
	require.Equal(t, `{"status":"200","timestamp":"20200101000000","url":"http://x.com"}`, line)
	require.True(t, json.Valid([]byte(line)))
}

func TestJSONLDropsMissingFieldSilently(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONL(&buf, []string{"url", "mime"})
	require.NoError(t, w.Write(sampleRecord()))
	require.Equal(t, `{"url":"http://x.com"}`+"\n", buf.String())
}

func TestJSONLAllFields(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONL(&buf, nil)
	require.NoError(t, w.Write(sampleRecord()))

	var got map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 4)
	require.Equal(t, "ABCDEF", got["digest"])
}

func TestCSVHeaderSortedAndMissingBlank(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSV(&buf, []string{"url", "status", "mime"})
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleRecord()))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "mime,status,url", lines[0])
	// mime is absent from the record and pins to an empty cell.
	require.Equal(t, ",200,http://x.com", lines[1])
}

func TestCSVRequiresFields(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewCSV(&buf, nil)
	require.Error(t, err)
}

func TestTextDefaultFieldSet(t *testing.T) {
	var buf bytes.Buffer
	w := NewText(&buf, []string{"url", "status", "timestamp"})
	require.NoError(t, w.Write(sampleRecord()))
	require.Equal(t, "status=200 timestamp=20200101000000 url=http://x.com\n", buf.String())
}

func TestTextMissingFieldIsFatal(t *testing.T) {
	var buf bytes.Buffer
	w := NewText(&buf, []string{"url", "mime"})
	err := w.Write(sampleRecord())
	require.Error(t, err)
	require.Contains(t, err.Error(), `no field "mime"`)
	require.Contains(t, err.Error(), "url,mime")
	require.Contains(t, err.Error(), "url=http://x.com")
}

func TestTextAllFieldsIsIdentity(t *testing.T) {
	var buf bytes.Buffer
	w := NewText(&buf, nil)
	require.NoError(t, w.Write(sampleRecord()))
	require.Equal(t, "digest=ABCDEF status=200 timestamp=20200101000000 url=http://x.com\n", buf.String())
}

func TestNewSelectsMode(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		mode    Mode
		fields  []string
		wantErr bool
	}{
		{mode: ModeText},
		{mode: ModeJSONL},
		{mode: ModeCSV, fields: []string{"url"}},
		{mode: Mode("yaml"), wantErr: true},
	}
	for _, tt := range tests {
		w, err := New(tt.mode, &buf, tt.fields)
		if tt.wantErr {
			require.Error(t, err, "mode %s", tt.mode)
			continue
		}
		require.NoError(t, err, "mode %s", tt.mode)
		require.NotNil(t, w)
	}
}
