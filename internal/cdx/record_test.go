package cdx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemapIARecord(t *testing.T) {
	rec := Record{
		"original":   "http://x.com",
		"statuscode": "200",
		"timestamp":  "20200101000000",
	}
	rec.Remap(iaFieldMap)

	require.Equal(t, Record{
		"url":       "http://x.com",
		"status":    "200",
		"timestamp": "20200101000000",
	}, rec)
	require.NotContains(t, rec, "original")
	require.NotContains(t, rec, "statuscode")
}

func TestRemapNilTableIsIdentity(t *testing.T) {
	rec := Record{"statuscode": "200"}
	rec.Remap(nil)
	require.Equal(t, Record{"statuscode": "200"}, rec)
}

func TestProject(t *testing.T) {
	rec := Record{
		"url":       "http://x.com",
		"status":    "200",
		"timestamp": "20200101000000",
		"digest":    "ABC",
	}

	got, err := rec.Project([]string{"url", "status", "timestamp"})
	require.NoError(t, err)
	require.Equal(t, Record{
		"url":       "http://x.com",
		"status":    "200",
		"timestamp": "20200101000000",
	}, got)
}

func TestProjectMissingField(t *testing.T) {
	rec := Record{"url": "http://x.com"}
	_, err := rec.Project([]string{"url", "status"})
	require.Error(t, err)
	require.Contains(t, err.Error(), `no field "status"`)
	require.Contains(t, err.Error(), "url,status")
	require.Contains(t, err.Error(), "url=http://x.com")
}

func TestRecordString(t *testing.T) {
	rec := Record{"b": "2", "a": "1", "c": "3"}
	require.Equal(t, "a=1 b=2 c=3", rec.String())
}
