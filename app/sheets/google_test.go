package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

func newTestGoogleBackend(t *testing.T, handler http.HandlerFunc) *GoogleBackend {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	backend, err := NewGoogleBackend(context.Background(), "sheet-id",
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return backend
}

func TestGoogleBackendReadRows(t *testing.T) {
	backend := newTestGoogleBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v4/spreadsheets/sheet-id/values/"))
		assert.Equal(t, "FORMULA", r.URL.Query().Get("valueRenderOption"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"range":"Overall!A1:D2","majorDimension":"ROWS","values":[
			["Company Name","Follower Name","Initial Scrape Date","Date Followed"],
			["=HYPERLINK(\"https://x.com\", \"X\")","Jane",46077,""]
		]}`))
	})

	rows, err := backend.ReadRows(context.Background(), "Overall")
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, []string{`=HYPERLINK("https://x.com", "X")`, "Jane", "46077", ""}, rows[1])
}

func TestGoogleBackendDeleteRowsBatchesDescending(t *testing.T) {
	var batch gsheets.BatchUpdateSpreadsheetRequest
	backend := newTestGoogleBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v4/spreadsheets/sheet-id":
			w.Write([]byte(`{"sheets":[{"properties":{"sheetId":0,"title":"Overall"}}]}`))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":batchUpdate"):
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
			w.Write([]byte(`{"spreadsheetId":"sheet-id"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	err := backend.DeleteRows(context.Background(), "Overall", []int{3, 9, 2, 4, 10, 7, 3})
	require.NoError(t, err)

	require.Len(t, batch.Requests, 3)
	var ranges [][2]int64
	for _, req := range batch.Requests {
		require.NotNil(t, req.DeleteDimension)
		assert.Equal(t, "ROWS", req.DeleteDimension.Range.Dimension)
		assert.Equal(t, int64(0), req.DeleteDimension.Range.SheetId)
		ranges = append(ranges, [2]int64{req.DeleteDimension.Range.StartIndex, req.DeleteDimension.Range.EndIndex})
	}
	assert.Equal(t, [][2]int64{{8, 10}, {6, 7}, {1, 4}}, ranges)
}

func TestGoogleBackendClassifiesClientErrors(t *testing.T) {
	backend := newTestGoogleBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"Unable to parse range"}}`))
	})

	_, err := backend.ReadRows(context.Background(), "Missing")
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "A", columnName(1))
	assert.Equal(t, "C", columnName(3))
	assert.Equal(t, "Z", columnName(26))
	assert.Equal(t, "AA", columnName(27))
	assert.Equal(t, "AZ", columnName(52))
}

func TestQuoteTable(t *testing.T) {
	assert.Equal(t, "'New Follows'", quoteTable("New Follows"))
	assert.Equal(t, "'Bob''s'", quoteTable("Bob's"))
}
