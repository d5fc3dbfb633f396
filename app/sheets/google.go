package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// GoogleBackend talks to one Google spreadsheet through the Sheets v4 API.
// Tables are worksheets, looked up by title.
type GoogleBackend struct {
	service       *gsheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

var _ Backend = (*GoogleBackend)(nil)

func NewGoogleBackend(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*GoogleBackend, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet ID is required")
	}

	opts = append([]option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}, opts...)
	service, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &GoogleBackend{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// ReadRows renders formulas rather than their values so HYPERLINK cells keep
// their url.
func (b *GoogleBackend) ReadRows(ctx context.Context, table string) ([][]string, error) {
	resp, err := b.service.Spreadsheets.Values.Get(b.spreadsheetID, quoteTable(table)).
		ValueRenderOption("FORMULA").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			rows[i][j] = cellString(cell)
		}
	}
	return rows, nil
}

func (b *GoogleBackend) AppendRows(ctx context.Context, table string, rows [][]string) error {
	_, err := b.service.Spreadsheets.Values.Append(b.spreadsheetID, quoteTable(table), valueRange(rows)).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return classify(err)
}

func (b *GoogleBackend) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	rng := quoteTable(table) + "!" + columnName(col) + strconv.Itoa(row)
	_, err := b.service.Spreadsheets.Values.Update(b.spreadsheetID, rng, valueRange([][]string{{value}})).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return classify(err)
}

// DeleteRows merges adjacent rows into ranges and removes them bottom-up in a
// single batch update, so earlier deletes never shift later ones.
func (b *GoogleBackend) DeleteRows(ctx context.Context, table string, rows []int) error {
	if len(rows) == 0 {
		return nil
	}

	sheetID, err := b.sheetID(ctx, table)
	if err != nil {
		return err
	}

	sorted := slices.Clone(rows)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var requests []*gsheets.Request
	end := len(sorted) - 1
	for i := len(sorted) - 1; i >= 0; i-- {
		if i > 0 && sorted[i-1] == sorted[i]-1 {
			continue
		}
		requests = append(requests, &gsheets.Request{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(sorted[i] - 1),
					EndIndex:   int64(sorted[end]),
					// Zero values are meaningful here and would otherwise be omitted.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		})
		end = i - 1
	}

	_, err = b.service.Spreadsheets.BatchUpdate(b.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return classify(err)
}

func (b *GoogleBackend) EnsureTable(ctx context.Context, table string, header []string) error {
	if _, err := b.sheetID(ctx, table); err != nil {
		if !errors.Is(err, ErrTableNotFound) {
			return err
		}
		if err := b.addSheet(ctx, table); err != nil {
			return err
		}
	}

	resp, err := b.service.Spreadsheets.Values.Get(b.spreadsheetID, quoteTable(table)+"!1:1").
		Context(ctx).
		Do()
	if err != nil {
		return classify(err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	_, err = b.service.Spreadsheets.Values.Update(b.spreadsheetID, quoteTable(table)+"!A1", valueRange([][]string{header})).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return classify(err)
}

func (b *GoogleBackend) sheetID(ctx context.Context, table string) (int64, error) {
	b.mu.Lock()
	id, ok := b.sheetIDs[table]
	b.mu.Unlock()
	if ok {
		return id, nil
	}

	resp, err := b.service.Spreadsheets.Get(b.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return 0, classify(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sheet := range resp.Sheets {
		if sheet.Properties != nil {
			b.sheetIDs[sheet.Properties.Title] = sheet.Properties.SheetId
		}
	}

	id, ok = b.sheetIDs[table]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return id, nil
}

func (b *GoogleBackend) addSheet(ctx context.Context, table string) error {
	resp, err := b.service.Spreadsheets.BatchUpdate(b.spreadsheetID, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{Title: table},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return classify(err)
	}

	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		b.mu.Lock()
		b.sheetIDs[table] = resp.Replies[0].AddSheet.Properties.SheetId
		b.mu.Unlock()
	}
	return nil
}

// classify marks client errors other than rate limiting as permanent.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests && apiErr.Code != http.StatusRequestTimeout {
			return fmt.Errorf("%w: %w", ErrPermanent, err)
		}
	}
	return err
}

func valueRange(rows [][]string) *gsheets.ValueRange {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}
	return &gsheets.ValueRange{Values: values}
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func quoteTable(table string) string {
	return "'" + strings.ReplaceAll(table, "'", "''") + "'"
}

// columnName converts a 1-based column number to A1 letters: 1 is A, 27 is AA.
func columnName(col int) string {
	var name []byte
	for col > 0 {
		col--
		name = append([]byte{byte('A' + col%26)}, name...)
		col /= 26
	}
	return string(name)
}
