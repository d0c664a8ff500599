package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Irislinhnguyen/mc-team-hub-sub008/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client implements service.SheetAPI against Google Sheets.
type Client struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewClient creates a new Google Sheets client.
func NewClient(ctx context.Context, config Config, logger *slog.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		config:  config,
		service: srv,
		logger:  logger,
	}, nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		// Use service account authentication
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		// Use OAuth2 authentication
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// ReadColumn returns every cell of one column, top to bottom. Trailing empty
// rows are not included; the caller treats absence as empty.
func (c *Client) ReadColumn(ctx context.Context, documentID, tab, column string) ([]string, error) {
	rangeStr := fmt.Sprintf("%s!%s:%s", tab, column, column)
	resp, err := c.service.Spreadsheets.Values.Get(documentID, rangeStr).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read column %s: %w", rangeStr, err)
	}

	cells := make([]string, 0, len(resp.Values))
	for _, rowValues := range resp.Values {
		if len(rowValues) == 0 {
			cells = append(cells, "")
			continue
		}
		cells = append(cells, fmt.Sprint(rowValues[0]))
	}
	return cells, nil
}

// ReadRow returns one row's cells starting at column A.
func (c *Client) ReadRow(ctx context.Context, documentID, tab string, row int64) ([]string, error) {
	rangeStr := fmt.Sprintf("%s!A%d:%d", tab, row, row)
	resp, err := c.service.Spreadsheets.Values.Get(documentID, rangeStr).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read row %d: %w", row, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	cells := make([]string, 0, len(resp.Values[0]))
	for _, v := range resp.Values[0] {
		cells = append(cells, fmt.Sprint(v))
	}
	return cells, nil
}

// UpdateCells applies all ranges in one batched request.
func (c *Client) UpdateCells(ctx context.Context, documentID string, updates []service.RangeValues) error {
	if len(updates) == 0 {
		return nil
	}

	data := make([]*sheets.ValueRange, 0, len(updates))
	for _, update := range updates {
		data = append(data, &sheets.ValueRange{
			Range:  update.Range,
			Values: update.Values,
		})
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}

	resp, err := c.service.Spreadsheets.Values.BatchUpdate(documentID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update cells: %w", err)
	}

	c.logger.Debug("updated cells",
		"document_id", documentID,
		"ranges", len(updates),
		"cells", resp.TotalUpdatedCells)
	return nil
}

// DeleteRow removes one row from a tab.
func (c *Client) DeleteRow(ctx context.Context, documentID, tab string, row int64) error {
	sheetID, err := c.sheetIDForTab(ctx, documentID, tab)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				DeleteDimension: &sheets.DeleteDimensionRequest{
					Range: &sheets.DimensionRange{
						SheetId:    sheetID,
						Dimension:  "ROWS",
						StartIndex: row - 1,
						EndIndex:   row,
					},
				},
			},
		},
	}

	if _, err := c.service.Spreadsheets.BatchUpdate(documentID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete row %d: %w", row, err)
	}

	c.logger.Debug("deleted row", "document_id", documentID, "tab", tab, "row", row)
	return nil
}

// sheetIDForTab resolves the numeric sheet id behind a tab name.
func (c *Client) sheetIDForTab(ctx context.Context, documentID, tab string) (int64, error) {
	doc, err := c.service.Spreadsheets.Get(documentID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to access document %s: %w", documentID, err)
	}
	for _, sheet := range doc.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == tab {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("tab %q not found in document %s", tab, documentID)
}
