// Package sheets reads PTS ranges through the Google Sheets v4 API.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/iota-uz/pts-sync/modules/production/domain/pts"
)

type Client struct {
	svc           *sheets.Service
	spreadsheetID string
}

// New builds a read-only client from service account JSON. Missing or
// unusable credentials yield pts.ErrSourceNotInitialized.
func New(ctx context.Context, credentialsJSON []byte, spreadsheetID string) (*Client, error) {
	if len(credentialsJSON) == 0 {
		return nil, pts.ErrSourceNotInitialized.Wrapf("no service account credentials configured")
	}
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, pts.ErrSourceNotInitialized.Wrapf("parse service account credentials: %v", err)
	}
	return NewWithOptions(ctx, spreadsheetID, option.WithCredentials(creds))
}

func NewWithOptions(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, pts.ErrSourceNotInitialized.Wrapf("no spreadsheet id configured")
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, pts.ErrSourceNotInitialized.Wrapf("create sheets service: %v", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (c *Client) FetchRange(ctx context.Context, sheet string, spec pts.RangeSpec) ([][]string, error) {
	a1 := spec.A1(sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, a1).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", a1)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v == nil {
				continue
			}
			cells[j] = fmt.Sprint(v)
		}
		out[i] = cells
	}
	return out, nil
}
