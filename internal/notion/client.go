package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"notioncal/internal/models"

	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	notionVersion  = "2022-06-28"
	queryPageSize  = 100
)

// Options configures a Client.
type Options struct {
	DatabaseID    string
	TitleProperty string       // property written on create/update, "Name" if empty
	DateProperty  string       // property holding the record's date range, "Date" if empty
	BaseURL       string       // API root, the public endpoint if empty
	HTTPClient    *http.Client // base transport under the bearer token, http.DefaultClient if nil
}

// Client reads and writes pages of one Notion database.
type Client struct {
	http          *http.Client
	logger        *slog.Logger
	baseURL       string
	databaseID    string
	titleProperty string
	dateProperty  string

	// titleColumn is the database's title-type property, learned from the
	// pages read so far. A Notion database has exactly one.
	titleColumn string
}

// NewClient creates a Notion client authenticated with an integration token.
func NewClient(ctx context.Context, logger *slog.Logger, token string, opts Options) (*Client, error) {
	if token == "" {
		return nil, errors.New("notion token is empty")
	}
	if opts.DatabaseID == "" {
		return nil, errors.New("notion database id is empty")
	}
	if opts.TitleProperty == "" {
		opts.TitleProperty = "Name"
	}
	if opts.DateProperty == "" {
		opts.DateProperty = "Date"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}

	return &Client{
		http:          oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})),
		logger:        logger,
		baseURL:       strings.TrimSuffix(opts.BaseURL, "/"),
		databaseID:    opts.DatabaseID,
		titleProperty: opts.TitleProperty,
		dateProperty:  opts.DateProperty,
	}, nil
}

// ListRecords returns every live page of the database, following pagination.
func (c *Client) ListRecords(ctx context.Context) ([]*models.Record, error) {
	var records []*models.Record
	req := queryRequest{PageSize: queryPageSize}
	for {
		var resp queryResponse
		if err := c.do(ctx, http.MethodPost, "/databases/"+c.databaseID+"/query", req, &resp); err != nil {
			return nil, fmt.Errorf("failed to query database: %w", err)
		}
		for i := range resp.Results {
			p := &resp.Results[i]
			if p.Archived || p.InTrash {
				continue
			}
			records = append(records, c.toRecord(p))
		}
		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		req.StartCursor = *resp.NextCursor
	}
	c.logger.Debug("Fetched Notion records", "count", len(records), "databaseID", c.databaseID)
	return records, nil
}

// CreateRecord adds a page with title and rng to the database.
func (c *Client) CreateRecord(ctx context.Context, title string, rng models.Range) (*models.Record, error) {
	c.resolveTitleColumn(ctx)
	body := createPageRequest{
		Parent:     parent{DatabaseID: c.databaseID},
		Properties: c.properties(title, &rng),
	}
	var created page
	if err := c.do(ctx, http.MethodPost, "/pages", body, &created); err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return c.toRecord(&created), nil
}

// UpdateRecord sets the title of page id, and its date when rng is non-nil.
func (c *Client) UpdateRecord(ctx context.Context, id, title string, rng *models.Range) error {
	c.resolveTitleColumn(ctx)
	body := updatePageRequest{Properties: c.properties(title, rng)}
	if err := c.do(ctx, http.MethodPatch, "/pages/"+id, body, nil); err != nil {
		return fmt.Errorf("failed to update page %s: %w", id, err)
	}
	return nil
}

// ArchiveRecord moves page id to the trash. Notion pages are never hard-deleted.
func (c *Client) ArchiveRecord(ctx context.Context, id string) error {
	archived := true
	if err := c.do(ctx, http.MethodPatch, "/pages/"+id, updatePageRequest{Archived: &archived}, nil); err != nil {
		return fmt.Errorf("failed to archive page %s: %w", id, err)
	}
	return nil
}

func (c *Client) properties(title string, rng *models.Range) map[string]property {
	props := map[string]property{
		c.titleKey(): {Title: []richText{{Text: &textContent{Content: title}}}},
	}
	if rng != nil {
		d := &dateValue{Start: rng.Start.String()}
		// The record side only stores an end that differs from the start.
		if rng.End != nil && !rng.End.IsZero() && !rng.End.Equal(rng.Start) {
			end := rng.End.String()
			d.End = &end
		}
		props[c.dateProperty] = property{Date: d}
	}
	return props
}

// resolveTitleColumn reads the database schema when no page has revealed the
// title column yet. On failure the configured name is used.
func (c *Client) resolveTitleColumn(ctx context.Context) {
	if c.titleColumn != "" {
		return
	}
	var db database
	if err := c.do(ctx, http.MethodGet, "/databases/"+c.databaseID, nil, &db); err != nil {
		c.logger.Warn("Could not read Notion database schema, using configured title property.", "property", c.titleProperty, "error", err)
		return
	}
	for name, prop := range db.Properties {
		if prop.Type == models.PropertyTitle {
			c.titleColumn = name
			return
		}
	}
}

// titleKey is the property titles are written to: the title column seen on
// the database's pages, or the configured name before any page was read.
func (c *Client) titleKey() string {
	if c.titleColumn != "" {
		return c.titleColumn
	}
	return c.titleProperty
}

// toRecord flattens a page into a Record.
func (c *Client) toRecord(p *page) *models.Record {
	rec := &models.Record{
		ID:         p.ID,
		URL:        p.URL,
		Properties: make(map[string]models.Property, len(p.Properties)),
	}
	for name, prop := range p.Properties {
		rec.Properties[name] = models.Property{Name: name, Type: prop.Type, Text: plainText(prop)}
		if prop.Type == models.PropertyTitle {
			c.titleColumn = name
		}
	}

	prop, ok := p.Properties[c.dateProperty]
	if !ok || prop.Type != models.PropertyDate || prop.Date == nil {
		return rec
	}
	start, err := models.ParseDateValue(prop.Date.Start)
	if err != nil {
		c.logger.Warn("Ignoring Notion page with an invalid date.", "pageID", p.ID, "error", err)
		return rec
	}
	rng := &models.Range{Start: start}
	if prop.Date.End != nil && *prop.Date.End != "" {
		end, err := models.ParseDateValue(*prop.Date.End)
		if err != nil {
			c.logger.Warn("Ignoring invalid end date of Notion page.", "pageID", p.ID, "error", err)
		} else {
			rng.End = &end
		}
	}
	rec.Range = rng
	return rec
}

func plainText(prop property) string {
	var segments []richText
	switch prop.Type {
	case models.PropertyTitle:
		segments = prop.Title
	case models.PropertyRichText:
		segments = prop.RichText
	default:
		return ""
	}
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.PlainText)
	}
	return b.String()
}

// do sends one API request. out may be nil when the answer is not needed.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Notion-Version", notionVersion)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "notioncal/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
