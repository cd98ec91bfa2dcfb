package notion

import "fmt"

// Wire types of the Notion REST API, limited to what the sync reads and writes.

type page struct {
	ID         string              `json:"id"`
	URL        string              `json:"url"`
	Archived   bool                `json:"archived"`
	InTrash    bool                `json:"in_trash"`
	Properties map[string]property `json:"properties"`
}

type property struct {
	Type     string     `json:"type,omitempty"`
	Title    []richText `json:"title,omitempty"`
	RichText []richText `json:"rich_text,omitempty"`
	Date     *dateValue `json:"date,omitempty"`
}

type richText struct {
	PlainText string       `json:"plain_text,omitempty"`
	Text      *textContent `json:"text,omitempty"`
}

type textContent struct {
	Content string `json:"content"`
}

type dateValue struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// database is the schema of a database; only property types are read.
type database struct {
	Properties map[string]struct {
		Type string `json:"type"`
	} `json:"properties"`
}

type queryRequest struct {
	PageSize    int    `json:"page_size,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
}

type queryResponse struct {
	Results    []page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type parent struct {
	DatabaseID string `json:"database_id"`
}

type createPageRequest struct {
	Parent     parent              `json:"parent"`
	Properties map[string]property `json:"properties"`
}

type updatePageRequest struct {
	Properties map[string]property `json:"properties,omitempty"`
	Archived   *bool               `json:"archived,omitempty"`
}

// APIError is a non-2xx answer from the Notion API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("notion api: status %d (%s): %s", e.Status, e.Code, e.Message)
}
