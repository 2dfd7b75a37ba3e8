package api

import "encoding/json"

// Page is pagination metadata for a list response
type Page struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// singlePage synthesizes metadata for unpaginated responses so every list
// renders the same way
func singlePage(n int) Page {
	return Page{CurrentPage: 1, LastPage: 1, PerPage: n, Total: n}
}

// UnwrapList decodes a list payload arriving in any of the three shapes the
// backend produces: a bare array, {"data": [...]}, or Laravel-style
// {"data": {"data": [...], "current_page": ...}}. Anything unrecognized
// falls back to an empty list rather than an error.
func UnwrapList(raw json.RawMessage) ([]json.RawMessage, Page) {
	// Bare array
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, singlePage(len(items))
	}

	var outer struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &outer); err != nil || len(outer.Data) == 0 {
		return nil, Page{}
	}

	// {"data": [...]}
	if err := json.Unmarshal(outer.Data, &items); err == nil {
		return items, singlePage(len(items))
	}

	// Laravel paginator nested under "data"
	var paginated struct {
		Data        []json.RawMessage `json:"data"`
		CurrentPage int               `json:"current_page"`
		LastPage    int               `json:"last_page"`
		PerPage     int               `json:"per_page"`
		Total       int               `json:"total"`
	}
	if err := json.Unmarshal(outer.Data, &paginated); err == nil && paginated.Data != nil {
		return paginated.Data, Page{
			CurrentPage: paginated.CurrentPage,
			LastPage:    paginated.LastPage,
			PerPage:     paginated.PerPage,
			Total:       paginated.Total,
		}
	}

	return nil, Page{}
}

// UnwrapItem decodes a single-object payload that may arrive bare or nested
// under "data"
func UnwrapItem(raw json.RawMessage) json.RawMessage {
	var outer struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &outer); err == nil && len(outer.Data) > 0 && outer.Data[0] == '{' {
		return outer.Data
	}
	return raw
}
