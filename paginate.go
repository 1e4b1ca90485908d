package jangkau

import "context"

const (
	// DefaultPageLimit is the page size GetAll uses when none is configured.
	DefaultPageLimit = 20
	// DefaultMaxPages bounds pagination loops against servers that never
	// report a final page.
	DefaultMaxPages = 100
)

// PaginateConfig drives GetAll. Zero values take the documented defaults;
// setting PageKey switches from offset/limit to page/size pagination.
type PaginateConfig struct {
	Limit     int    // page size, default 20
	MaxPages  int    // loop bound, default 100
	OffsetKey string // default "offset"
	LimitKey  string // default "limit"
	PageKey   string // page-number parameter; enables page/size mode
	SizeKey   string // default "size", page/size mode only
	StartPage int    // default 1, page/size mode only
}

// GetAll fetches every page of a registered read endpoint and returns the
// accumulated items in request order. The loop stops on an empty page, a
// page shorter than the limit, or the MaxPages bound. A failed page fails
// the whole operation.
func (c *Client) GetAll(ctx context.Context, name string, params Params, cfg PaginateConfig) ([]any, error) {
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	offsetKey := cfg.OffsetKey
	if offsetKey == "" {
		offsetKey = "offset"
	}
	limitKey := cfg.LimitKey
	if limitKey == "" {
		limitKey = "limit"
	}
	sizeKey := cfg.SizeKey
	if sizeKey == "" {
		sizeKey = "size"
	}
	page := cfg.StartPage
	if page <= 0 {
		page = 1
	}

	var all []any
	offset := 0
	for i := 0; i < maxPages; i++ {
		pageParams := cloneParams(params)
		if cfg.PageKey != "" {
			pageParams[cfg.PageKey] = page
			pageParams[sizeKey] = limit
		} else {
			pageParams[offsetKey] = offset
			pageParams[limitKey] = limit
		}

		res, err := c.Call(ctx, name, pageParams)
		if err != nil {
			return nil, err
		}

		items := res.Items()
		all = append(all, items...)
		if len(items) < limit {
			break
		}
		offset += limit
		page++
	}
	return all, nil
}

// CursorConfig drives GetCursor. Next extracts the following cursor from a
// page result; the default probes conventional envelope fields.
type CursorConfig struct {
	CursorKey string // default "cursor"
	LimitKey  string // default "limit"
	Limit     int    // page size sent when positive
	MaxPages  int    // loop bound, default 100
	Next      func(res *Result) (string, bool)
}

// GetCursor follows a cursor-paginated read endpoint and returns the
// accumulated items in request order. The loop stops on an empty page, a
// missing next cursor, or the MaxPages bound. A cursor already present in
// params seeds the first page.
func (c *Client) GetCursor(ctx context.Context, name string, params Params, cfg CursorConfig) ([]any, error) {
	cursorKey := cfg.CursorKey
	if cursorKey == "" {
		cursorKey = "cursor"
	}
	limitKey := cfg.LimitKey
	if limitKey == "" {
		limitKey = "limit"
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	next := cfg.Next
	if next == nil {
		next = defaultNextCursor
	}

	var all []any
	cursor := ""
	for i := 0; i < maxPages; i++ {
		pageParams := cloneParams(params)
		if cursor != "" {
			pageParams[cursorKey] = cursor
		}
		if cfg.Limit > 0 {
			pageParams[limitKey] = cfg.Limit
		}

		res, err := c.Call(ctx, name, pageParams)
		if err != nil {
			return nil, err
		}

		items := res.Items()
		all = append(all, items...)
		if len(items) == 0 {
			break
		}

		nextCursor, ok := next(res)
		if !ok || nextCursor == "" {
			break
		}
		cursor = nextCursor
	}
	return all, nil
}

// defaultNextCursor probes the response envelope for a follow-up cursor:
// flat next_cursor/nextCursor/next fields, then the same under meta or
// pagination.
func defaultNextCursor(res *Result) (string, bool) {
	obj, ok := res.Payload.(map[string]any)
	if !ok {
		return "", false
	}
	if s := cursorField(obj); s != "" {
		return s, true
	}
	for _, nest := range []string{"meta", "pagination"} {
		if m, ok := obj[nest].(map[string]any); ok {
			if s := cursorField(m); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func cursorField(obj map[string]any) string {
	for _, key := range []string{"next_cursor", "nextCursor", "next"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func cloneParams(params Params) Params {
	clone := make(Params, len(params)+2)
	for k, v := range params {
		clone[k] = v
	}
	return clone
}
