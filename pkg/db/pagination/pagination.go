package pagination

import (
	"encoding/base64"
	"encoding/json"

	"gorm.io/gorm"
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=10" validate:"gte=1,lte=250"` // Min 1, Max 250
}

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken      string `json:"next_page_token"`
	PreviousPageTooken string `json:"previous_page_token"`
	HasMore            bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", nil
	}

	return base64.StdEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

func BuildCursorPageInfo[T any](data []*T, limit int32, extractCursor func(*T) string) *PageInfo {
	if len(data) == 0 {
		return &PageInfo{HasMore: false}
	}

	hasMore := false
	if len(data) > int(limit) {
		hasMore = true
		data = data[:limit]
	}

	pageInfo := &PageInfo{
		HasMore:       hasMore,
		NextPageToken: extractCursor(data[len(data)-1]),
	}

	return pageInfo
}

// ApplyCursor restricts stmt to rows after the cursor in (created_at desc, id desc) order
// and fetches one extra row so BuildCursorPageInfo can detect another page.
func ApplyCursor(stmt *gorm.DB, page Pagination) *gorm.DB {
	size := page.PageSize
	if size <= 0 {
		size = 50
	}
	if page.PageToken != "" {
		if cursor, err := DecodeCursor(page.PageToken); err == nil && cursor.ID != "" {
			stmt = stmt.Where("id < ?", cursor.ID)
		}
	}
	return stmt.Limit(size + 1)
}

// Paginate trims the lookahead row fetched by ApplyCursor and builds the page info.
func Paginate[T any](items []*T, pageSize int32, cursorOf func(*T) Cursor) ([]*T, PageInfo) {
	if pageSize <= 0 {
		pageSize = 50
	}
	info := BuildCursorPageInfo(items, pageSize, func(item *T) string {
		token, err := EncodeCursor(cursorOf(item))
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > int(pageSize) {
		items = items[:pageSize]
	}
	if info == nil {
		return items, PageInfo{}
	}
	if !info.HasMore {
		info.NextPageToken = ""
	}
	return items, *info
}
