package models

type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type UploadResponse struct {
	FileID string     `json:"fileId"`
	Status FileStatus `json:"status"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	p := Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return p
}

type SortField struct {
	Column    string `json:"column"`
	Direction int    `json:"direction"` // 1 ascending, -1 descending
}

// RowQuery selects rows inside one record's processed data.
// Filter values are float64 (numeric equality), bool (equality) or string
// (case-insensitive regular expression).
type RowQuery struct {
	Filter map[string]any `json:"filter,omitempty"`
	Sort   []SortField    `json:"sort,omitempty"`
}

type RowPage struct {
	Data   []Row  `json:"data"`
	Total  int    `json:"total"`
	Page   int    `json:"page"`
	Limit  int    `json:"limit"`
	Schema Schema `json:"schema"`
}

type ConnectionStats struct {
	FileID      string `json:"fileId,omitempty"`
	Connections int    `json:"connections"`
}

type GlobalConnectionStats struct {
	GlobalConnections int `json:"globalConnections"`
	FileConnections   int `json:"fileConnections"`
}
