package reports

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ClampPageSize applies DefaultPageSize to non-positive sizes and caps the
// rest at MaxPageSize.
func ClampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// PageBounds turns a 1-based page and a page size into LIMIT and OFFSET.
func PageBounds(page, pageSize int) (limit, offset int) {
	if page <= 0 {
		page = 1
	}
	limit = ClampPageSize(pageSize)
	return limit, (page - 1) * limit
}
