package viewmodel

// DefaultPageSize is the number of constants shown per page.
const DefaultPageSize = 6

// TotalPages is ceil(n / size). It is 0 for an empty set.
func TotalPages(n, size int) int {
	if n <= 0 {
		return 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	return (n + size - 1) / size
}

// ClampPage forces page into [1, total], or 1 when total is 0.
func ClampPage(page, total int) int {
	if total <= 0 || page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// PageBounds returns the half-open slice range of page within n items.
func PageBounds(page, size, n int) (int, int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	page = ClampPage(page, TotalPages(n, size))
	start := (page - 1) * size
	if start > n {
		start = n
	}
	end := start + size
	if end > n {
		end = n
	}
	return start, end
}
