package orderlens

import "context"

// Store runs compiled predicates against the full order collection.
type Store interface {
	// Query applies predicate (nil or MatchAll selects everything). Rows are
	// ordered by id ascending. The returned Result must be closed.
	Query(ctx context.Context, predicate Expr) (Result, error)
	// Insert writes courses and orders; it is used by the seeder and tests.
	Insert(ctx context.Context, courses []Course, orders []Order) error
}

// Result is one logical read of a query. Count, Page and All observe the same
// data wherever the backing store can provide that.
type Result interface {
	Count(ctx context.Context) (int64, error)
	// Page returns rows of the 1-based page number of the given size.
	Page(ctx context.Context, number, size int) ([]Order, error)
	All(ctx context.Context) ([]Order, error)
	Close() error
}

// PageWindow is the resolved position of a page within a result.
type PageWindow struct {
	Number int
	Size   int
	Pages  int
}

func (w PageWindow) Offset() int {
	return (w.Number - 1) * w.Size
}

// DefaultPerPage is used when a request does not ask for a positive page size.
const DefaultPerPage = 10

// ResolvePage clamps a requested page the way a lenient paginator does:
// numbers below 1 select the first page, numbers past the end select the last.
func ResolvePage(number, size int, total int64) PageWindow {
	if size < 1 {
		size = DefaultPerPage
	}
	pages := int((total + int64(size) - 1) / int64(size))
	if pages < 1 {
		pages = 1
	}
	if number < 1 {
		number = 1
	}
	if number > pages {
		number = pages
	}
	return PageWindow{Number: number, Size: size, Pages: pages}
}

func isMatchAll(e Expr) bool {
	switch e.(type) {
	case nil, MatchAll:
		return true
	default:
		return false
	}
}
