package browser

import "errors"

// Browser and page lifecycle errors.
//
// Design decision: We use package-level sentinel errors so callers can use
// errors.Is() to tell lifecycle problems (page gone, browser gone) apart
// from transient DevTools failures. Transient failures are wrapped with
// fmt.Errorf and carry the underlying cause instead.
var (
	// ErrBrowserClosed is returned when an operation is attempted on a
	// browser that has been closed.
	ErrBrowserClosed = errors.New("browser is closed")

	// ErrPageClosed is returned when an operation is attempted on a page
	// that has been closed.
	ErrPageClosed = errors.New("page is closed")

	// ErrNoDebugURL is returned by Connect when no DevTools debug URL
	// is specified.
	ErrNoDebugURL = errors.New("no DevTools debug URL specified")

	// ErrSentinelMissing is returned when the page-global accessor is not
	// installed, which means the sentinel script has not run in the
	// current document.
	ErrSentinelMissing = errors.New("sentinel script not present in page")
)
