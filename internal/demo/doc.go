// Package demo serves an embedded practice exam page for validating the
// watch loop end to end.
//
// The page polls the getSuspiciousEventCount accessor that a watch session
// injects into it, so a working setup shows the live counter on the page
// itself. Without injection the page reports that examwatch is absent.
package demo
