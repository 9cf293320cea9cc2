package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MaxEvidenceHTMLSize is the maximum number of raw HTML bytes hashed for
// evidence.  Larger documents are truncated before hashing so a pathological
// exam page cannot balloon memory during a watch.
const MaxEvidenceHTMLSize = 5 * 1024 * 1024 // 5 MB

// Evidence is a lightweight capture of the exam page taken when an event
// is observed.
//
// Design decision: We store a content hash rather than the document itself
// because the journal only needs to prove what the page looked like, not
// reproduce it. The hash allows change detection between events (did the
// page content change while the candidate was away) without retaining
// student answer text in the database.
type Evidence struct {
	// Title is the page title at capture time.
	Title string `json:"title,omitempty"`

	// HTMLHash is the SHA-256 hash of the captured document, hex encoded.
	HTMLHash string `json:"html_hash,omitempty"`

	// HTMLSize is the size in bytes of the captured document.
	HTMLSize int `json:"html_size,omitempty"`

	// ScreenshotPath is the file the screenshot was written to, if
	// screenshot evidence is enabled. Empty otherwise.
	ScreenshotPath string `json:"screenshot_path,omitempty"`

	// CapturedAt is when the capture was taken.
	CapturedAt time.Time `json:"captured_at"`
}

// NewEvidence builds an Evidence record from a captured document.
// The document bytes are hashed and discarded; only the hash and size
// are retained.
func NewEvidence(title string, html []byte) *Evidence {
	if len(html) > MaxEvidenceHTMLSize {
		html = html[:MaxEvidenceHTMLSize]
	}

	ev := &Evidence{
		Title:      title,
		HTMLSize:   len(html),
		CapturedAt: time.Now(),
	}
	if len(html) > 0 {
		hash := sha256.Sum256(html)
		ev.HTMLHash = hex.EncodeToString(hash[:])
	}
	return ev
}
