package browser

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Names shared between the injected scripts and the Go side.
const (
	// sentinelBinding is the DevTools binding the sentinel script calls to
	// forward events to the Go side.
	sentinelBinding = "__examwatchReport"

	// noticeElementID is the DOM id of the floating warning notice.
	noticeElementID = "examwatch-notice"

	// countAccessorName is the page-global zero-argument function exposing
	// the page-local event counter, so the exam platform itself can poll
	// anti-cheat telemetry without talking to the Go side.
	countAccessorName = "getSuspiciousEventCount"
)

// sentinelScript observes the page and reports suspicious activity.
// It is registered with Page.addScriptToEvaluateOnNewDocument so reloads
// re-inject it, and evaluated once in the current document at inject time.
//
// The script guards against double injection with a window-scoped flag:
// evaluating it a second time is a no-op, so no duplicate listeners are
// attached and the counter is untouched. It maintains a page-local mirror
// counter behind the global accessor; the Go monitor's counter is the
// canonical one because the mirror resets with the document on navigation.
const sentinelScript = `(() => {
	if (window.__examwatchSentinel) return;
	window.__examwatchSentinel = true;

	window.__examwatchCount = 0;

	window.getSuspiciousEventCount = function() {
		return window.__examwatchCount;
	};

	function report(kind) {
		window.__examwatchCount++;
		try {
			if (typeof window.__examwatchReport === 'function') {
				window.__examwatchReport(JSON.stringify({ kind: kind, at: Date.now() }));
			}
		} catch (e) {}
	}

	document.addEventListener('visibilitychange', () => {
		if (document.visibilityState === 'hidden') {
			report('tab_switch');
		}
	});

	window.addEventListener('blur', () => {
		report('focus_loss');
	});
})();`

// noticeScriptTemplate shows or updates the floating warning notice.
// The element is created on first use and reused afterwards; it is never
// removed from the page. Showing a new warning resets full opacity,
// interrupting any fade in progress, and schedules a fresh fade.
// MESSAGE_JSON_PLACEHOLDER and FADE_MS_PLACEHOLDER are replaced before
// evaluation.
const noticeScriptTemplate = `(() => {
	var el = document.getElementById('examwatch-notice');
	if (!el) {
		el = document.createElement('div');
		el.id = 'examwatch-notice';
		el.style.position = 'fixed';
		el.style.top = '16px';
		el.style.right = '16px';
		el.style.zIndex = '2147483647';
		el.style.padding = '12px 20px';
		el.style.background = '#c0392b';
		el.style.color = '#ffffff';
		el.style.font = '14px/1.4 sans-serif';
		el.style.borderRadius = '4px';
		el.style.pointerEvents = 'none';
		el.style.transition = 'opacity 1s ease';
		document.body.appendChild(el);
	}
	el.textContent = MESSAGE_JSON_PLACEHOLDER;
	el.style.opacity = '1';
	if (window.__examwatchNoticeTimer) {
		clearTimeout(window.__examwatchNoticeTimer);
	}
	window.__examwatchNoticeTimer = setTimeout(() => {
		el.style.opacity = '0';
	}, FADE_MS_PLACEHOLDER);
})();`

// deltasExpr reads the outer-minus-inner window dimension deltas.
const deltasExpr = `({ w: window.outerWidth - window.innerWidth, h: window.outerHeight - window.innerHeight })`

// countExpr reads the page-local event counter through the global accessor.
// It evaluates to -1 when the accessor is missing so the Go side can tell
// "not injected" apart from "zero events".
const countExpr = `(() => {
	if (typeof window.getSuspiciousEventCount !== 'function') return -1;
	return window.getSuspiciousEventCount();
})();`

// noticeScript builds the notice script for one warning. The message is
// JSON-encoded so arbitrary text cannot break out of the string literal.
func noticeScript(message string, fadeDelay time.Duration) string {
	quoted, err := json.Marshal(message)
	if err != nil {
		// json.Marshal cannot fail for a string; keep the notice working
		// anyway with a fixed fallback.
		quoted = []byte(`"Suspicious activity detected!"`)
	}

	script := strings.ReplaceAll(noticeScriptTemplate, "MESSAGE_JSON_PLACEHOLDER", string(quoted))
	return strings.ReplaceAll(script, "FADE_MS_PLACEHOLDER", strconv.FormatInt(fadeDelay.Milliseconds(), 10))
}

// sentinelEvent is the payload the sentinel script sends over the binding.
type sentinelEvent struct {
	// Kind is the event kind identifier, matching the model package kinds.
	Kind string `json:"kind"`

	// At is the page-side timestamp in milliseconds since the epoch.
	// Kept for debugging; the Go side stamps events with its own clock.
	At int64 `json:"at"`
}
