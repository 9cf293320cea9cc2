package browser

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/examwatch/examwatch/internal/model"
)

func TestSentinelScript(t *testing.T) {
	t.Parallel()

	t.Run("guards against double injection", func(t *testing.T) {
		t.Parallel()

		if !strings.Contains(sentinelScript, "window.__examwatchSentinel") {
			t.Error("sentinel script has no injection guard flag")
		}
		if !strings.Contains(sentinelScript, "if (window.__examwatchSentinel) return;") {
			t.Error("sentinel script does not bail out when already injected")
		}
	})

	t.Run("exposes the count accessor", func(t *testing.T) {
		t.Parallel()

		if !strings.Contains(sentinelScript, "window."+countAccessorName) {
			t.Errorf("sentinel script does not install window.%s", countAccessorName)
		}
	})

	t.Run("forwards events over the binding", func(t *testing.T) {
		t.Parallel()

		if !strings.Contains(sentinelScript, "window."+sentinelBinding) {
			t.Errorf("sentinel script does not call the %s binding", sentinelBinding)
		}
	})

	t.Run("listens for visibility and focus changes", func(t *testing.T) {
		t.Parallel()

		if !strings.Contains(sentinelScript, "'visibilitychange'") {
			t.Error("sentinel script does not listen for visibilitychange")
		}
		if !strings.Contains(sentinelScript, "document.visibilityState === 'hidden'") {
			t.Error("sentinel script does not check for the hidden state")
		}
		if !strings.Contains(sentinelScript, "'blur'") {
			t.Error("sentinel script does not listen for blur")
		}
	})

	t.Run("reports the model event kinds", func(t *testing.T) {
		t.Parallel()

		kinds := []model.EventKind{model.KindTabSwitch, model.KindFocusLoss}
		for _, kind := range kinds {
			if !strings.Contains(sentinelScript, "report('"+string(kind)+"')") {
				t.Errorf("sentinel script does not report kind %q", kind)
			}
		}
	})
}

func TestNoticeScript(t *testing.T) {
	t.Parallel()

	t.Run("substitutes message and fade delay", func(t *testing.T) {
		t.Parallel()

		script := noticeScript("Tab switch detected!", 4*time.Second)

		if !strings.Contains(script, `"Tab switch detected!"`) {
			t.Error("notice script does not contain the quoted message")
		}
		if !strings.Contains(script, "}, 4000)") {
			t.Error("notice script does not schedule the fade after 4000 ms")
		}
		if strings.Contains(script, "MESSAGE_JSON_PLACEHOLDER") {
			t.Error("message placeholder left in notice script")
		}
		if strings.Contains(script, "FADE_MS_PLACEHOLDER") {
			t.Error("fade delay placeholder left in notice script")
		}
	})

	t.Run("targets the shared notice element", func(t *testing.T) {
		t.Parallel()

		script := noticeScript("warning", time.Second)

		if !strings.Contains(script, "getElementById('"+noticeElementID+"')") {
			t.Errorf("notice script does not look up element %q", noticeElementID)
		}
		if strings.Contains(script, "removeChild") || strings.Contains(script, ".remove(") {
			t.Error("notice script removes the element; it must stay in the page")
		}
	})

	t.Run("resets opacity and fade timer on every warning", func(t *testing.T) {
		t.Parallel()

		script := noticeScript("warning", time.Second)

		if !strings.Contains(script, "el.style.opacity = '1'") {
			t.Error("notice script does not reset opacity")
		}
		if !strings.Contains(script, "clearTimeout(window.__examwatchNoticeTimer)") {
			t.Error("notice script does not cancel the previous fade timer")
		}
	})

	t.Run("encodes hostile messages safely", func(t *testing.T) {
		t.Parallel()

		messages := []string{
			`"; alert('pwned'); var x = "`,
			"</script><script>alert(1)</script>",
			"line one\nline two",
			"Fenster gewechselt! Bitte zurück zur Prüfung.",
		}

		for _, message := range messages {
			script := noticeScript(message, time.Second)

			quoted, err := json.Marshal(message)
			if err != nil {
				t.Fatalf("failed to marshal message %q: %v", message, err)
			}
			if !strings.Contains(script, string(quoted)) {
				t.Errorf("notice script does not contain the JSON-encoded form of %q", message)
			}
		}
	})

	t.Run("newlines never leak into the script raw", func(t *testing.T) {
		t.Parallel()

		script := noticeScript("first\nsecond", time.Second)

		if !strings.Contains(script, `"first\nsecond"`) {
			t.Error("newline was not escaped in the notice message")
		}
	})

	t.Run("zero fade delay is passed through", func(t *testing.T) {
		t.Parallel()

		script := noticeScript("warning", 0)

		if !strings.Contains(script, "}, 0)") {
			t.Error("zero fade delay not substituted as 0 ms")
		}
	})
}

func TestCountExpr(t *testing.T) {
	t.Parallel()

	if !strings.Contains(countExpr, "window."+countAccessorName) {
		t.Errorf("count expression does not call window.%s", countAccessorName)
	}
	if !strings.Contains(countExpr, "return -1") {
		t.Error("count expression does not signal a missing accessor with -1")
	}
}

func TestSentinelEventPayload(t *testing.T) {
	t.Parallel()

	payload := `{"kind":"tab_switch","at":1756000000000}`

	var event sentinelEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		t.Fatalf("failed to unmarshal sentinel payload: %v", err)
	}

	if event.Kind != string(model.KindTabSwitch) {
		t.Errorf("kind = %q, want %q", event.Kind, model.KindTabSwitch)
	}
	if event.At != 1756000000000 {
		t.Errorf("at = %d, want 1756000000000", event.At)
	}
}

func TestPageTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "plain title",
			html: `<html><head><title>Final Exam</title></head><body></body></html>`,
			want: "Final Exam",
		},
		{
			name: "whitespace is trimmed",
			html: "<html><head><title>\n  Final Exam  \n</title></head><body></body></html>",
			want: "Final Exam",
		},
		{
			name: "missing title",
			html: `<html><head></head><body><h1>Exam</h1></body></html>`,
			want: "",
		},
		{
			name: "first title wins",
			html: `<html><head><title>First</title><title>Second</title></head></html>`,
			want: "First",
		},
		{
			name: "fragment without head",
			html: `<div>loose markup</div>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := pageTitle(tt.html); got != tt.want {
				t.Errorf("pageTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}
