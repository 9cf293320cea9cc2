package demo

// examPageHTML is an embedded practice exam page that exercises every
// observable behavior of a watch session: it shows the live suspicious-event
// count through the injected getSuspiciousEventCount accessor and tells the
// reader how to trigger each event kind.
const examPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>Practice Exam - examwatch demo</title>
    <style>
        * { box-sizing: border-box; }
        body {
            font-family: system-ui, -apple-system, sans-serif;
            margin: 0;
            padding: 40px;
            background: #f4f6f8;
            color: #1f2933;
        }
        .container { max-width: 760px; margin: 0 auto; }
        h1 { margin-bottom: 4px; }
        .subtitle { color: #667085; margin-bottom: 28px; }
        .card {
            background: #fff;
            border: 1px solid #e4e7ec;
            border-radius: 8px;
            padding: 20px;
            margin-bottom: 16px;
        }
        .card h2 { margin-top: 0; font-size: 17px; }
        .question label { display: block; padding: 4px 0; }
        .watch {
            display: flex;
            align-items: baseline;
            gap: 16px;
        }
        #suspicious-count {
            font-size: 44px;
            font-weight: 700;
            color: #b42318;
        }
        .status { font-size: 14px; }
        .status.active { color: #067647; }
        .status.inactive { color: #b42318; }
        .hints {
            background: #fffaeb;
            border: 1px solid #fedf89;
            border-radius: 8px;
            padding: 16px 20px;
        }
        .hints code {
            background: #f2f4f7;
            padding: 2px 6px;
            border-radius: 4px;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>Practice Exam</h1>
        <p class="subtitle">This page is watched by examwatch while the demo runs</p>

        <div class="card">
            <h2>Proctoring Status</h2>
            <div class="watch">
                <div id="suspicious-count">-</div>
                <div id="watch-status" class="status inactive">checking...</div>
            </div>
            <p>suspicious events recorded for this session</p>
        </div>

        <div class="card question">
            <h2>Question 1</h2>
            <p>Which HTTP status code means "Not Found"?</p>
            <label><input type="radio" name="q1"> 301</label>
            <label><input type="radio" name="q1"> 404</label>
            <label><input type="radio" name="q1"> 503</label>
        </div>

        <div class="card question">
            <h2>Question 2</h2>
            <p>Which command shows the working tree status in git?</p>
            <label><input type="radio" name="q2"> git log</label>
            <label><input type="radio" name="q2"> git status</label>
            <label><input type="radio" name="q2"> git diff</label>
        </div>

        <div class="hints">
            <h2>Try triggering a warning</h2>
            <p>Switch to another tab: the count goes up and a notice fades in.</p>
            <p>Click another window: the count goes up again.</p>
            <p>Open developer tools: a notice appears but the count stays put.</p>
            <p>The count comes from <code>getSuspiciousEventCount()</code>, polled once per second.</p>
        </div>
    </div>

    <script>
        (function () {
            var countEl = document.getElementById('suspicious-count');
            var statusEl = document.getElementById('watch-status');

            function poll() {
                if (typeof window.getSuspiciousEventCount === 'function') {
                    countEl.textContent = String(window.getSuspiciousEventCount());
                    statusEl.textContent = 'examwatch active';
                    statusEl.className = 'status active';
                } else {
                    countEl.textContent = '-';
                    statusEl.textContent = 'examwatch not injected';
                    statusEl.className = 'status inactive';
                }
            }

            poll();
            setInterval(poll, 1000);
        })();
    </script>
</body>
</html>`
