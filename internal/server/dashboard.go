package server

// DashboardHTML is the single-page live view served at /dashboard/.
// It listens on /ws and shows change batches and graded submissions.
const DashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>editplay</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, monospace;
    background: #0d1117; color: #c9d1d9; padding: 20px;
  }
  h1 { color: #58a6ff; margin-bottom: 4px; font-size: 1.5em; }
  .subtitle { color: #8b949e; margin-bottom: 20px; font-size: 0.9em; }
  .stats {
    display: grid; grid-template-columns: repeat(auto-fit, minmax(150px, 1fr));
    gap: 12px; margin-bottom: 20px;
  }
  .stat-card {
    background: #161b22; border: 1px solid #30363d; border-radius: 6px;
    padding: 16px; text-align: center;
  }
  .stat-number { font-size: 2em; font-weight: 700; color: #58a6ff; }
  .stat-label { font-size: 0.8em; color: #8b949e; margin-top: 4px; }
  #conn.connected { color: #3fb950; }
  #conn.disconnected { color: #f85149; }
  .event-log {
    background: #161b22; border: 1px solid #30363d; border-radius: 6px;
    max-height: 560px; overflow-y: auto;
  }
  .event-row {
    display: grid; grid-template-columns: 120px 110px 160px 1fr;
    padding: 8px 16px; border-bottom: 1px solid #21262d; font-size: 0.85em;
  }
  .badge { padding: 2px 8px; border-radius: 12px; font-size: 0.75em; font-weight: 600; }
  .badge.batch { background: #1f2a3d; color: #58a6ff; }
  .badge.submit { background: #2d2340; color: #d2a8ff; }
  .ok { color: #3fb950; }
  .fail { color: #f85149; }
  .muted { color: #8b949e; }
</style>
</head>
<body>
<h1>editplay</h1>
<p class="subtitle">Live edit changes and submissions &middot; <span id="conn" class="disconnected">disconnected</span></p>

<div class="stats">
  <div class="stat-card"><div class="stat-number" id="batches">0</div><div class="stat-label">Batches</div></div>
  <div class="stat-card"><div class="stat-number" id="changes">0</div><div class="stat-label">Changes</div></div>
  <div class="stat-card"><div class="stat-number" id="submissions">0</div><div class="stat-label">Graded</div></div>
  <div class="stat-card"><div class="stat-number" id="users">0</div><div class="stat-label">Users</div></div>
</div>

<div class="event-log" id="events"><div class="event-row muted">Waiting for playback...</div></div>

<script>
let batches = 0, changes = 0, submissions = 0;
const users = new Set();
const eventsDiv = document.getElementById('events');
const MAX_EVENTS = 300;

function connect() {
  const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  const ws = new WebSocket(proto + '//' + location.host + '/ws');
  const conn = document.getElementById('conn');
  ws.onopen = () => { conn.textContent = 'connected'; conn.className = 'connected'; };
  ws.onclose = () => { conn.textContent = 'disconnected'; conn.className = 'disconnected'; setTimeout(connect, 2000); };
  ws.onmessage = (e) => addEvent(JSON.parse(e.data));
}

function addEvent(ev) {
  if (batches + submissions === 0) eventsDiv.innerHTML = '';
  const row = document.createElement('div');
  row.className = 'event-row';
  let time, user, detail, badge;
  if (ev.type === 'batch') {
    const b = ev.batch;
    batches++; changes += b.changes; users.add(b.username);
    time = b.time; user = b.username;
    badge = '<span class="badge batch">' + (b.full_text ? 'FULL TEXT' : 'BATCH') + '</span>';
    detail = esc(b.exercise) + ': ' + b.changes + ' change' + (b.changes === 1 ? '' : 's');
  } else {
    const s = ev.submission;
    submissions++;
    time = s.time; user = s.username;
    badge = '<span class="badge submit">GRADED</span>';
    detail = esc(s.exercise) + ': ' + (s.compiled
      ? '<span class="ok">passed ' + s.tests_passed + '/' + s.tests_attempted + '</span>'
      : '<span class="fail">did not compile</span>');
  }
  row.innerHTML = '<span class="muted">' + new Date(time).toLocaleTimeString('en-US', {hour12: false}) + '</span>' +
    '<span>' + badge + '</span><span>' + esc(user) + '</span><span>' + detail + '</span>';
  eventsDiv.insertBefore(row, eventsDiv.firstChild);
  while (eventsDiv.children.length > MAX_EVENTS) eventsDiv.removeChild(eventsDiv.lastChild);

  document.getElementById('batches').textContent = batches;
  document.getElementById('changes').textContent = changes;
  document.getElementById('submissions').textContent = submissions;
  document.getElementById('users').textContent = users.size;
}

function esc(s) {
  const d = document.createElement('div');
  d.textContent = s;
  return d.innerHTML;
}

connect();
</script>
</body>
</html>`
