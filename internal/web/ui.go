// internal/web/ui.go
package web

const uiHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Modbus Viewer</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    background: #1b1b1d;
    color: #e4e4e7;
    min-height: 100vh;
  }
  .container { max-width: 1000px; margin: 0 auto; padding: 24px; }
  h1 { font-size: 22px; margin-bottom: 20px; }
  form { display: flex; gap: 10px; flex-wrap: wrap; align-items: end; margin-bottom: 16px; }
  label { display: flex; flex-direction: column; font-size: 12px; color: #a1a1aa; gap: 4px; }
  input {
    background: #27272a; color: #fff; border: 1px solid #3f3f46;
    border-radius: 6px; padding: 8px 10px; font-size: 14px;
  }
  button {
    background: #2563eb; color: #fff; border: none; padding: 9px 18px;
    border-radius: 6px; font-size: 14px; font-weight: 600; cursor: pointer;
  }
  button.secondary { background: #3f3f46; }
  #status { font-size: 13px; color: #a1a1aa; margin-bottom: 12px; }
  #error { color: #f87171; font-weight: 600; margin-bottom: 12px; }
  .section { margin: 18px 0 8px; font-weight: 600; }
  .row { display: flex; gap: 12px; flex-wrap: wrap; }
  .led { display: flex; align-items: center; gap: 6px; font-size: 13px; }
  .dot { width: 16px; height: 16px; border-radius: 50%; background: #3f3f46; }
  .dot.on { background: #22c55e; box-shadow: 0 0 8px #22c55e; }
  .reg {
    min-width: 72px; text-align: center; border: 1px solid #3f3f46;
    border-radius: 6px; padding: 6px;
  }
  .reg .label { font-size: 11px; color: #a1a1aa; }
  .reg .value { font-family: monospace; font-size: 20px; }
  .reg.bad { border-color: #f87171; }
</style>
</head>
<body>
<div class="container">
  <h1>Modbus Viewer</h1>
  <form id="connect">
    <label>Host <input id="host" value="{{HOST}}" placeholder="127.0.0.1"></label>
    <label>Port <input id="port" value="{{PORT}}" size="6" placeholder="8000"></label>
    <label>Token <input id="token" type="password" value="{{TOKEN}}"></label>
    <button type="submit">Fetch</button>
    <button type="button" class="secondary" id="stop">Stop</button>
  </form>
  <div id="status">Idle</div>
  <div id="error"></div>
  <div id="panel"></div>
</div>
<script>
const $ = (id) => document.getElementById(id);

function esc(s) {
  return String(s).replace(/[&<>"']/g, (c) => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;',"'":'&#39;'}[c]));
}

function leds(list) {
  if (!list || list.length === 0) return '<span class="label">none</span>';
  return list.map((l) =>
    '<div class="led"><div class="dot' + (l.on ? ' on' : '') + '"></div>' + esc(l.label) + '</div>').join('');
}

function regs(list) {
  if (!list || list.length === 0) return '<span class="label">none</span>';
  return list.map((r) =>
    '<div class="reg' + (r.valid ? '' : ' bad') + '"><div class="label">' + esc(r.label) +
    '</div><div class="value">' + esc(r.value) + '</div></div>').join('');
}

function render(v) {
  let line = v.state;
  if (v.connection && v.connection.url) line += ' · ' + v.connection.url;
  line += ' · ' + v.fetches + ' fetches';
  if (v.last_success) line += ' · last ' + new Date(v.last_success).toLocaleTimeString();
  $('status').textContent = line;
  $('error').textContent = v.error ? 'Error: ' + v.error : '';

  if (!v.panel || v.error) { $('panel').innerHTML = ''; return; }
  const p = v.panel;
  $('panel').innerHTML =
    '<div>User: ' + esc(p.user) + ' &nbsp; Device: ' + esc(p.ip) + '</div>' +
    '<div class="section">Coils</div><div class="row">' + leds(p.coils) + '</div>' +
    '<div class="section">Discrete inputs</div><div class="row">' + leds(p.discrete_inputs) + '</div>' +
    '<div class="section">Input registers</div><div class="row">' + regs(p.input_registers) + '</div>' +
    '<div class="section">Holding registers</div><div class="row">' + regs(p.holding_registers) + '</div>';
}

async function post(path, body) {
  const res = await fetch(path, {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: body ? JSON.stringify(body) : undefined,
  });
  render(await res.json());
}

$('connect').addEventListener('submit', (e) => {
  e.preventDefault();
  $('status').textContent = 'Fetching...';
  post('/api/connect', {host: $('host').value, port: $('port').value, token: $('token').value});
});
$('stop').addEventListener('click', () => post('/api/stop'));

function connectSocket() {
  const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
  const ws = new WebSocket(proto + location.host + '/ws');
  ws.onmessage = (m) => render(JSON.parse(m.data));
  ws.onclose = () => setTimeout(connectSocket, 2000);
}

fetch('/api/state').then((r) => r.json()).then(render);
connectSocket();
</script>
</body>
</html>
`
