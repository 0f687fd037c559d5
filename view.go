package main

import (
	"html/template"
	"net/http"
)

func serveIndex(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = indexTmpl.Execute(w, nil)
}

var indexTmpl = template.Must(template.New("watchzone").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>WatchZone</title>
  <style>
    :root{ --bg:#0d1117; --panel:#111827; --border:#1f2937; --fg:#e5e7eb; --muted:#9ca3af; --accent:#22c55e }
    *{ box-sizing:border-box }
    body{ margin:0; padding:16px; background:var(--bg); color:var(--fg); font-family:ui-sans-serif,system-ui,-apple-system,Segoe UI,Roboto,Helvetica,Arial }
    .wrap{ max-width:1200px; margin:0 auto; display:grid; grid-template-columns:2fr 1fr; gap:12px }
    h1{ grid-column:1/-1; margin:0 0 4px; font-size:20px }
    .panel{ border:1px solid var(--border); border-radius:10px; background:var(--panel); overflow:hidden }
    .panel h2{ margin:0; padding:8px 12px; font-size:13px; color:var(--muted); border-bottom:1px solid var(--border); text-transform:uppercase; letter-spacing:.06em }
    video{ width:100%; display:block; background:#000; min-height:320px }
    .screen{ height:300px; overflow:auto; padding:10px 12px; font-family:ui-monospace,SFMono-Regular,Menlo,Consolas,monospace; font-size:13px; line-height:1.5 }
    .line{ white-space:pre-wrap; word-break:break-word }
    .ts{ color:var(--muted) }
    .usr{ color:#60a5fa }
    .media{ color:var(--accent); cursor:pointer; text-decoration:underline }
    .err{ color:#ef4444 }
    .promptline{ display:flex; gap:8px; padding:10px 12px; border-top:1px solid var(--border) }
    input{ flex:1; background:transparent; border:1px solid var(--border); color:var(--fg); padding:6px 8px; border-radius:6px; font-family:inherit; font-size:13px }
    button{ background:transparent; border:1px solid var(--border); color:var(--fg); padding:6px 10px; border-radius:6px; cursor:pointer; font-size:13px }
    button:hover{ border-color:var(--accent) }
    .list{ max-height:220px; overflow:auto; padding:8px 12px; font-size:13px }
    .list .dir{ color:var(--muted); margin-top:6px }
    .list .file{ cursor:pointer; padding:2px 0 2px 12px }
    .list .file:hover{ color:var(--accent) }
    .roster span{ display:inline-block; border:1px solid var(--border); padding:2px 10px; border-radius:999px; margin:4px 4px 8px 0; font-size:12px }
    #join{ grid-column:1/-1; display:flex; gap:8px; align-items:center; padding:10px 12px }
    #join label{ color:var(--muted); font-size:13px }
    .hidden{ display:none }
  </style>
</head>
<body>
  <div class="wrap">
    <h1>WatchZone</h1>
    <div id="join" class="panel">
      <label for="name">name</label>
      <input id="name" type="text" placeholder="your greenlisted name" />
      <button id="enter">join</button>
      <span id="join-status" class="err"></span>
    </div>
    <div>
      <div class="panel">
        <h2>Now playing — <span id="now">nothing</span></h2>
        <video id="player" controls></video>
      </div>
      <div class="panel" style="margin-top:12px">
        <h2>Media</h2>
        <div id="media" class="list"></div>
      </div>
    </div>
    <div>
      <div class="panel roster">
        <h2>Watching</h2>
        <div id="roster" class="list"></div>
      </div>
      <div class="panel" style="margin-top:12px">
        <h2>Chat</h2>
        <div id="log" class="screen"></div>
        <div class="promptline">
          <input id="cmd" type="text" placeholder="join first" disabled />
          <button id="send" disabled>send</button>
        </div>
      </div>
    </div>
  </div>
  <script>
    const $ = (id) => document.getElementById(id);
    const log = $('log'), player = $('player');
    let pinned = null;      // {dir, file, mode}
    let applying = false;   // true while applying a mirrored command

    const wsProto = location.protocol === 'https:' ? 'wss' : 'ws';
    const ws = new WebSocket(wsProto + '://' + location.host + '/ws');

    function send(obj){ if (ws.readyState === WebSocket.OPEN) ws.send(JSON.stringify(obj)); }
    function esc(s){ return String(s).replace(/[&<>"]/g, c => ({'&':'&amp;','<':'&lt;','>':'&gt;','"':'&quot;'}[c])); }
    function srcFor(m){ return '/media/' + m.dir.replace(/^\/+|\/+$/g,'') + '/' + m.file; }

    function appendLine(html, cls){
      const div = document.createElement('div');
      div.className = 'line' + (cls ? ' ' + cls : '');
      div.innerHTML = html;
      log.appendChild(div);
      log.scrollTop = log.scrollHeight;
    }
    function renderMessage(m){
      const ts = new Date(m.timestamp).toLocaleTimeString([], {hour12:false});
      if (m.media) {
        appendLine('<span class="ts">[' + ts + ']</span> <span class="usr">' + esc(m.username) + '</span> shared <span class="media">' + esc(m.media) + '</span>');
      } else {
        appendLine('<span class="ts">[' + ts + ']</span> <span class="usr">' + esc(m.username) + '</span>: ' + esc(m.text || ''));
      }
    }
    function renderRoster(users){
      $('roster').innerHTML = (users || []).map(u => '<span>' + esc(u.name) + '</span>').join(' ') || '<span>nobody yet</span>';
    }
    function renderMedia(listings){
      const box = $('media');
      box.innerHTML = '';
      (listings || []).forEach(l => {
        const dir = document.createElement('div');
        dir.className = 'dir';
        dir.textContent = l.dir;
        box.appendChild(dir);
        (l.files || []).forEach(f => {
          const el = document.createElement('div');
          el.className = 'file';
          el.textContent = f;
          el.onclick = () => send({type:'selectMedia', dir:l.dir, file:f});
          box.appendChild(el);
        });
      });
      if (!box.children.length) box.textContent = 'no media found';
    }
    function applyPinned(m){
      pinned = m;
      $('now').textContent = m.dir + '/' + m.file;
      applying = true;
      player.src = srcFor(m);
      if (m.mode === 'playing') { player.play().catch(()=>{}); }
      setTimeout(()=>{ applying = false; }, 200);
    }

    ws.onmessage = (e) => {
      let ev;
      try { ev = JSON.parse(e.data); } catch(_) { return; }
      switch (ev.type) {
        case 'chatEnabled':
          if (ev.enabled) {
            $('join').classList.add('hidden');
            $('cmd').disabled = false; $('cmd').placeholder = 'type a message and press Enter';
            $('send').disabled = false;
          }
          break;
        case 'error':
          if (!$('join').classList.contains('hidden')) $('join-status').textContent = ev.reason;
          else appendLine('error: ' + esc(ev.reason), 'err');
          break;
        case 'chatHistory':
          log.innerHTML = '';
          (ev.messages || []).forEach(renderMessage);
          break;
        case 'userList': renderRoster(ev.users); break;
        case 'mediaList': renderMedia(ev.listings); break;
        case 'chatMessage': if (ev.message) renderMessage(ev.message); break;
        case 'playingNow': if (ev.media) applyPinned(ev.media); break;
        case 'playingNowPlay':
          applying = true; player.play().catch(()=>{}); setTimeout(()=>{ applying = false; }, 200);
          if (pinned) pinned.mode = 'playing';
          break;
        case 'playingNowPause':
          applying = true; player.pause(); setTimeout(()=>{ applying = false; }, 200);
          if (pinned) pinned.mode = 'paused';
          break;
        case 'playingNowSeek':
          applying = true; player.currentTime = ev.timestamp; setTimeout(()=>{ applying = false; }, 200);
          break;
      }
    };

    player.addEventListener('play',  () => { if (!applying && pinned) send({type:'playMedia',  dir:pinned.dir, file:pinned.file}); });
    player.addEventListener('pause', () => { if (!applying && pinned) send({type:'pauseMedia', dir:pinned.dir, file:pinned.file}); });
    player.addEventListener('seeked',() => { if (!applying && pinned) send({type:'seekMedia',  dir:pinned.dir, file:pinned.file, timestamp:player.currentTime}); });

    $('enter').onclick = () => { const n = $('name').value.trim(); if (n) send({type:'setUsername', name:n}); };
    $('name').addEventListener('keydown', e => { if (e.key === 'Enter') $('enter').click(); });
    function sendChat(){
      const text = $('cmd').value.trim();
      if (!text) return;
      send({type:'chatMessage', text});
      $('cmd').value = '';
    }
    $('send').onclick = sendChat;
    $('cmd').addEventListener('keydown', e => { if (e.key === 'Enter') sendChat(); });
  </script>
</body>
</html>`))
