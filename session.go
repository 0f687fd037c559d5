package main

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// seekMark remembers the last replicated seek so that an identical seek
// echoed straight back by a mirrored player is suppressed. There is one
// mark for the whole process, which is only correct because at most one
// media item can be pinned at a time.
type seekMark struct {
	dir       string
	file      string
	timestamp float64
}

// Session owns every piece of shared state: the connection registry,
// the chat history, the pinned playback state and the seek mark. All
// access is serialized through a single goroutine consuming commands,
// so none of the fields carry their own locks. The process hosts
// exactly one Session; multi-room isolation is out of scope.
type Session struct {
	greenlist *Greenlist
	catalog   *Catalog

	users      map[string]*Client
	order      []string
	messages   []Message
	playingNow *MediaFile
	lastSeek   seekMark

	commands chan func(*Session)
	closing  chan struct{}
	done     chan struct{}
	closed   atomic.Bool
}

func NewSession(gl *Greenlist, catalog *Catalog) *Session {
	return &Session{
		greenlist: gl,
		catalog:   catalog,
		users:     make(map[string]*Client),
		commands:  make(chan func(*Session), 256),
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Session) Start() {
	go s.loop()
}

// Close drains the registry, stops the coordinator and force-closes
// every remaining connection.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	remaining := make(chan []*Client, 1)
	s.enqueue(func(s *Session) {
		list := make([]*Client, 0, len(s.users))
		for _, u := range s.users {
			list = append(list, u)
		}
		remaining <- list
	})
	list := <-remaining
	close(s.closing)
	<-s.done
	for _, u := range list {
		u.close()
	}
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case fn := <-s.commands:
			fn(s)
		case <-s.closing:
			return
		}
	}
}

// enqueue blocks rather than drops: registry teardown must always run,
// and per-connection backpressure is handled at the send queues instead.
func (s *Session) enqueue(fn func(*Session)) {
	select {
	case s.commands <- fn:
	case <-s.closing:
	}
}

// Attach registers a new, unadmitted connection.
func (s *Session) Attach(c *Client) {
	s.enqueue(func(s *Session) {
		s.users[c.id] = c
		s.order = append(s.order, c.id)
		log.Debug().Str("conn", c.id).Msg("[session] connected")
	})
}

// Detach removes a connection and broadcasts one roster update. It is
// idempotent; a second call for the same handle is a no-op.
func (s *Session) Detach(c *Client) {
	s.enqueue(func(s *Session) {
		if _, ok := s.users[c.id]; !ok {
			return
		}
		delete(s.users, c.id)
		for i, id := range s.order {
			if id == c.id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		log.Debug().Str("conn", c.id).Str("user", c.name).Msg("[session] disconnected")
		s.pushRoster()
	})
}

// Route hands an inbound message to the coordinator.
func (s *Session) Route(c *Client, msg ClientMessage) {
	s.enqueue(func(s *Session) { s.dispatch(c, msg) })
}

func (s *Session) dispatch(c *Client, msg ClientMessage) {
	switch msg.Type {
	case msgSetUsername:
		s.setUsername(c, msg.Name)
	case msgChatMessage:
		s.chat(c, msg.Text, msg.Media)
	case msgSelectMedia:
		s.selectMedia(c, msg.Dir, msg.File)
	case msgPlayMedia:
		s.transport(c, msg.Dir, msg.File, ModePlaying)
	case msgPauseMedia:
		s.transport(c, msg.Dir, msg.File, ModePaused)
	case msgSeekMedia:
		s.seek(c, msg.Dir, msg.File, msg.Timestamp)
	default:
		c.pushError("unknown message type")
	}
}

// admitted consults the registry, not the handle itself, so commands
// arriving on a handle that already disconnected are rejected.
func (s *Session) admitted(c *Client) bool {
	u, ok := s.users[c.id]
	return ok && u.allowed
}

func (s *Session) setUsername(c *Client, name string) {
	if _, ok := s.users[c.id]; !ok {
		return
	}
	if name == "" {
		c.pushError("invalid message")
		return
	}
	if !s.greenlist.Allowed(name) {
		denied := false
		c.push(ServerEvent{Type: evtChatEnabled, Enabled: &denied})
		c.pushError("username not allowed")
		log.Info().Str("conn", c.id).Str("name", name).Msg("[session] admission denied")
		return
	}
	c.name = name
	c.allowed = true
	granted := true
	c.push(ServerEvent{Type: evtChatEnabled, Enabled: &granted})
	c.push(ServerEvent{Type: evtChatHistory, Messages: append([]Message(nil), s.messages...)})
	c.push(ServerEvent{Type: evtMediaList, Listings: s.catalog.Listings()})
	s.pushRoster()
	log.Info().Str("conn", c.id).Str("name", name).Msg("[session] admitted")
}

func (s *Session) chat(c *Client, text, media string) {
	if !s.admitted(c) {
		c.pushError("not allowed to chat")
		return
	}
	if text == "" && media == "" {
		return
	}
	s.appendMessage(Message{Author: c.name, Text: text, Media: media, SentAt: time.Now().UTC()})
	if media != "" {
		if dir, file, ok := s.catalog.ResolveRef(media); ok {
			s.pin(dir, file)
		}
	}
}

func (s *Session) selectMedia(c *Client, dir, file string) {
	if !s.admitted(c) {
		c.pushError("not allowed to share media")
		return
	}
	if dir == "" || file == "" {
		return
	}
	s.appendMessage(Message{Author: c.name, Media: s.catalog.RefFor(dir, file), SentAt: time.Now().UTC()})
	s.pin(dir, file)
}

func (s *Session) appendMessage(m Message) {
	s.messages = append(s.messages, m)
	s.broadcastAllowed(ServerEvent{Type: evtChatMessage, Message: &m})
}

// pin replaces the shared reference unconditionally and announces it.
func (s *Session) pin(dir, file string) {
	s.playingNow = &MediaFile{Dir: dir, File: file, Mode: ModeIdle}
	ev := *s.playingNow
	s.broadcastAllowed(ServerEvent{Type: evtPlayingNow, Media: &ev})
	log.Info().Str("dir", dir).Str("file", file).Msg("[session] media pinned")
}

func (s *Session) transport(c *Client, dir, file string, mode MediaMode) {
	if !s.admitted(c) {
		c.pushError("not allowed to control playback")
		return
	}
	if dir == "" || file == "" {
		return
	}
	if s.playingNow == nil {
		// Tolerated client race before anything is pinned.
		return
	}
	if dir != s.playingNow.Dir || file != s.playingNow.File {
		s.playingNow = &MediaFile{Dir: dir, File: file, Mode: mode}
		ev := *s.playingNow
		s.broadcastAllowed(ServerEvent{Type: evtPlayingNow, Media: &ev})
	} else {
		s.playingNow.Mode = mode
	}
	mirror := evtPlay
	if mode == ModePaused {
		mirror = evtPause
	}
	s.broadcastOthers(c, ServerEvent{Type: mirror, Media: &MediaFile{Dir: dir, File: file, Mode: mode}})
}

func (s *Session) seek(c *Client, dir, file string, timestamp float64) {
	if !s.admitted(c) {
		c.pushError("not allowed to control playback")
		return
	}
	if dir == "" || file == "" {
		return
	}
	if (seekMark{dir, file, timestamp}) == s.lastSeek {
		// A mirrored player echoing its own seek back.
		return
	}
	if s.playingNow == nil {
		return
	}
	if dir != s.playingNow.Dir || file != s.playingNow.File {
		s.playingNow = &MediaFile{Dir: dir, File: file, Mode: s.playingNow.Mode}
		ev := *s.playingNow
		s.broadcastAllowed(ServerEvent{Type: evtPlayingNow, Media: &ev})
	}
	s.broadcastOthers(c, ServerEvent{
		Type:      evtSeek,
		Media:     &MediaFile{Dir: dir, File: file, Mode: s.playingNow.Mode},
		Timestamp: timestamp,
	})
	s.lastSeek = seekMark{dir, file, timestamp}
}

func (s *Session) pushRoster() {
	roster := make([]UserInfo, 0, len(s.users))
	for _, id := range s.order {
		if u, ok := s.users[id]; ok && u.allowed {
			roster = append(roster, UserInfo{ID: u.id, Name: u.name})
		}
	}
	s.broadcastAllowed(ServerEvent{Type: evtUserList, Users: roster})
}

func (s *Session) broadcastAllowed(ev ServerEvent) {
	for _, id := range s.order {
		if u, ok := s.users[id]; ok && u.allowed {
			u.push(ev)
		}
	}
}

func (s *Session) broadcastOthers(c *Client, ev ServerEvent) {
	for _, id := range s.order {
		if id == c.id {
			continue
		}
		if u, ok := s.users[id]; ok && u.allowed {
			u.push(ev)
		}
	}
}
