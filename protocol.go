package main

import "time"

// Client-to-server message types.
const (
	msgSetUsername = "setUsername"
	msgChatMessage = "chatMessage"
	msgSelectMedia = "selectMedia"
	msgPlayMedia   = "playMedia"
	msgPauseMedia  = "pauseMedia"
	msgSeekMedia   = "seekMedia"
)

// Server-to-client event types.
const (
	evtChatEnabled = "chatEnabled"
	evtError       = "error"
	evtChatHistory = "chatHistory"
	evtUserList    = "userList"
	evtMediaList   = "mediaList"
	evtChatMessage = "chatMessage"
	evtPlayingNow  = "playingNow"
	evtPlay        = "playingNowPlay"
	evtPause       = "playingNowPause"
	evtSeek        = "playingNowSeek"
)

// MediaMode is the playback mode of the pinned media item.
type MediaMode string

const (
	ModeIdle    MediaMode = "idle"
	ModePlaying MediaMode = "playing"
	ModePaused  MediaMode = "paused"
)

// MediaFile identifies one playable item inside a configured media
// directory, together with its playback mode.
type MediaFile struct {
	Dir  string    `json:"dir"`
	File string    `json:"file"`
	Mode MediaMode `json:"mode,omitempty"`
}

// Message is one chat history entry. Either Text or Media is populated;
// SentAt is always assigned by the server at receipt.
type Message struct {
	Author string    `json:"username"`
	Text   string    `json:"text,omitempty"`
	Media  string    `json:"media,omitempty"`
	SentAt time.Time `json:"timestamp"`
}

// UserInfo is the roster entry exposed to clients. Unadmitted
// connections never appear here.
type UserInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DirListing is the media catalog entry for one configured directory.
type DirListing struct {
	Dir   string   `json:"dir"`
	Files []string `json:"files"`
}

// ClientMessage is the envelope received from websocket clients.
// Fields beyond Type are interpreted per message type; missing required
// fields cause the command to be discarded at the boundary.
type ClientMessage struct {
	Type      string  `json:"type"`
	Name      string  `json:"name,omitempty"`
	Text      string  `json:"text,omitempty"`
	Media     string  `json:"media,omitempty"`
	Dir       string  `json:"dir,omitempty"`
	File      string  `json:"file,omitempty"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

// ServerEvent is pushed to clients for any session update.
type ServerEvent struct {
	Type      string       `json:"type"`
	Enabled   *bool        `json:"enabled,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Messages  []Message    `json:"messages,omitempty"`
	Users     []UserInfo   `json:"users,omitempty"`
	Listings  []DirListing `json:"listings,omitempty"`
	Message   *Message     `json:"message,omitempty"`
	Media     *MediaFile   `json:"media,omitempty"`
	Timestamp float64      `json:"timestamp,omitempty"`
}
