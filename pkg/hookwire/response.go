package hookwire

import (
	"encoding/json"
)

// ActionType discriminates the actions a webhook may return.
type ActionType string

const (
	ActionReply  ActionType = "reply"
	ActionReact  ActionType = "react"
	ActionThread ActionType = "thread"
)

// Action is one instruction from the webhook response. Which fields
// apply depends on Type:
//
//	reply:  Content, Mention
//	react:  Emoji
//	thread: Name, Content, AutoArchiveDuration
//
// Unrecognized types unmarshal cleanly and are skipped at execution
// time so webhook implementations can ship new action kinds ahead of
// the bridge.
type Action struct {
	Type ActionType `json:"type"`

	// Content is the text to post. For thread actions it is the
	// message posted inside the thread.
	Content string `json:"content,omitempty"`

	// Mention controls whether a reply notifies the original author.
	Mention bool `json:"mention,omitempty"`

	// Emoji is a unicode emoji or a custom emoji in name:id form.
	Emoji string `json:"emoji,omitempty"`

	// Name titles a new thread. Empty means derive one from the
	// source message content.
	Name string `json:"name,omitempty"`

	// AutoArchiveDuration is the thread auto-archive window in
	// minutes. Zero means the platform default.
	AutoArchiveDuration int `json:"auto_archive_duration,omitempty"`
}

// legacyThreadReply is the retired thread action shape that nested the
// thread text under a reply object.
type legacyThreadReply struct {
	Content string `json:"content"`
	Mention bool   `json:"mention"`
}

// UnmarshalJSON accepts both thread action shapes: the current one
// with content at the top level, and the older one nesting it under a
// reply object. The older shape is hoisted into Content and Mention.
func (a *Action) UnmarshalJSON(data []byte) error {
	type plain Action
	aux := struct {
		*plain
		Reply json.RawMessage `json:"reply,omitempty"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if a.Type == ActionThread && a.Content == "" && len(aux.Reply) > 0 && aux.Reply[0] == '{' {
		var legacy legacyThreadReply
		if err := json.Unmarshal(aux.Reply, &legacy); err == nil {
			a.Content = legacy.Content
			a.Mention = legacy.Mention
		}
	}
	return nil
}

// Response is the JSON body a webhook may return. A missing body, an
// empty object, or a null or empty actions array all mean no actions.
type Response struct {
	Actions []Action `json:"actions"`
}
