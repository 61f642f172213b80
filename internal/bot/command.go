// Package bot classifies inbound chat messages and dispatches them to the
// media pipeline, the confirmation tracker, the birthday list or restart.
package bot

import (
	"strings"

	"github.com/byAyes/wbot/internal/core/confirm"
	"github.com/byAyes/wbot/internal/core/media"
)

// Command is what an inbound message asks for
type Command string

const (
	CmdNone         Command = ""
	CmdVideo        Command = "video"
	CmdAudio        Command = "audio"
	CmdMusic        Command = "music"
	CmdSearch       Command = "search"
	CmdReply        Command = "reply"
	CmdBirthdaySet  Command = "birthday_set"
	CmdBirthdayList Command = "birthday_list"
	CmdReset        Command = "reset"
)

var aliases = map[string]Command{
	".p":          CmdVideo,
	".play":       CmdVideo,
	".d":          CmdVideo,
	".descargar":  CmdVideo,
	".a":          CmdAudio,
	".audio":      CmdAudio,
	".spotify":    CmdMusic,
	".s":          CmdMusic,
	".sp":         CmdMusic,
	".yt":         CmdSearch,
	".bd":         CmdBirthdaySet,
	".cumpleaños": CmdBirthdayList,
	".cumpleanos": CmdBirthdayList,
	".reset":      CmdReset,
}

// takesNoArgs lists commands that only match when sent alone
var takesNoArgs = map[Command]bool{
	CmdBirthdayList: true,
	CmdReset:        true,
}

// Classify matches the first token of text, case-insensitively, and returns
// the rest as arguments. Bare confirmation words are replies.
func Classify(text string) (Command, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return CmdNone, ""
	}

	if confirm.ParseReply(text) != confirm.ReplyNone {
		return CmdReply, ""
	}

	fields := strings.Fields(text)
	cmd, ok := aliases[strings.ToLower(fields[0])]
	if !ok {
		return CmdNone, ""
	}
	rest := strings.Join(fields[1:], " ")
	if takesNoArgs[cmd] && rest != "" {
		return CmdNone, ""
	}
	return cmd, rest
}

// Kind is the media kind a fetch command asks for
func (c Command) Kind() media.Kind {
	switch c {
	case CmdAudio, CmdMusic:
		return media.KindAudio
	case CmdVideo:
		return media.KindVideo
	}
	return media.KindUnspecified
}
