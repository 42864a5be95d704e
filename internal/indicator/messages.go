package indicator

import "strings"

type messages struct {
	recording  string
	processing string
	noSpeech   string
	errorText  string
}

var english = messages{
	recording:  "Recording…",
	processing: "Transcribing…",
	noSpeech:   "No speech detected",
	errorText:  "Speech recognition error",
}

// messagesFor picks indicator text for a LANG value. Only English ships
// today; other locales fall back to it.
func messagesFor(lang string) messages {
	lang = strings.ToLower(strings.TrimSpace(lang))
	switch {
	case strings.HasPrefix(lang, "en"):
		return english
	default:
		return english
	}
}
