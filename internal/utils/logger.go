package utils

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// LogEvent writes one structured line tagged with module, action and request_id.
// Keep message a summary; never log passenger contact data.
func LogEvent(requestID, module, action, message string) {
	log.Info().
		Str("module", strings.ToUpper(module)).
		Str("action", action).
		Str("request_id", strings.TrimSpace(requestID)).
		Msg(message)
}
