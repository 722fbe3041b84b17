package log

import "strings"

// logrusLevelMap maps the logrus level name `docker-machine` stamps on its
// own output to the severity machinery's own logger uses. §4.9
// and §7 describe this translation: info->INFO, warn->NOTICE,
// error->WARN, fatal->ERROR, panic->FATAL. Deliberately not a 1:1 map: a
// tool's "error" is rarely fatal to the enclosing step, so it is downgraded
// one notch, while its "fatal"/"panic" are upgraded since they mean the
// subprocess itself is dying.
var logrusLevelMap = map[string]string{
	"info":  "INFO",
	"warn":  "NOTICE",
	"error": "WARN",
	"fatal": "ERROR",
	"panic": "FATAL",
}

// CollapseLogrusLine recognizes a `docker-machine` logrus-formatted line
// (`time="..." level=info msg="..."`) and returns the extracted message and
// mapped level. ok is false when line doesn't look like a logrus record, in
// which case callers should log it verbatim at their default level.
func CollapseLogrusLine(line string) (msg string, level string, ok bool) {
	fields := splitLogrusFields(line)
	rawLevel, hasLevel := fields["level"]
	rawMsg, hasMsg := fields["msg"]
	if !hasLevel || !hasMsg {
		return "", "", false
	}

	mapped, known := logrusLevelMap[strings.ToLower(rawLevel)]
	if !known {
		mapped = strings.ToUpper(rawLevel)
	}
	return rawMsg, mapped, true
}

// splitLogrusFields parses `key=value` and `key="quoted value"` pairs out of
// a single logrus text-formatter line.
func splitLogrusFields(line string) map[string]string {
	fields := make(map[string]string)
	i := 0
	for i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		start := i
		for i < len(line) && line[i] != '=' {
			i++
		}
		if i >= len(line) {
			break
		}
		key := line[start:i]
		i++ // skip '='

		var value string
		if i < len(line) && line[i] == '"' {
			i++
			valStart := i
			for i < len(line) && line[i] != '"' {
				if line[i] == '\\' && i+1 < len(line) {
					i++
				}
				i++
			}
			value = line[valStart:i]
			if i < len(line) {
				i++ // skip closing quote
			}
		} else {
			valStart := i
			for i < len(line) && line[i] != ' ' {
				i++
			}
			value = line[valStart:i]
		}
		fields[key] = value
	}
	return fields
}

// EmitToolLine logs a single line of subprocess output through Logger,
// collapsing logrus-formatted lines from docker-machine per §4.9, and
// otherwise logging verbatim at debug level.
func EmitToolLine(tool, line string) {
	if tool == "docker-machine" {
		if msg, level, ok := CollapseLogrusLine(line); ok {
			emitAtLevel(level, msg)
			return
		}
	}
	Logger.Debug().Str("tool", tool).Msg(line)
}

func emitAtLevel(level, msg string) {
	switch level {
	case "NOTICE":
		Logger.Warn().Msg(msg)
	case "WARN":
		Logger.Warn().Msg(msg)
	case "ERROR":
		Logger.Error().Msg(msg)
	case "FATAL":
		Logger.Error().Msg(msg)
	default:
		Logger.Info().Msg(msg)
	}
}
