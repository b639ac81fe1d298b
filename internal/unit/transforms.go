package unit

import (
	"slices"
	"strings"
	"unicode"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/accesslog"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/jsonvalue"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/msgpack"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/substitute"
	"github.com/GabrielNunesIT/plugin-pipeline/internal/transfer"
)

// Emojify replaces well-known words with emoji.
func Emojify(input []byte) transfer.Outcome {
	return transfer.Deliver(substitute.Substitute(input, substitute.Emoji()))
}

// JSONToMsgPack re-encodes a JSON document as MessagePack.
func JSONToMsgPack(input []byte) transfer.Outcome {
	out, err := msgpack.Convert(input)
	if err != nil {
		return transfer.Fail(err)
	}
	return transfer.Deliver(out)
}

// NginxParser expands the access log line in "message" into separate fields.
// Records it cannot improve are passed through; malformed JSON is an error.
func NginxParser(input []byte) transfer.Outcome {
	out, changed, err := accesslog.Extract(input)
	switch {
	case err != nil:
		return transfer.Fail(err)
	case !changed:
		return transfer.PassThrough()
	}
	return transfer.Deliver(out)
}

// AgentEmoji rewrites the "agent" field of a JSON record with the user-agent
// substitution table.
func AgentEmoji(input []byte) transfer.Outcome {
	return rewriteObject(input, func(obj *jsonvalue.Object) bool {
		agent, ok := obj.Get("agent")
		if !ok || agent.Kind != jsonvalue.KindString {
			return false
		}
		replaced := string(substitute.UserAgent().Apply([]byte(agent.String)))
		if replaced == agent.String {
			return false
		}
		obj.Set("agent", jsonvalue.String(replaced))
		return true
	})
}

// StatusEmoji adds a "status_emoji" field derived from the HTTP status class
// in the "code" field.
func StatusEmoji(input []byte) transfer.Outcome {
	return rewriteObject(input, func(obj *jsonvalue.Object) bool {
		code, ok := obj.Get("code")
		if !ok || code.Kind != jsonvalue.KindString {
			return false
		}
		n, ok := leadingInt(code.String)
		if !ok {
			return false
		}
		emoji := statusEmoji(n)
		if emoji == "" {
			return false
		}
		obj.Set("status_emoji", jsonvalue.String(emoji))
		return true
	})
}

func statusEmoji(code int) string {
	switch {
	case code >= 100 && code <= 199:
		return "\U0001F4AC\uFE0F"
	case code >= 200 && code <= 299:
		return "\U0001F642"
	case code >= 300 && code <= 399:
		return "\U0001F449"
	case code >= 400 && code <= 499:
		return "\U0001F641"
	case code >= 500 && code <= 599:
		return "\U0001F912"
	}
	return ""
}

// leadingInt reads the integer prefix of s the way parseInt does: leading
// white space, an optional sign, an optional 0x/0o/0b radix prefix, then every
// digit that follows. "200 OK" yields 200; a string with no digits yields false.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	base := 10
	if len(s) > 2 && s[0] == '0' {
		switch s[1] | 0x20 {
		case 'x':
			base = 16
		case 'o':
			base = 8
		case 'b':
			base = 2
		}
		if base != 10 {
			s = s[2:]
		}
	}

	n, digits := 0, 0
	for i := 0; i < len(s); i++ {
		d := digitValue(s[i])
		if d >= base {
			break
		}
		// Saturate; anything this large is outside every status class.
		if n < 1<<31 {
			n = n*base + d
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c|0x20 >= 'a' && c|0x20 <= 'z':
		return int(c|0x20-'a') + 10
	}
	return 36
}

// Reverse reverses the input by code point. Invalid UTF-8 sequences become
// U+FFFD.
func Reverse(input []byte) transfer.Outcome {
	runes := []rune(string(input))
	slices.Reverse(runes)
	return transfer.Deliver([]byte(string(runes)))
}

// rewriteObject parses input as a JSON object and lets edit modify it. The
// record is passed through when it is not an object or edit reports no change.
func rewriteObject(input []byte, edit func(*jsonvalue.Object) bool) transfer.Outcome {
	doc, err := jsonvalue.Parse(input)
	if err != nil {
		return transfer.Fail(err)
	}
	if doc.Kind != jsonvalue.KindObject || !edit(doc.Object) {
		return transfer.PassThrough()
	}

	out, err := jsonvalue.Marshal(doc)
	if err != nil {
		return transfer.Fail(err)
	}
	return transfer.Deliver(out)
}
