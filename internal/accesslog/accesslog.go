// Package accesslog extracts the fields of a web server access log line held
// in the "message" field of a JSON record and merges them back into the record.
package accesslog

import (
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/GabrielNunesIT/plugin-pipeline/internal/jsonvalue"
)

// MessageField is the record field holding the raw log line.
const MessageField = "message"

// TimeField is the capture re-encoded as Unix epoch seconds.
const TimeField = "time"

// TimeLayout is the layout of the bracketed timestamp, e.g. 10/Oct/2023:13:55:36 -0700.
// The day and hour may be written with a single digit.
const TimeLayout = "2/Jan/2006:15:04:05 -0700"

// RE2's \s and \S are ASCII only; these classes cover Unicode White_Space.
const (
	space    = `[\t\n\v\f\r\x{85}\p{Z}]`
	nonSpace = `[^\t\n\v\f\r\x{85}\p{Z}]`
)

// Pattern matches one line in the nginx/apache "combined" format. The request
// may carry zero, one or two tokens after the method; the protocol is dropped.
// The referer/agent tail and the forwarded-for token inside it are optional.
const Pattern = `^(?P<remote>[^ ]*) (?P<host>[^ ]*) (?P<user>[^ ]*) \[(?P<time>[^\]]*)\] ` +
	`"(?P<method>` + nonSpace + `+)(?: +(?P<path>[^"]*?)(?: +` + nonSpace + `*)?)?" ` +
	`(?P<code>[^ ]*) (?P<size>[^ ]*)` +
	`(?: "(?P<referer>[^"]*)" "(?P<agent>[^"]*)"(?:` + space + `+(?P<http_x_forwarded_for>[^ ]+))?)?$`

var lineRegexp = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(Pattern)
})

// Field is one named capture that took part in a match.
type Field struct {
	Name  string
	Value string
}

// Match applies the access log pattern to line. It returns the participating
// captures in pattern order, or nil when the line does not match.
func Match(line string) []Field {
	re := lineRegexp()
	loc := re.FindStringSubmatchIndex(line)
	if loc == nil {
		return nil
	}

	var fields []Field
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		start, end := loc[2*i], loc[2*i+1]
		if start < 0 {
			continue
		}
		fields = append(fields, Field{Name: name, Value: line[start:end]})
	}
	return fields
}

// NormalizeTime converts a timestamp in TimeLayout to decimal Unix seconds.
// It reports false when raw does not fit the layout.
func NormalizeTime(raw string) (string, bool) {
	ts, err := time.Parse(TimeLayout, raw)
	if err != nil {
		return "", false
	}
	return strconv.FormatInt(ts.Unix(), 10), true
}

// Extract parses input as a JSON record and, when its "message" field is an
// access log line, writes every captured field into the record.
//
// It returns the re-serialized record and true when fields were added. It
// returns false when there is nothing to do: the input is not an object, has
// no string message, or the message does not match. An error is returned only
// when input itself is not valid JSON; it wraps jsonvalue.ErrInvalidInput.
func Extract(input []byte) ([]byte, bool, error) {
	doc, err := jsonvalue.Parse(input)
	if err != nil {
		return nil, false, err
	}
	if doc.Kind != jsonvalue.KindObject {
		return nil, false, nil
	}

	msg, ok := doc.Object.Get(MessageField)
	if !ok || msg.Kind != jsonvalue.KindString {
		return nil, false, nil
	}

	fields := Match(msg.String)
	if len(fields) == 0 {
		return nil, false, nil
	}

	for _, f := range fields {
		val := f.Value
		if f.Name == TimeField {
			if epoch, ok := NormalizeTime(val); ok {
				val = epoch
			}
		}
		doc.Object.Set(f.Name, jsonvalue.String(val))
	}

	out, err := jsonvalue.Marshal(doc)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
