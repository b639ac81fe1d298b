package ingestor

import (
	"github.com/GabrielNunesIT/plugin-pipeline/internal/jsonvalue"
)

// journalFields maps journal fields to payload keys, in payload order.
var journalFields = []struct {
	journal string
	key     string
}{
	{"_SYSTEMD_UNIT", "unit"},
	{"_PID", "pid"},
	{"_UID", "uid"},
	{"_GID", "gid"},
	{"_COMM", "command"},
	{"_EXE", "executable"},
	{"_HOSTNAME", "hostname"},
	{"PRIORITY", "priority"},
	{"SYSLOG_FACILITY", "facility"},
	{"SYSLOG_IDENTIFIER", "identifier"},
}

// journalPayload renders a journal entry as a JSON object whose first member
// is "message", so units that look at the message field work unchanged.
func journalPayload(fields map[string]string) ([]byte, error) {
	obj := jsonvalue.NewObject()
	obj.Set("message", jsonvalue.String(fields["MESSAGE"]))
	for _, f := range journalFields {
		if v, ok := fields[f.journal]; ok {
			obj.Set(f.key, jsonvalue.String(v))
		}
	}
	return jsonvalue.Marshal(jsonvalue.ObjectValue(obj))
}
