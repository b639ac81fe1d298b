package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestUnitsCmd(t *testing.T) {
	out, _, err := execute(t, "", "units")
	require.NoError(t, err)
	assert.Equal(t, "agent-emoji\nemojify\njson2msgpack\nnginx-parser\nreverse\nstatus-emoji\n", out)
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "plugin-pipeline dev\n", out)
}

func TestExecCmd(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		stdin    string
		wantOut  string
		wantErr  string
		wantCode int
	}{
		{
			name:    "reverse",
			args:    []string{"exec", "reverse"},
			stdin:   "abc",
			wantOut: "cba",
		},
		{
			name:    "pass-through keeps input",
			args:    []string{"exec", "nginx-parser"},
			stdin:   `{"message":"hello"}`,
			wantOut: `{"message":"hello"}`,
		},
		{
			name:     "malformed json",
			args:     []string{"exec", "json2msgpack"},
			stdin:    "{",
			wantErr:  "invalid input",
			wantCode: 1,
		},
		{
			name:     "unknown unit",
			args:     []string{"exec", "nope"},
			wantCode: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut, err := execute(t, tt.stdin, tt.args...)
			assert.Equal(t, tt.wantCode, ExitCode(err))
			assert.Equal(t, tt.wantOut, out)
			if tt.wantErr != "" {
				assert.Contains(t, errOut, tt.wantErr)
			}
		})
	}
}

func TestExecCmd_InputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`null`), 0o644))

	out, _, err := execute(t, "", "exec", "json2msgpack", "--input", path)
	require.NoError(t, err)
	assert.Equal(t, "\xc0", out)
}

func TestValidateCmd(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	require.NoError(t, os.WriteFile(valid, []byte(`
ingestors:
  stdin:
    enabled: true
    processor:
      stages: [nginx-parser, status-emoji]
`), 0o644))

	out, _, err := execute(t, "", "validate", "--config", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "Ingestors: 1 enabled")
	assert.Contains(t, out, "stdin: nginx-parser -> status-emoji -> enricher")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte(`
ingestors:
  stdin:
    enabled: true
    processor:
      stages: [does-not-exist]
`), 0o644))

	_, _, err = execute(t, "", "validate", "--config", invalid)
	assert.ErrorContains(t, err, `unknown stage "does-not-exist"`)
}

func TestValidateCmd_Syslog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syslog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ingestors:
  syslog:
    enabled: true
    protocol: tcp
    address: "127.0.0.1:5514"
`), 0o644))

	out, _, err := execute(t, "", "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Ingestors: 1 enabled")
	assert.Contains(t, out, "syslog: nginx-parser -> agent-emoji -> status-emoji -> enricher")

	require.NoError(t, os.WriteFile(path, []byte(`
ingestors:
  syslog:
    enabled: true
    protocol: sctp
`), 0o644))
	_, _, err = execute(t, "", "validate", "--config", path)
	assert.ErrorContains(t, err, `syslog protocol "sctp"`)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(&ExitError{Code: 2}))
	assert.Equal(t, 1, ExitCode(assert.AnError))
}

func TestResolveLevel(t *testing.T) {
	assert.Equal(t, "debug", resolveLevel("debug", "info"))
	assert.Equal(t, "warn", resolveLevel("", "warn"))
}
