package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kickoff/internal/config"
	"github.com/roach88/kickoff/internal/submission"
)

const studentPayload = `{
  "eventId": "evt-1",
  "eventType": "FORM_RESPONSE",
  "data": {
    "formName": "Student",
    "fields": [
      {"key": "question_name", "label": "Name", "type": "INPUT_TEXT", "value": "Ada"}
    ]
  }
}`

// isolateEnv blanks every variable config.Load reads so the developer's
// environment cannot leak into a test.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvBotToken, config.EnvAdminID, config.EnvChannelID, config.EnvWebhookSecret,
		config.EnvDatabase, config.EnvJournal, config.EnvListen, config.EnvRetention,
		config.EnvAdminToken,
	} {
		t.Setenv(key, "")
	}
}

// cliEnv is a scratch database, journal and config file.
type cliEnv struct {
	t       *testing.T
	dir     string
	db      string
	journal string
	config  string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	isolateEnv(t)

	dir := t.TempDir()
	env := &cliEnv{
		t:       t,
		dir:     dir,
		db:      filepath.Join(dir, "applications.db"),
		journal: filepath.Join(dir, "backups"),
		config:  filepath.Join(dir, "kickoff.yaml"),
	}
	require.NoError(t, os.WriteFile(env.config, []byte("bulk_delay: 0s\n"), 0644))
	return env
}

// run executes the root command against the env's paths.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	full := append([]string{"--config", e.config, "--db", e.db, "--journal", e.journal}, args...)
	out, _, err := execute(nil, full...)
	return out, err
}

// runJSON executes with --format json and decodes the data field.
func (e *cliEnv) runJSON(data any, args ...string) error {
	e.t.Helper()
	out, err := e.run(append([]string{"--format", "json"}, args...)...)
	if err != nil {
		return err
	}
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(e.t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(e.t, "ok", resp.Status)
	if data != nil {
		require.NoError(e.t, json.Unmarshal(resp.Data, data))
	}
	return nil
}

// ingest records payload and returns the new submission.
func (e *cliEnv) ingest(payload string) submission.Submission {
	e.t.Helper()
	path := filepath.Join(e.dir, "payload.json")
	require.NoError(e.t, os.WriteFile(path, []byte(payload), 0644))

	var sub submission.Submission
	require.NoError(e.t, e.runJSON(&sub, "ingest", path))
	return sub
}

// runCLI executes the root command in an isolated environment.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	isolateEnv(t)
	return execute(strings.NewReader(stdin), args...)
}

func execute(stdin *strings.Reader, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
