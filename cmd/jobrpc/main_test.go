package main

import (
	"bytes"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/soffa-projects/jobrpc/test"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Setenv("ENV", "production")
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func portOf(t *testing.T, srv *test.FakeServer) string {
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return u.Port()
}

func TestRun_PrintsResult(t *testing.T) {
	assert := test.NewAssertions(t)
	srv := test.NewFakeServer(t).
		On(http.MethodPost, "/enqueue", test.JSON(202, `{"jobId":"j1"}`)).
		On(http.MethodGet, "/job/j1", test.JSON(200, `{"state":"SUCCEEDED","result_json":"{\"walls\":3}"}`))

	code, stdout, _ := runCLI(t, "--port", portOf(t, srv), "--command", "count_walls", "--params", `{"levelId":1}`)

	assert.Equals(code, exitOK)
	assert.MatchJson(stdout, `{"walls":3}`)
	assert.Contains(string(srv.Requests(http.MethodPost, "/enqueue")[0].Body), `"levelId":1`)
}

func TestRun_SavesToOutputFile(t *testing.T) {
	assert := test.NewAssertions(t)
	srv := test.NewFakeServer(t).On(http.MethodPost, "/enqueue", test.JSON(200, `{"ok":true,"pong":true}`))
	out := filepath.Join(t.TempDir(), "out", "result.json")

	code, stdout, _ := runCLI(t, "--port", portOf(t, srv), "--command", "ping", "--output-file", out)

	assert.Equals(code, exitOK)
	assert.MatchJson(stdout, `{"ok":true,"savedTo":"`+out+`"}`)
	content, err := os.ReadFile(out)
	assert.Nil(err)
	assert.MatchJson(string(content), `{"ok":true,"pong":true}`)
}

func TestRun_ForceAndTimeoutAreSent(t *testing.T) {
	assert := test.NewAssertions(t)
	srv := test.NewFakeServer(t).On(http.MethodPost, "/enqueue", test.JSON(200, `{"ok":true}`))

	code, _, _ := runCLI(t, "--port", portOf(t, srv), "--command", "ping", "--force", "--timeout-sec", "30")

	assert.Equals(code, exitOK)
	query := srv.Requests(http.MethodPost, "/enqueue")[0].Query
	assert.Equals(query["force"], []string{"1"})
	assert.Equals(query["timeout"], []string{"30"})
}

func TestRun_FailurePrintsEnvelope(t *testing.T) {
	assert := test.NewAssertions(t)
	srv := test.NewFakeServer(t).
		On(http.MethodPost, "/enqueue", test.JSON(202, `{"jobId":"j1"}`)).
		On(http.MethodGet, "/job/j1", test.JSON(200, `{"state":"FAILED","error_msg":"boom"}`))
	out := filepath.Join(t.TempDir(), "error.json")

	code, stdout, _ := runCLI(t, "--port", portOf(t, srv), "--command", "explode", "--output-file", out)

	assert.Equals(code, exitFailure)
	assert.MatchShape(stdout, `{
		"ok": false,
		"where": "poll",
		"kind": "job_fatal",
		"code": null,
		"httpStatus": null,
		"error": "[poll] boom",
		"payload": {"state": "FAILED", "error_msg": "boom"}
	}`)
	content, err := os.ReadFile(out)
	assert.Nil(err)
	assert.MatchJson(string(content), stdout)
}

func TestRun_ParamsFile(t *testing.T) {
	assert := test.NewAssertions(t)
	srv := test.NewFakeServer(t).On(http.MethodPost, "/enqueue", test.JSON(200, `{"ok":true}`))
	file := filepath.Join(t.TempDir(), "params.json")
	assert.Nil(os.WriteFile(file, []byte(`{"elementIds":7}`), 0o644))

	code, _, _ := runCLI(t, "--port", portOf(t, srv), "--command", "select", "--params-file", file)

	assert.Equals(code, exitOK)
	assert.Contains(string(srv.Requests(http.MethodPost, "/enqueue")[0].Body), `"elementIds":[7]`)
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no port", []string{"--command", "ping"}},
		{"port out of range", []string{"--port", "70000", "--command", "ping"}},
		{"no command", []string{"--port", "5210"}},
		{"bad params", []string{"--port", "5210", "--command", "ping", "--params", "{nope"}},
		{"params not an object", []string{"--port", "5210", "--command", "ping", "--params", "[1]"}},
		{"both params", []string{"--port", "5210", "--command", "ping", "--params", "{}", "--params-file", "p.json"}},
		{"missing params file", []string{"--port", "5210", "--command", "ping", "--params-file", "/nonexistent/p.json"}},
		{"unknown flag", []string{"--port", "5210", "--command", "ping", "--bogus"}},
		{"zero retries", []string{"--port", "5210", "--command", "ping", "--retries", "0"}},
		{"stray argument", []string{"--port", "5210", "--command", "ping", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := test.NewAssertions(t)
			code, stdout, stderr := runCLI(t, tt.args...)
			assert.Equals(code, exitUsage)
			assert.Equals(stdout, "")
			assert.NotEmpty(stderr)
		})
	}
}

func TestRun_Help(t *testing.T) {
	assert := test.NewAssertions(t)

	code, _, stderr := runCLI(t, "--help")
	assert.Equals(code, exitOK)
	assert.Contains(stderr, "Exit codes")
}
