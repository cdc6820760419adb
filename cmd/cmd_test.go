package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/wialon/config"
	"github.com/s0up4200/wialon/wialon"
)

// fakeServer answers the calls the commands make and records their order
type fakeServer struct {
	*httptest.Server

	mu    sync.Mutex
	calls []string
}

func newFakeServer(t *testing.T, results map[string]string) *fakeServer {
	t.Helper()

	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		svc := r.Form.Get("svc")

		fs.mu.Lock()
		fs.calls = append(fs.calls, svc)
		fs.mu.Unlock()

		body, ok := results[svc]
		if !ok {
			body = `{"error":3}`
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(fs.Close)

	return fs
}

func (fs *fakeServer) services() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.calls...)
}

func (fs *fakeServer) wialonConfig(t *testing.T) config.WialonConfig {
	t.Helper()

	u, err := url.Parse(fs.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return config.WialonConfig{
		Scheme:     u.Scheme,
		Host:       u.Hostname(),
		Port:       port,
		HTTPMethod: "post",
	}
}

const loginResult = `{"eid":"sid-1","tm":1700000000,"user":{"id":42,"nm":"demo"}}`

func TestParseCallArgs(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantSvc    string
		wantParams string
		wantErr    bool
	}{
		{
			name:       "service name only",
			args:       []string{"core/search_item"},
			wantSvc:    "core/search_item",
			wantParams: `{}`,
		},
		{
			name:       "flat name with params",
			args:       []string{"core_search_item", `{"id":1,"flags":1}`},
			wantSvc:    "core/search_item",
			wantParams: `{"id":1,"flags":1}`,
		},
		{
			name:       "unit group special case",
			args:       []string{"unit_group_update_units", `{"itemId":5,"units":[]}`},
			wantSvc:    "unit_group/update_units",
			wantParams: `{"itemId":5,"units":[]}`,
		},
		{
			name:       "blank params",
			args:       []string{"core/logout", "  "},
			wantSvc:    "core/logout",
			wantParams: `{}`,
		},
		{
			name:    "invalid json",
			args:    []string{"core/search_item", `{id:1}`},
			wantErr: true,
		},
		{
			name:    "empty service",
			args:    []string{" "},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, params, err := parseCallArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSvc, svc)
			assert.JSONEq(t, tt.wantParams, string(params))
		})
	}
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", maskToken("abcd"))
	assert.Equal(t, "abcd****wxyz", maskToken("abcd1234wxyz"))
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, json.RawMessage(`{"a":[1,2]}`)))
	assert.Equal(t, "{\n  \"a\": [\n    1,\n    2\n  ]\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, printJSON(&buf, map[string]int{"n": 1}))
	assert.Equal(t, "{\n  \"n\": 1\n}\n", buf.String())
}

func TestNewClientFromConfig(t *testing.T) {
	c, err := newClient(config.WialonConfig{
		Scheme:      "http",
		Host:        "wialon.local",
		Port:        8022,
		Development: true,
		SessionID:   "sid-9",
		UserID:      31,
		HTTPMethod:  "get",
	}, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "http://wialon.local:8022/dev/wialon/ajax.html", c.BaseURL())
	assert.True(t, c.IsAuthenticated())
	assert.Equal(t, "sid-9", c.SessionID())
	assert.Equal(t, int64(31), c.UserID())

	// A user id without a session is meaningless
	c, err = newClient(config.WialonConfig{Scheme: "https", Host: "wialon.local", UserID: 31}, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, c.IsAuthenticated())
	assert.Zero(t, c.UserID())

	_, err = newClient(config.WialonConfig{Scheme: "ftp", Host: "x"}, zerolog.Nop())
	assert.ErrorIs(t, err, wialon.ErrInvalidConfig)
}

func TestResolveToken(t *testing.T) {
	t.Setenv(EnvKeyringPassword, "test-password")

	keyringCfg := config.KeyringConfig{
		Backend: "file",
		Service: "wialon-test",
		FileDir: t.TempDir(),
	}

	t.Cleanup(func() {
		tokenFlag = ""
		cfg = nil
	})

	cfg = &config.Config{Keyring: keyringCfg}
	tokenFlag = ""

	_, _, err := resolveToken()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no access token")

	require.NoError(t, saveToken(keyringCfg, "from-keyring"))
	token, source, err := resolveToken()
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", token)
	assert.Equal(t, "keyring", source)

	cfg.Wialon.Token = "from-config"
	token, source, err = resolveToken()
	require.NoError(t, err)
	assert.Equal(t, "from-config", token)
	assert.Equal(t, "config", source)

	tokenFlag = " from-flag "
	token, source, err = resolveToken()
	require.NoError(t, err)
	assert.Equal(t, "from-flag", token)
	assert.Equal(t, "flag", source)
}

func TestRepl(t *testing.T) {
	server := newFakeServer(t, map[string]string{
		"core/search_item": `{"item":{"id":1,"nm":"Truck"},"flags":1}`,
	})

	var err error
	wc := server.wialonConfig(t)
	wc.SessionID = "sid-1"
	client, err = newClient(wc, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { client = nil })

	in := strings.NewReader(strings.Join([]string{
		"",
		`core_search_item '{"id":1,"flags":1}'`,
		`core/search_item {broken`,
		`core/search_item '{"id":1}' extra`,
		`core/unknown`,
		`exit`,
		`core/search_item`,
	}, "\n"))
	var out bytes.Buffer

	require.NoError(t, repl(context.Background(), client, in, &out))

	output := out.String()
	assert.Contains(t, output, `"nm": "Truck"`)
	assert.Contains(t, output, "Invalid command: params for core/search_item are not valid JSON")
	assert.Contains(t, output, "Invalid command: expected <svc> [params-json]")
	assert.Contains(t, output, "Error (remote)")

	// Nothing after exit is sent
	assert.Equal(t, []string{"core/search_item", "core/unknown"}, server.services())
}

const unitsResult = `{"searchSpec":{},"dataFlags":1025,"totalItemsCount":2,"indexFrom":0,"indexTo":2,"items":[` +
	`{"id":1,"nm":"Fast truck","pos":{"t":1700000000,"y":53.9,"x":27.5,"s":90}},` +
	`{"id":2,"nm":"Parked van","pos":{"t":1700000000,"y":53.9,"x":27.5,"s":0}}]}`

func TestReplUnits(t *testing.T) {
	server := newFakeServer(t, map[string]string{
		"core/search_items": unitsResult,
	})

	var err error
	wc := server.wialonConfig(t)
	wc.SessionID = "sid-1"
	client, err = newClient(wc, zerolog.Nop())
	require.NoError(t, err)
	cfg = &config.Config{Filter: config.FilterConfig{"parked": "Speed == 0"}}
	t.Cleanup(func() {
		client = nil
		cfg = nil
	})

	in := strings.NewReader(strings.Join([]string{
		`units Speed > 5`,
		`units Speed > 5`,
		`units parked`,
		`units Speed >`,
		`units`,
	}, "\n"))
	var out bytes.Buffer

	require.NoError(t, repl(context.Background(), client, in, &out))

	output := out.String()
	assert.Equal(t, 3, strings.Count(output, "Found 1 units:"))
	assert.Contains(t, output, "Parked van")
	assert.Contains(t, output, "Found 2 units:")
	assert.Contains(t, output, "Invalid filter:")

	// The broken expression is rejected before any request
	assert.Len(t, server.services(), 4)

	// Repeated expressions come from the shared compiler cache
	first, err := unitFilters.Compile("(Speed > 5)")
	require.NoError(t, err)
	second, err := unitFilters.Compile("(Speed > 5)")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestReplStopsOnExpiredSession(t *testing.T) {
	server := newFakeServer(t, map[string]string{
		"core/search_item": `{"error":1}`,
	})

	var err error
	wc := server.wialonConfig(t)
	wc.SessionID = "sid-1"
	client, err = newClient(wc, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { client = nil })

	in := strings.NewReader("core/search_item\ncore/search_item\n")
	var out bytes.Buffer

	err = repl(context.Background(), client, in, &out)
	require.Error(t, err)
	assert.True(t, isSessionExpired(err))
	assert.False(t, client.IsAuthenticated())
	assert.Len(t, server.services(), 1)
}

func TestCallCommand(t *testing.T) {
	server := newFakeServer(t, map[string]string{
		"token/login":      loginResult,
		"core/search_item": `{"item":{"id":7,"nm":"Van"},"flags":1}`,
		"core/logout":      `{"error":0}`,
	})
	wc := server.wialonConfig(t)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`wialon:
  scheme: %s
  host: %s
  port: %d
logging:
  level: error
`, wc.Scheme, wc.Host, wc.Port)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", configPath, "--token", "secret", "call", "core_search_item", `{"id":7,"flags":1}`})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		tokenFlag = ""
		cfgFile = ""
		client = nil
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), `"nm": "Van"`)
	assert.Equal(t, []string{"token/login", "core/search_item", "core/logout"}, server.services())
}

func TestCallLogoutCommand(t *testing.T) {
	server := newFakeServer(t, map[string]string{
		"token/login": loginResult,
		"core/logout": `{"error":0}`,
	})
	wc := server.wialonConfig(t)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf(`wialon:
  scheme: %s
  host: %s
  port: %d
logging:
  level: error
`, wc.Scheme, wc.Host, wc.Port)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--config", configPath, "--token", "secret", "call", "core/logout"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		tokenFlag = ""
		cfgFile = ""
		client = nil
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	// The explicit logout closed the session, so none is sent on exit
	assert.Equal(t, []string{"token/login", "core/logout"}, server.services())
	assert.False(t, client.IsAuthenticated())
}
