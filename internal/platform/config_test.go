package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindConfig(t *testing.T) {
	// baseDir/
	//   repo/ (thoughts.yaml)
	//     subdir/
	//       nested/
	//   empty/
	baseDir := t.TempDir()
	repoDir := filepath.Join(baseDir, "repo")
	subDir := filepath.Join(repoDir, "subdir")
	nestedDir := filepath.Join(subDir, "nested")
	emptyDir := filepath.Join(baseDir, "empty")

	require.NoError(t, os.MkdirAll(nestedDir, 0755))
	require.NoError(t, os.MkdirAll(emptyDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, ConfigFileName), []byte("adapter: memory\n"), 0644))

	tests := []struct {
		name      string
		startPath string
		want      string
		wantErr   bool
	}{
		{name: "Start at Root", startPath: repoDir, want: filepath.Join(repoDir, ConfigFileName)},
		{name: "Start in Subdir", startPath: subDir, want: filepath.Join(repoDir, ConfigFileName)},
		{name: "Start Nested Deeply", startPath: nestedDir, want: filepath.Join(repoDir, ConfigFileName)},
		{name: "No Config Found", startPath: emptyDir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindConfig(tt.startPath)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfigNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Clean(tt.want), filepath.Clean(got))
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `adapter: remote
uri: http://localhost:8080
collection: ideas
strategy: pull
strict: true
watch: true
server_timestamps: false
probe_interval: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "remote", cfg.Adapter)
	assert.Equal(t, "http://localhost:8080", cfg.URI)
	assert.Equal(t, "ideas", cfg.Collection)
	assert.Equal(t, "pull", cfg.Strategy)
	assert.True(t, cfg.Strict)
	assert.True(t, cfg.Watch)
	require.NotNil(t, cfg.ServerTimestamps)
	assert.False(t, *cfg.ServerTimestamps)
	assert.Equal(t, 2*time.Second, cfg.ProbeInterval)

	opts, err := cfg.Options()
	require.NoError(t, err)
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	assert.Equal(t, AdapterRemote, o.adapter)
	assert.Equal(t, "ideas", o.collection)
	assert.True(t, o.strict)
	assert.True(t, o.watchConnectivity)
	assert.False(t, o.serverTimestamps)
	assert.Equal(t, 2*time.Second, o.probeInterval)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("adapter: [unclosed"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	_, err = FileConfig{Strategy: "sideways"}.Options()
	assert.Error(t, err)
}

func TestFileConfig_ApplyEnv(t *testing.T) {
	env := map[string]string{
		"THOUGHTS_ADAPTER":           "memory",
		"THOUGHTS_COLLECTION":        "journal",
		"THOUGHTS_STRICT":            "true",
		"THOUGHTS_SERVER_TIMESTAMPS": "false",
		"THOUGHTS_PROBE_INTERVAL":    "250ms",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := FileConfig{Adapter: "fs", URI: "./notes"}
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "memory", cfg.Adapter)
	assert.Equal(t, "./notes", cfg.URI, "unset variables keep the file value")
	assert.Equal(t, "journal", cfg.Collection)
	assert.True(t, cfg.Strict)
	require.NotNil(t, cfg.ServerTimestamps)
	assert.False(t, *cfg.ServerTimestamps)
	assert.Equal(t, 250*time.Millisecond, cfg.ProbeInterval)

	env["THOUGHTS_WATCH"] = "maybe"
	assert.Error(t, cfg.ApplyEnv(lookup))
}
