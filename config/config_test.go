package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	c := DefaultConfig()
	is.Equal(c.GetInt(ConfigMaxPlies), 0)
	is.Equal(c.GetInt(ConfigSplitDepth), 4)
	is.True(c.GetInt(ConfigThreads) >= 1)
	is.True(c.GetBool(ConfigAlphaBeta))
	is.Equal(c.GetString(ConfigNatsChannel), "tilepairs.solve")
	is.Equal(c.GetDuration(ConfigSolveTimeout), time.Duration(0))
}

func TestLoadFlags(t *testing.T) {
	is := is.New(t)
	c := &Config{}
	rest, err := c.Load([]string{"--max-plies", "6", "--alpha-beta=false", "--solve-timeout", "3s", "solve", "-plies", "2"})
	is.NoErr(err)
	is.Equal(c.GetInt(ConfigMaxPlies), 6)
	is.True(!c.GetBool(ConfigAlphaBeta))
	is.Equal(c.GetDuration(ConfigSolveTimeout), 3*time.Second)
	is.Equal(rest, []string{"solve", "-plies", "2"})
}

func TestEnvOverrides(t *testing.T) {
	is := is.New(t)
	t.Setenv("TILEPAIRS_NATS_CHANNEL", "elsewhere")
	t.Setenv("TILEPAIRS_SPLIT_DEPTH", "7")
	c := &Config{}
	_, err := c.Load(nil)
	is.NoErr(err)
	is.Equal(c.GetString(ConfigNatsChannel), "elsewhere")
	is.Equal(c.GetInt(ConfigSplitDepth), 7)
}

func TestConfigFile(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "tilepairs.yaml")
	is.NoErr(os.WriteFile(path, []byte("threads: 3\nsolution-db-path: /tmp/x.db\n"), 0o644))
	c := &Config{}
	_, err := c.Load([]string{"--config-file", path})
	is.NoErr(err)
	is.Equal(c.GetInt(ConfigThreads), 3)
	is.Equal(c.GetString(ConfigSolutionDBPath), "/tmp/x.db")
}

func TestSanitizedSettings(t *testing.T) {
	is := is.New(t)
	c := &Config{}
	_, err := c.Load([]string{"--nats-url", "nats://user:pw@host:4222"})
	is.NoErr(err)
	is.Equal(c.SanitizedSettings()[ConfigNatsURL], "<redacted>")
}
