package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "evidence.json", "-a", ":8080"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-c", "evidence.json"},
		},
		{
			name:         "flag with equals",
			args:         []string{"-config=alt.json", "-k", "key"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{},
		},
		{
			name:         "flag without value at end",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "flag followed by another flag",
			args:         []string{"-a", "-d", "postgres://db"},
			allowedFlags: []string{"-a", "-d"},
			want:         []string{"-a", "-d", "postgres://db"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short flag", func(t *testing.T) {
		os.Args = []string{"server", "-a", ":9090", "-c", "a.json"}
		assert.Equal(t, "a.json", JsonConfigFlags())
	})

	t.Run("long flag with equals", func(t *testing.T) {
		os.Args = []string{"server", "-config=b.json"}
		assert.Equal(t, "b.json", JsonConfigFlags())
	})

	t.Run("environment fallback", func(t *testing.T) {
		os.Args = []string{"server"}
		t.Setenv(ConfigEnvName, "env.json")
		assert.Equal(t, "env.json", JsonConfigFlags())
	})

	t.Run("nothing set", func(t *testing.T) {
		os.Args = []string{"server"}
		t.Setenv(ConfigEnvName, "")
		assert.Equal(t, "", JsonConfigFlags())
	})
}
