package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	serverFlags := []string{"-a", "-g", "-d", "-m", "-t", "-b", "-l"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{"separate values", []string{"-a", ":5000", "-c", "conf.json", "-m", "memory"}, serverFlags, []string{"-a", ":5000", "-m", "memory"}},
		{"joined values", []string{"-t=45", "-c=conf.json", "-l=debug"}, serverFlags, []string{"-t=45", "-l=debug"}},
		{"value that looks like a flag is not consumed", []string{"-d", "-b", "12"}, serverFlags, []string{"-d", "-b", "12"}},
		{"trailing flag without value", []string{"-m"}, serverFlags, []string{"-m"}},
		{"positional arguments dropped", []string{"serve", "-g", ":50051", "extra"}, serverFlags, []string{"-g", ":50051"}},
		{"repeated flag preserved in order", []string{"-l", "info", "-l", "warn"}, []string{"-l"}, []string{"-l", "info", "-l", "warn"}},
		{"nothing allowed", []string{"-a", ":1"}, nil, []string{}},
		{"empty args", []string{}, serverFlags, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short", []string{"-c", "/etc/accountkeeper.json"}, "/etc/accountkeeper.json"},
		{"long", []string{"-config", "cfg.json", "-a", ":5000"}, "cfg.json"},
		{"joined", []string{"-a", ":5000", "-config=cfg.json"}, "cfg.json"},
		{"last wins", []string{"-c", "one.json", "-config", "two.json"}, "two.json"},
		{"absent", []string{"-a", ":5000", "-m", "memory"}, ""},
		{"missing value", []string{"-c"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigPath(tt.args))
		})
	}
}

func TestJsonConfigFlags_ReadsProcessArgs(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"server", "-m", "memory", "-c", "local.json"}
	assert.Equal(t, "local.json", JsonConfigFlags())
}
