package projects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePorts(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    map[int]int
		wantErr bool
	}{
		{"none", nil, map[int]int{}, false},
		{"host and container", []string{"9090:8081"}, map[int]int{9090: 8081}, false},
		{"single port maps to itself", []string{"8081"}, map[int]int{8081: 8081}, false},
		{"several", []string{"80:8081", "8081"}, map[int]int{80: 8081, 8081: 8081}, false},
		{"not a number", []string{"http:8081"}, nil, true},
		{"out of range", []string{"70000:8081"}, nil, true},
		{"host port twice", []string{"80:8081", "80:9090"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePorts(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEnv(t *testing.T) {
	env, err := ParseEnv([]string{"DEBUG=1", "EMPTY=", "DSN=postgres://u:p@h/db?sslmode=disable"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"DEBUG": "1",
		"EMPTY": "",
		"DSN":   "postgres://u:p@h/db?sslmode=disable",
	}, env)

	_, err = ParseEnv([]string{"DEBUG"})
	assert.Error(t, err)
	_, err = ParseEnv([]string{"=1"})
	assert.Error(t, err)
}
