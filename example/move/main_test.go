package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerinin/machinectl"
)

func TestRun_Errors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "tty.missing")
	defer func(p string) { *serialPort = p }(*serialPort)
	*serialPort = missing

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{name: "bad coordinate", args: []string{"10", "ten"}, wantMsg: `invalid coordinate "ten"`},
		{name: "port missing", args: []string{"10", "10"}, wantErr: machinectl.ErrConnection, wantMsg: missing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.args)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
