// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseClass(t *testing.T) {
	tests := []struct {
		in      string
		want    Class
		wantErr bool
	}{
		{in: "desktop", want: Desktop},
		{in: "client", want: Desktop},
		{in: " Server ", want: Server},
		{in: "unsupported", want: Unsupported},
		{in: "", want: Unknown},
		{in: "auto", want: Unknown},
		{in: "laptop", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClass(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClass_StringAndSupported(t *testing.T) {
	assert.Equal(t, "desktop", Desktop.String())
	assert.Equal(t, "server", Server.String())
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "unsupported", Unsupported.String())

	assert.True(t, Desktop.Supported())
	assert.True(t, Server.Supported())
	assert.False(t, Unknown.Supported())
	assert.False(t, Unsupported.Supported())
}

func TestClass_YAML(t *testing.T) {
	var v struct {
		Class Class `yaml:"class"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("class: server"), &v))
	assert.Equal(t, Server, v.Class)

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "class: server\n", string(out))

	assert.Error(t, yaml.Unmarshal([]byte("class: tablet"), &v))
}
