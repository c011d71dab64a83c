package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientFromConnectionString_Invalid(t *testing.T) {
	_, err := NewClientFromConnectionString("not a connection string", "configs", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store:")
}

func TestNewClientFromConnectionString_Valid(t *testing.T) {
	// Well-formed shared-key connection string; no network I/O happens
	// until the first request.
	cs := "DefaultEndpointsProtocol=https;AccountName=devaccount;" +
		"AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;" +
		"EndpointSuffix=core.windows.net"

	client, err := NewClientFromConnectionString(cs, "configs", nil)
	require.NoError(t, err)
	assert.NotNil(t, client)
}
