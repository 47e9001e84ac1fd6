package ping

import (
	"testing"

	"meetup-backend/test"

	"github.com/stretchr/testify/require"
)

func TestPing(t *testing.T) {
	(&ModulePing{}).Init()

	resp := test.DoRequest(t, Ping, nil)
	test.NoError(t, resp)
	require.Equal(t, map[string]any{"message": "pong", "version": version}, resp.Data)
}
