package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgate/backend/internal/shared/types"
)

func TestDescriptors(t *testing.T) {
	descs := Descriptors("browser-agent", 15*time.Second)
	require.Len(t, descs, 7)

	byName := map[string]types.ToolDescriptor{}
	for _, d := range descs {
		assert.Equal(t, types.ModeRemote, d.Mode)
		assert.Equal(t, "browser-agent", d.AgentID)
		assert.Nil(t, d.Handler)
		byName[d.Name] = d
	}

	nav, ok := byName["web_navigate"]
	require.True(t, ok)
	require.NotEmpty(t, nav.Parameters)
	assert.Equal(t, "url", nav.Parameters[0].Name)
	assert.True(t, nav.Parameters[0].Required)

	click, ok := byName["web_click"]
	require.True(t, ok)
	assert.Equal(t, "selector", click.Parameters[0].Name)

	_, ok = byName["web_get_viewport"]
	assert.True(t, ok)
}
