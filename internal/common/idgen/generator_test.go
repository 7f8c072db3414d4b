package idgen

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderIDIsHex(t *testing.T) {
	g := NewGenerator()
	id := g.OrderID()
	require.Len(t, id, 32)
	_, err := hex.DecodeString(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, g.ActionID())
}

func TestMissionIDCarriesPrefix(t *testing.T) {
	id := NewGenerator("mission").MissionID()
	require.True(t, strings.HasPrefix(id, "mission_"))
	_, err := uuid.Parse(strings.TrimPrefix(id, "mission_"))
	assert.NoError(t, err)

	_, err = uuid.Parse(MissionID())
	assert.NoError(t, err)
}
