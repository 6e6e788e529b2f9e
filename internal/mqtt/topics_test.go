package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopics(t *testing.T) {
	require.Equal(t, "intentgate/outcome/r1", TopicOutcome("intentgate", "r1"))
	require.Equal(t, "lab/gw/capabilities", TopicCapabilities("lab/gw"))
}
