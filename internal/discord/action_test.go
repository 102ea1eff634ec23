// internal/discord/action_test.go
package discord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionCustomIDRoundTrip(t *testing.T) {
	cases := []Action{
		{Kind: ActionJoin, FarmID: "farm-1"},
		{Kind: ActionModM2, FarmID: "farm-1"},
		{Kind: ActionModM3, FarmID: "farm-1", Arg: "Bob"},
		{Kind: ActionConfirmEnd, FarmID: "abc-123"},
		{Kind: ActionAddModal, FarmID: "farm-9"},
	}
	for _, want := range cases {
		got, err := ParseAction(want.CustomID())
		require.NoError(t, err, "custom id %q", want.CustomID())
		assert.Equal(t, want, got)
	}
}

func TestParseActionArgSurvivesColons(t *testing.T) {
	// Player names may contain colons; everything past the second
	// separator belongs to the argument.
	a, err := ParseAction("mod_m2:farm-1:team:rocket")
	require.NoError(t, err)
	assert.Equal(t, "team:rocket", a.Arg)
}

func TestParseActionRejectsMalformedIDs(t *testing.T) {
	for _, raw := range []string{
		"",
		"join",
		"join:",
		":farm-1",
		"selfdestruct:farm-1",
	} {
		_, err := ParseAction(raw)
		assert.Error(t, err, "custom id %q should not parse", raw)
	}
}
