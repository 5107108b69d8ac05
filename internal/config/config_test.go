package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsZeroTimeout(t *testing.T) {
	c := Default()
	c.PacemakerInitialTimeout = 0
	require.Error(t, c.Validate())
}

func TestValidateRejectsUnknownProposerType(t *testing.T) {
	c := Default()
	c.ProposerType = "bogus"
	require.Error(t, c.Validate())
}
