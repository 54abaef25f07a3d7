package checklist

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	for _, in := range []string{"Critical", "critical", " CRITICAL "} {
		s, err := ParseSeverity(in)
		require.NoError(t, err)
		assert.Equal(t, SeverityCritical, s)
	}
	s, err := ParseSeverity("low")
	require.NoError(t, err)
	assert.Equal(t, SeverityLow, s)

	_, err = ParseSeverity("info")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCatalog))
}

func TestSeverity_Ordering(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityHigh.AtLeast(SeverityHigh))
	assert.False(t, SeverityLow.AtLeast(SeverityMedium))
	assert.Equal(t, []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}, Severities())
}

func TestSeverity_Text(t *testing.T) {
	b, err := SeverityMedium.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Medium", string(b))

	var s Severity
	require.NoError(t, s.UnmarshalText([]byte("high")))
	assert.Equal(t, SeverityHigh, s)

	_, err = Severity(9).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "Unknown", Severity(-1).String())
}
