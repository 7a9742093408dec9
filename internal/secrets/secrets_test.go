package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvProvider_PrefixedLookupWins(t *testing.T) {
	t.Setenv("TRADEAUDIT_FMP_API_KEY", "prefixed")
	t.Setenv("FMP_API_KEY", "bare")

	v, err := NewEnvProvider("TRADEAUDIT").Get(context.Background(), "FMP_API_KEY")

	require.NoError(t, err)
	assert.Equal(t, "prefixed", v)
}

func TestEnvProvider_FallsBackToBareName(t *testing.T) {
	t.Setenv("FMP_API_KEY", "bare")

	v, err := NewEnvProvider("TRADEAUDIT").Get(context.Background(), "FMP_API_KEY")

	require.NoError(t, err)
	assert.Equal(t, "bare", v)
}

func TestEnvProvider_NormalizesName(t *testing.T) {
	t.Setenv("FMP_API_KEY", "bare")

	v, err := NewEnvProvider("").Get(context.Background(), "fmp-api-key")

	require.NoError(t, err)
	assert.Equal(t, "bare", v)
}

func TestEnvProvider_MissingIsNotFound(t *testing.T) {
	_, err := NewEnvProvider("").Get(context.Background(), "DEFINITELY_NOT_SET_ANYWHERE_42")

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "****5678", Redact("sk-12345678"))
	assert.Equal(t, "****", Redact("abc"))
}
