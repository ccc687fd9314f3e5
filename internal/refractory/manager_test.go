package refractory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"onsetdetect/internal/config"
)

func TestUnseenSymbolIsNotBlocked(t *testing.T) {
	m := New(config.RefractoryConfig{DurationS: 45})
	require.False(t, m.IsBlocked("005930", 1000))
}

func TestConfirmOpensRefractoryWindow(t *testing.T) {
	m := New(config.RefractoryConfig{DurationS: 10})
	m.OnConfirm("005930", 1000)

	require.True(t, m.IsBlocked("005930", 1000))
	require.True(t, m.IsBlocked("005930", 10999))
	require.False(t, m.IsBlocked("005930", 11000))
}

func TestExtendOnConfirmReplacesWindow(t *testing.T) {
	m := New(config.RefractoryConfig{DurationS: 10, ExtendOnConfirm: config.BoolPtr(true)})
	m.OnConfirm("005930", 1000) // blocked until 11000
	m.OnConfirm("005930", 2000) // should replace, blocked until 12000

	require.True(t, m.IsBlocked("005930", 11500))
	until, ok := m.BlockedUntil("005930")
	require.True(t, ok)
	require.Equal(t, int64(12000), until)
}

func TestNoExtendKeepsLongerExistingWindow(t *testing.T) {
	m := New(config.RefractoryConfig{DurationS: 10, ExtendOnConfirm: config.BoolPtr(false)})
	m.OnConfirm("005930", 5000) // blocked until 15000
	m.OnConfirm("005930", 3000) // new window would end at 13000, shorter: existing wins

	until, _ := m.BlockedUntil("005930")
	require.Equal(t, int64(15000), until)
}

func TestSymbolsAreIndependent(t *testing.T) {
	m := New(config.RefractoryConfig{DurationS: 10})
	m.OnConfirm("005930", 1000)

	require.True(t, m.IsBlocked("005930", 1000))
	require.False(t, m.IsBlocked("000660", 1000))
}

func TestOnRejectReturnsCurrentBlockedUntil(t *testing.T) {
	m := New(config.RefractoryConfig{DurationS: 10})
	m.OnConfirm("005930", 1000)

	require.Equal(t, int64(11000), m.OnReject("005930"))
}
