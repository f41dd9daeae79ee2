package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from     StateKind
		to       StateKind
		expected bool
	}{
		{StateInitial, StateLoading, true},
		{StateInitial, StateNeedsDownload, true},
		{StateInitial, StateSuccess, false},
		{StateLoading, StateSuccess, true},
		{StateLoading, StateFailure, true},
		{StateLoading, StateDownloading, false},
		{StateNeedsDownload, StateDownloading, true},
		{StateNeedsDownload, StateSuccess, false},
		{StateDownloading, StateSuccess, true},
		{StateDownloading, StateFailure, true},
		{StateSuccess, StateLoading, false},
		{StateSuccess, StateInitial, true},
		{StateFailure, StateLoading, true},
		{StateFailure, StateNeedsDownload, true},
		{StateFailure, StateSuccess, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidateTransition(t *testing.T) {
	require.NoError(t, ValidateTransition(StateLoading, StateSuccess))

	err := ValidateTransition(StateSuccess, StateDownloading)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
	assert.Contains(t, err.Error(), "success -> downloading")
}

func TestViewOf(t *testing.T) {
	asset := DisplayableAsset{Name: "A", ImagePath: "/tmp/a.jpg"}

	view := ViewOf(Success{Asset: asset})
	assert.Equal(t, StateSuccess, view.State)
	require.NotNil(t, view.Asset)
	assert.Equal(t, "/tmp/a.jpg", view.Asset.ImagePath)

	view = ViewOf(Failure{Err: errors.New("network down")})
	assert.Equal(t, StateFailure, view.State)
	assert.Equal(t, "network down", view.Error)

	view = ViewOf(Failure{})
	assert.Equal(t, ErrFileMissing.Error(), view.Error)

	for _, s := range []ItemState{Initial{}, Loading{}, NeedsDownload{}, Downloading{}} {
		view = ViewOf(s)
		assert.Equal(t, s.Kind(), view.State)
		assert.Nil(t, view.Asset)
		assert.Empty(t, view.Error)
	}
}

func TestStateKind_IsTerminal(t *testing.T) {
	assert.True(t, StateSuccess.IsTerminal())
	assert.True(t, StateFailure.IsTerminal())
	assert.False(t, StateLoading.IsTerminal())
	assert.False(t, StateDownloading.IsTerminal())
}
