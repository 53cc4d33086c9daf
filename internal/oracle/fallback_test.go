package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"invox/internal/port"
	"invox/mocks"
)

func TestFallback_PrimarySucceeds(t *testing.T) {
	primary := new(mocks.MockOracle)
	secondary := new(mocks.MockOracle)
	primary.On("Complete", mock.Anything, mock.Anything).Return("answer", nil).Once()

	f := NewFallback([]port.Oracle{primary, secondary}, []string{"groq", "openai"})
	out, err := f.Complete(context.Background(), port.CompletionRequest{Prompt: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	secondary.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestFallback_FailsOverOnUnavailable(t *testing.T) {
	primary := new(mocks.MockOracle)
	secondary := new(mocks.MockOracle)
	primary.On("Complete", mock.Anything, mock.Anything).
		Return("", NewUnavailableError("groq", errors.New("429"), 60)).Once()
	secondary.On("Complete", mock.Anything, mock.Anything).Return("backup answer", nil).Twice()

	f := NewFallback([]port.Oracle{primary, secondary}, []string{"groq", "openai"})

	out, err := f.Complete(context.Background(), port.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "backup answer", out)

	// Primary's circuit is open now: the next call skips it entirely.
	out, err = f.Complete(context.Background(), port.CompletionRequest{Prompt: "again"})
	require.NoError(t, err)
	assert.Equal(t, "backup answer", out)
	primary.AssertNumberOfCalls(t, "Complete", 1)
}

func TestFallback_AllUnavailable(t *testing.T) {
	primary := new(mocks.MockOracle)
	secondary := new(mocks.MockOracle)
	primary.On("Complete", mock.Anything, mock.Anything).
		Return("", NewUnavailableError("groq", errors.New("down"), 30)).Once()
	secondary.On("Complete", mock.Anything, mock.Anything).
		Return("", NewUnavailableError("openai", errors.New("down"), 60)).Once()

	f := NewFallback([]port.Oracle{primary, secondary}, []string{"groq", "openai"})
	_, err := f.Complete(context.Background(), port.CompletionRequest{Prompt: "hi"})

	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestFallback_NonTransientErrorIsReturned(t *testing.T) {
	primary := new(mocks.MockOracle)
	secondary := new(mocks.MockOracle)
	primary.On("Complete", mock.Anything, mock.Anything).
		Return("", errors.New("invalid api key")).Once()
	secondary.On("Complete", mock.Anything, mock.Anything).
		Return("", errors.New("invalid api key")).Once()

	f := NewFallback([]port.Oracle{primary, secondary}, []string{"groq", "openai"})
	_, err := f.Complete(context.Background(), port.CompletionRequest{Prompt: "hi"})

	require.Error(t, err)
	assert.False(t, IsUnavailable(err))
	assert.Contains(t, err.Error(), "invalid api key")
}
