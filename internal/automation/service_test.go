package automation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vatm-cli/internal/mocks"
	"github.com/xkilldash9x/vatm-cli/internal/ocr"
	"github.com/xkilldash9x/vatm-cli/internal/paragon"
	"github.com/xkilldash9x/vatm-cli/internal/screen"
)

func newTestService(t *testing.T) (*Service, *mocks.MockVirtualMachine) {
	t.Helper()
	vm := new(mocks.MockVirtualMachine)
	t.Cleanup(func() { vm.AssertExpectations(t) })
	return NewService(vm, zap.NewNop()), vm
}

func TestService_ScreenWords(t *testing.T) {
	svc, vm := newTestService(t)
	vm.On("GetScreenText", mock.Anything).Return(mocks.Page("Please enter your PIN"), nil).Once()
	vm.On("GetScreenText", mock.Anything).Return(mocks.Page(""), nil).Once()
	vm.On("GetScreenText", mock.Anything).Return(nil, nil).Once()

	words, err := svc.ScreenWords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"please", "enter", "your", "pin"}, words)

	words, err = svc.ScreenWords(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, words, "a blank frame is an empty bag, not a missing one")
	assert.Empty(t, words)

	_, err = svc.ScreenWords(context.Background())
	assert.ErrorIs(t, err, paragon.ErrScreenUnavailable)
}

func TestService_MatchAny(t *testing.T) {
	svc, vm := newTestService(t)
	vm.On("GetScreenText", mock.Anything).Return(mocks.Page("Please enter your PIN"), nil)

	defs := []screen.Definition{
		{Name: "welcome", Phrases: []screen.Phrase{{Text: "welcome", MatchConfidence: 1}}},
		{Name: "pin", Phrases: []screen.Phrase{{Text: "enter your pin", MatchConfidence: 1}}},
	}
	d, ok, err := svc.MatchAny(context.Background(), defs)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pin", d.Name)

	ok, err = svc.MatchScreen(context.Background(), defs[0])
	require.NoError(t, err)
	assert.False(t, ok)

	broken := screen.Definition{Name: "broken", Phrases: []screen.Phrase{{Text: "welcome", MatchConfidence: 3}}}
	_, err = svc.MatchScreen(context.Background(), broken)
	assert.ErrorIs(t, err, screen.ErrInvalidInput)

	d, ok, err = svc.MatchAny(context.Background(), []screen.Definition{broken, defs[1]})
	require.NoError(t, err, "an unusable definition does not hide a later match")
	require.True(t, ok)
	assert.Equal(t, "pin", d.Name)
}

func TestService_FindAndClick(t *testing.T) {
	t.Run("clicks the midpoint of the best match", func(t *testing.T) {
		svc, vm := newTestService(t)
		vm.On("GetScreenText", mock.Anything).Return(mocks.Page("Would you like another transaction?", "Yes", "No"), nil)
		vm.On("ClickScreen", mock.Anything, ocr.Point{X: 50, Y: 50}, false).Return(nil).Once()

		ok, err := svc.FindAndClick(context.Background(), "No", 0)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("no match means no click", func(t *testing.T) {
		svc, vm := newTestService(t)
		vm.On("GetScreenText", mock.Anything).Return(mocks.Page("Welcome"), nil)

		ok, err := svc.FindAndClick(context.Background(), "Cancel", 0)
		require.NoError(t, err)
		assert.False(t, ok)
		vm.AssertNotCalled(t, "ClickScreen", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("click failure is reported", func(t *testing.T) {
		svc, vm := newTestService(t)
		vm.On("GetScreenText", mock.Anything).Return(mocks.Page("Cancel"), nil)
		vm.On("ClickScreen", mock.Anything, mock.Anything, false).Return(errors.New("vm offline"))

		ok, err := svc.FindAndClick(context.Background(), "Cancel", 0)
		assert.False(t, ok)
		assert.ErrorContains(t, err, "vm offline")
	})

	t.Run("blank screen means no click", func(t *testing.T) {
		svc, vm := newTestService(t)
		vm.On("GetScreenText", mock.Anything).Return(mocks.Page("", ""), nil)

		ok, err := svc.FindAndClick(context.Background(), "Cancel", 2)
		require.NoError(t, err)
		assert.False(t, ok)
		vm.AssertNotCalled(t, "ClickScreen", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unreadable screen is passed through", func(t *testing.T) {
		svc, vm := newTestService(t)
		vm.On("GetScreenText", mock.Anything).Return(nil, paragon.ErrScreenUnavailable)

		_, err := svc.FindAndClick(context.Background(), "Cancel", 0)
		assert.ErrorIs(t, err, paragon.ErrScreenUnavailable)
	})
}

func TestService_FindAndClickAny(t *testing.T) {
	t.Run("clicks the first candidate found", func(t *testing.T) {
		svc, vm := newTestService(t)
		vm.On("GetLocationByText", mock.Anything, "No").Return(paragon.Location{}, nil).Once()
		vm.On("GetLocationByText", mock.Anything, "Exit").Return(paragon.Location{Found: true, Point: ocr.Point{X: 7, Y: 9}}, nil).Once()
		vm.On("ClickScreen", mock.Anything, ocr.Point{X: 7, Y: 9}, false).Return(nil).Once()

		ok, err := svc.FindAndClickAny(context.Background(), "No", "Exit", "Return card")
		require.NoError(t, err)
		assert.True(t, ok)
		vm.AssertNotCalled(t, "GetLocationByText", mock.Anything, "Return card")
	})

	t.Run("nothing found", func(t *testing.T) {
		svc, vm := newTestService(t)
		vm.On("GetLocationByText", mock.Anything, mock.Anything).Return(paragon.Location{}, nil)

		ok, err := svc.FindAndClickAny(context.Background(), "No", "Exit")
		require.NoError(t, err)
		assert.False(t, ok)
	})
	t.Run("moves past a candidate that fails", func(t *testing.T) {
		svc, vm := newTestService(t)
		vm.On("GetLocationByText", mock.Anything, "No").Return(paragon.Location{Found: true, Point: ocr.Point{X: 1, Y: 2}}, nil).Once()
		vm.On("ClickScreen", mock.Anything, ocr.Point{X: 1, Y: 2}, false).Return(errors.New("click rejected")).Once()
		vm.On("GetLocationByText", mock.Anything, "Exit").Return(paragon.Location{}, errors.New("ocr timeout")).Once()
		vm.On("GetLocationByText", mock.Anything, "Return card").Return(paragon.Location{Found: true, Point: ocr.Point{X: 3, Y: 4}}, nil).Once()
		vm.On("ClickScreen", mock.Anything, ocr.Point{X: 3, Y: 4}, false).Return(nil).Once()

		ok, err := svc.FindAndClickAny(context.Background(), "No", "Exit", "Return card")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("every candidate failing is reported", func(t *testing.T) {
		svc, vm := newTestService(t)
		vm.On("GetLocationByText", mock.Anything, "No").Return(paragon.Location{}, errors.New("ocr timeout")).Once()
		vm.On("GetLocationByText", mock.Anything, "Exit").Return(paragon.Location{}, nil).Once()

		ok, err := svc.FindAndClickAny(context.Background(), "No", "Exit")
		assert.False(t, ok)
		assert.ErrorContains(t, err, `locate "No": ocr timeout`)
	})
}
