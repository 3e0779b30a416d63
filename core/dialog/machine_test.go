package dialog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	prompt            string
	systemInstruction string
}

type recordingGenerator struct {
	calls []call
	err   error
	reply string
}

func (g *recordingGenerator) Generate(_ context.Context, prompt string, systemInstruction string) (string, error) {
	g.calls = append(g.calls, call{prompt: prompt, systemInstruction: systemInstruction})
	if g.err != nil {
		return "", g.err
	}
	if g.reply != "" {
		return g.reply, nil
	}
	return fmt.Sprintf("model answer %d", len(g.calls)), nil
}

func transition(t *testing.T, m *Machine, session Session, utterance string) (Session, Turn) {
	t.Helper()
	next, turn, err := m.Transition(context.Background(), session, utterance)
	require.NoError(t, err)
	return next, turn
}

func TestInitialEmptyUtteranceAsksForDish(t *testing.T) {
	for _, utterance := range []string{"", "   ", "\n"} {
		gen := &recordingGenerator{}
		m := NewMachine(gen)

		next, turn := transition(t, m, NewSession(), utterance)

		assert.Equal(t, StateInitial, next.State)
		assert.Empty(t, next.CurrentDish)
		assert.Equal(t, ReplyAskDish, turn.Reply)
		assert.Empty(t, turn.Prompt)
		assert.Empty(t, gen.calls)
	}
}

func TestInitialDishRequestsRequirements(t *testing.T) {
	for _, dish := range []string{"pasta", "Chicken Curry", "a big bowl of ramen"} {
		t.Run(dish, func(t *testing.T) {
			gen := &recordingGenerator{reply: "  You will need noodles.  "}
			m := NewMachine(gen)

			next, turn := transition(t, m, NewSession(), dish)

			assert.Equal(t, StateAwaitingConfirmation, next.State)
			assert.Equal(t, dish, next.CurrentDish)
			require.Len(t, gen.calls, 1)
			assert.Contains(t, gen.calls[0].prompt, dish)
			assert.Contains(t, gen.calls[0].prompt, "Do not include a full recipe yet.")
			assert.Equal(t, SystemInstruction, gen.calls[0].systemInstruction)
			assert.Equal(t, gen.calls[0].prompt, turn.Prompt)
			assert.Equal(t,
				"Getting the requirements for "+dish+"... You will need noodles.\nDo you have everything you need to cook this dish?",
				turn.Reply)
		})
	}
}

func TestConfirmationFetchesFullRecipe(t *testing.T) {
	for _, utterance := range []string{"yes", "YES please", "ok, cook it", "Yes, no problem"} {
		t.Run(utterance, func(t *testing.T) {
			gen := &recordingGenerator{}
			m := NewMachine(gen)
			session := Session{
				State:            StateAwaitingConfirmation,
				CurrentDish:      "pasta",
				UnavailableItems: []string{"cheese"},
			}

			next, turn := transition(t, m, session, utterance)

			assert.Equal(t, StateInitial, next.State)
			assert.Empty(t, next.CurrentDish)
			assert.Empty(t, next.UnavailableItems)
			require.Len(t, gen.calls, 1)
			assert.Contains(t, gen.calls[0].prompt, "full recipe")
			assert.Contains(t, gen.calls[0].prompt, "numbered list of steps")
			assert.Contains(t, gen.calls[0].prompt, "pasta")
			assert.Equal(t, IntentConfirm, turn.Intent)
			assert.Contains(t, turn.Reply, "Great! Here is the full recipe for pasta.\n")
			assert.Contains(t, turn.Reply, "Enjoy your meal!")
		})
	}
}

func TestDeclineAsksForMissingItems(t *testing.T) {
	gen := &recordingGenerator{}
	m := NewMachine(gen)
	session := Session{State: StateAwaitingConfirmation, CurrentDish: "pasta"}

	next, turn := transition(t, m, session, "No, I don't")

	assert.Equal(t, StateAwaitingMissingItems, next.State)
	assert.Equal(t, "pasta", next.CurrentDish)
	assert.Equal(t, ReplyAskMissing, turn.Reply)
	assert.Empty(t, gen.calls)
}

func TestUnrecognisedConfirmationReasks(t *testing.T) {
	for _, utterance := range []string{"maybe", "", "what?", "something else", "quit"} {
		t.Run(utterance, func(t *testing.T) {
			gen := &recordingGenerator{}
			m := NewMachine(gen)
			session := Session{State: StateAwaitingConfirmation, CurrentDish: "pasta"}

			next, turn := transition(t, m, session, utterance)

			assert.Equal(t, session, next)
			assert.Equal(t, ReplyReask, turn.Reply)
			assert.False(t, turn.Ended)
			assert.Empty(t, gen.calls)
		})
	}
}

func TestMissingItemsAccumulateInOrder(t *testing.T) {
	gen := &recordingGenerator{}
	m := NewMachine(gen)
	session := Session{State: StateAwaitingConfirmation, CurrentDish: "pasta"}

	missing := []string{"cheese", "basil", "cheese"}
	for i, item := range missing {
		session, _ = transition(t, m, session, "no")
		require.Equal(t, StateAwaitingMissingItems, session.State)

		var turn Turn
		session, turn = transition(t, m, session, item)

		assert.Equal(t, StateAwaitingConfirmation, session.State)
		assert.Equal(t, missing[:i+1], session.UnavailableItems)
		assert.Contains(t, gen.calls[i].prompt, "following items: "+joinItems(missing[:i+1])+".")
		assert.Contains(t, gen.calls[i].prompt, "Do not include a full recipe yet.")
		assert.Contains(t, turn.Reply, "Okay, finding a new recipe without "+item+"... ")
		assert.Contains(t, turn.Reply, "\nDo you want to cook this new dish?")
	}
}

func TestEmptyMissingItemIsIgnored(t *testing.T) {
	gen := &recordingGenerator{}
	m := NewMachine(gen)
	session := Session{State: StateAwaitingMissingItems, CurrentDish: "pasta"}

	next, turn := transition(t, m, session, "  ")

	assert.Equal(t, session, next)
	assert.Equal(t, ReplyAskMissing, turn.Reply)
	assert.Empty(t, gen.calls)
}

func TestConversationWalkthrough(t *testing.T) {
	gen := &recordingGenerator{}
	m := NewMachine(gen)
	session, greeting := m.Start()
	require.Equal(t, ReplyWelcome, greeting.Reply)

	states := []State{session.State}
	var unavailableAtThirdCall []string
	for _, utterance := range []string{"pasta", "no", "cheese", "yes"} {
		before := session
		session, _ = transition(t, m, session, utterance)
		states = append(states, session.State)
		if len(gen.calls) == 3 && unavailableAtThirdCall == nil {
			unavailableAtThirdCall = append([]string{}, before.UnavailableItems...)
		}
	}

	assert.Equal(t, []State{
		StateInitial,
		StateAwaitingConfirmation,
		StateAwaitingMissingItems,
		StateAwaitingConfirmation,
		StateInitial,
	}, states)
	require.Len(t, gen.calls, 3)
	assert.Contains(t, gen.calls[1].prompt, "don't have the following items: cheese.")
	assert.Contains(t, gen.calls[2].prompt, "full recipe for pasta")
	assert.Equal(t, []string{"cheese"}, unavailableAtThirdCall)
	assert.Empty(t, session.CurrentDish)
}

func TestGenerationFailureKeepsSession(t *testing.T) {
	failure := errors.New("provider unavailable")
	tests := []struct {
		name      string
		session   Session
		utterance string
	}{
		{name: "requirements", session: NewSession(), utterance: "pasta"},
		{name: "full recipe", session: Session{State: StateAwaitingConfirmation, CurrentDish: "pasta"}, utterance: "yes"},
		{
			name:      "alternative",
			session:   Session{State: StateAwaitingMissingItems, CurrentDish: "pasta", UnavailableItems: []string{"eggs"}},
			utterance: "cheese",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &recordingGenerator{err: failure}
			m := NewMachine(gen)

			next, turn, err := m.Transition(context.Background(), tt.session, tt.utterance)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrGeneration)
			assert.ErrorIs(t, err, failure)
			assert.Equal(t, tt.session, next)
			assert.Len(t, gen.calls, 1)
			assert.Contains(t, turn.Reply, "An error occurred with the LLM API")
			assert.Contains(t, turn.Reply, "provider unavailable")
		})
	}
}

func TestMissingGeneratorFails(t *testing.T) {
	m := NewMachine(nil)

	next, _, err := m.Transition(context.Background(), NewSession(), "pasta")

	assert.ErrorIs(t, err, ErrNoGenerator)
	assert.Equal(t, NewSession(), next)
}

func TestTransitionDoesNotModifyInput(t *testing.T) {
	gen := &recordingGenerator{}
	m := NewMachine(gen)
	items := make([]string, 1, 8)
	items[0] = "eggs"
	session := Session{State: StateAwaitingMissingItems, CurrentDish: "pasta", UnavailableItems: items}

	next, _ := transition(t, m, session, "cheese")

	assert.Equal(t, []string{"eggs"}, session.UnavailableItems)
	assert.Empty(t, items[:2][1])
	assert.Equal(t, []string{"eggs", "cheese"}, next.UnavailableItems)
	next.UnavailableItems[0] = "flour"
	assert.Equal(t, "eggs", session.UnavailableItems[0])
}

func TestControlUtterances(t *testing.T) {
	t.Run("something else restarts", func(t *testing.T) {
		gen := &recordingGenerator{}
		m := NewMachine(gen, WithControlUtterances())
		session := Session{State: StateAwaitingConfirmation, CurrentDish: "pasta", UnavailableItems: []string{"cheese"}}

		for _, utterance := range []string{"something else", "a NEW DISH please"} {
			next, turn := transition(t, m, session, utterance)

			assert.Equal(t, NewSession().State, next.State)
			assert.Empty(t, next.CurrentDish)
			assert.Empty(t, next.UnavailableItems)
			assert.Equal(t, ReplyRestart, turn.Reply)
			assert.Empty(t, gen.calls)
		}
	})

	t.Run("quit ends the conversation", func(t *testing.T) {
		gen := &recordingGenerator{}
		m := NewMachine(gen, WithControlUtterances())
		session := Session{State: StateAwaitingConfirmation, CurrentDish: "pasta"}

		for _, utterance := range []string{"quit", "Exit", "please stop"} {
			next, turn := transition(t, m, session, utterance)

			assert.True(t, turn.Ended)
			assert.Equal(t, ReplyFarewell, turn.Reply)
			assert.Equal(t, session, next)
		}
		assert.Empty(t, gen.calls)
	})

	t.Run("yes and no still win", func(t *testing.T) {
		gen := &recordingGenerator{}
		m := NewMachine(gen, WithControlUtterances())
		session := Session{State: StateAwaitingConfirmation, CurrentDish: "pasta"}

		next, turn := transition(t, m, session, "no, let's quit")

		assert.Equal(t, IntentDecline, turn.Intent)
		assert.Equal(t, StateAwaitingMissingItems, next.State)
	})

	t.Run("reask mentions something else", func(t *testing.T) {
		m := NewMachine(&recordingGenerator{}, WithControlUtterances())
		session := Session{State: StateAwaitingConfirmation, CurrentDish: "pasta"}

		_, turn := transition(t, m, session, "hmm")

		assert.Equal(t, ReplyReaskControls, turn.Reply)
	})
}

func joinItems(items []string) string {
	joined := ""
	for i, item := range items {
		if i > 0 {
			joined += ", "
		}
		joined += item
	}
	return joined
}
