package dialog

import "strings"

type Intent string

const (
	IntentNone          Intent = ""
	IntentDish          Intent = "dish"
	IntentConfirm       Intent = "confirm"
	IntentDecline       Intent = "decline"
	IntentMissingItem   Intent = "missing_item"
	IntentSomethingElse Intent = "something_else"
	IntentQuit          Intent = "quit"
	IntentUnknown       Intent = "unknown"
)

type intentRule struct {
	intent   Intent
	keywords []string
}

// Order matters, the first rule with a matching keyword wins. An utterance
// like "yes, no problem" therefore confirms.
var confirmationRules = []intentRule{
	{intent: IntentConfirm, keywords: []string{"yes", "cook it"}},
	{intent: IntentDecline, keywords: []string{"no"}},
}

var controlRules = []intentRule{
	{intent: IntentSomethingElse, keywords: []string{"something else", "new dish"}},
	{intent: IntentQuit, keywords: []string{"quit", "exit", "stop"}},
}

// Classify maps an utterance to an intent given the state the conversation
// is in. Matching is a case-insensitive substring search. Control intents
// are only recognised while awaiting confirmation and only when controls is
// set.
func Classify(state State, utterance string, controls bool) Intent {
	utterance = strings.ToLower(strings.TrimSpace(utterance))

	switch state {
	case StateAwaitingConfirmation:
		if intent := matchRules(confirmationRules, utterance); intent != IntentNone {
			return intent
		}
		if controls {
			if intent := matchRules(controlRules, utterance); intent != IntentNone {
				return intent
			}
		}
		return IntentUnknown

	case StateAwaitingMissingItems:
		if utterance == "" {
			return IntentNone
		}
		return IntentMissingItem

	default:
		if utterance == "" {
			return IntentNone
		}
		return IntentDish
	}
}

func matchRules(rules []intentRule, utterance string) Intent {
	if utterance == "" {
		return IntentNone
	}
	for _, rule := range rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(utterance, keyword) {
				return rule.intent
			}
		}
	}
	return IntentNone
}
