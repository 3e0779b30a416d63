package dialog

import (
	"fmt"
	"strings"
)

const (
	ReplyWelcome       = "Hello! Welcome to your voice-activated cookbook. What would you like to cook today?"
	ReplyAskDish       = "Please tell me what you would like to cook."
	ReplyAskMissing    = "Please tell me what you are missing."
	ReplyReask         = "Sorry, I didn't understand. Do you have all the ingredients? (yes/no)"
	ReplyReaskControls = "Sorry, I didn't understand. Do you have all the ingredients? (yes/no/something else)"
	ReplyRestart       = "Alright, let's find something new. What would you like to cook today?"
	ReplyFarewell      = "Goodbye!"
)

// Compose wraps the model text in the lead-in and trailer that belong to
// kind. subject is the dish for requirements and full recipes, and the
// latest missing item for alternatives. The model text is only trimmed.
func Compose(kind PromptKind, subject string, modelText string) string {
	modelText = strings.TrimSpace(modelText)

	switch kind {
	case PromptRequirements:
		return fmt.Sprintf("Getting the requirements for %s... %s\nDo you have everything you need to cook this dish?",
			subject, modelText)
	case PromptFullRecipe:
		return fmt.Sprintf("Great! Here is the full recipe for %s.\n%s\nEnjoy your meal! Let me know if you want to cook something else.",
			subject, modelText)
	case PromptAlternative:
		return fmt.Sprintf("Okay, finding a new recipe without %s... %s\nDo you want to cook this new dish?",
			subject, modelText)
	default:
		return modelText
	}
}

// ComposeError is the reply shown when the language model could not be
// reached.
func ComposeError(err error) string {
	return fmt.Sprintf("An error occurred with the LLM API: %v", err)
}
