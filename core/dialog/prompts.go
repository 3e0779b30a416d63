package dialog

import (
	"fmt"
	"strings"
)

// SystemInstruction is sent with every prompt. It keeps the model replies
// suitable for being read out loud.
const SystemInstruction = "Your responses must be in simple, complete sentences. " +
	"Avoid using markdown formatting like lists, headings, or tables. " +
	"Describe ingredients and utensils in a spoken, conversational tone."

type PromptKind int

const (
	PromptRequirements PromptKind = iota
	PromptFullRecipe
	PromptAlternative
)

func (k PromptKind) String() string {
	switch k {
	case PromptRequirements:
		return "requirements"
	case PromptFullRecipe:
		return "full_recipe"
	case PromptAlternative:
		return "alternative"
	default:
		return fmt.Sprintf("PromptKind(%d)", int(k))
	}
}

const noRecipeYet = "Do not include a full recipe yet."

// BuildPrompt returns the user prompt for the given kind. unavailableItems
// is only used by PromptAlternative and is listed in the order given.
func BuildPrompt(kind PromptKind, dish string, unavailableItems []string) string {
	switch kind {
	case PromptRequirements:
		return fmt.Sprintf(
			"For %s, list the required ingredients, utensils, and the estimated cooking time. %s",
			dish, noRecipeYet)

	case PromptFullRecipe:
		return fmt.Sprintf(
			"Give me the full recipe for %s. Include a list of ingredients and a numbered list of steps.",
			dish)

	case PromptAlternative:
		return fmt.Sprintf(
			"I would like to cook %s but I don't have the following items: %s. "+
				"Suggest a new dish that I can cook with the ingredients and utensils I do have. "+
				"List the new dish's required ingredients, utensils, and time. %s",
			dish, strings.Join(unavailableItems, ", "), noRecipeYet)

	default:
		return ""
	}
}
