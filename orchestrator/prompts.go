package orchestrator

// PromptCategory groups guided prompts shown next to the recorder.
type PromptCategory struct {
	Name    string   `json:"name"`
	Prompts []string `json:"prompts"`
}

var prompts = []PromptCategory{
	{Name: "Daily Life", Prompts: []string{
		"Tell me about your day",
		"What did you have for lunch?",
		"How was your morning?",
		"What are your plans for tomorrow?",
	}},
	{Name: "Emotions", Prompts: []string{
		"What made you happy today?",
		"Tell me about something that frustrated you",
		"What are you worried about?",
		"What are you grateful for?",
	}},
	{Name: "Reflections", Prompts: []string{
		"What did you learn today?",
		"How are you feeling right now?",
		"What would you change about today?",
		"What are your goals?",
	}},
	{Name: "Quick Reactions", Prompts: []string{
		"Say your favorite food",
		"Name a movie you like",
		"What's your hobby?",
		"Describe your ideal vacation",
	}},
}

// Prompts returns a copy of the guided prompt catalogue.
func Prompts() []PromptCategory {
	out := make([]PromptCategory, len(prompts))
	for i, c := range prompts {
		out[i] = PromptCategory{Name: c.Name, Prompts: append([]string(nil), c.Prompts...)}
	}
	return out
}
