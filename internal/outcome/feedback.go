package outcome

// Feedback is what the learner sees after an attempt.
type Feedback struct {
	Headline           string `json:"headline"`
	RequiresReflection bool   `json:"requires_reflection"`
	ReflectionPrompt   string `json:"reflection_prompt,omitempty"`
}

var headlines = map[Category]string{
	Timeout:      "Out of time",
	UpsetLoss:    "Missed one you usually get",
	ExpectedLoss: "A tough one",
	LuckyWin:     "Correct, but guessed",
	SlowWin:      "Correct, but over time",
	CleanWin:     "Clean solve",
}

var prompts = map[Category]string{
	Timeout:      "Where did the time go? Name the step that stalled you.",
	UpsetLoss:    "This was within your range. What tripped you up?",
	ExpectedLoss: "What would you need to know to solve this next time?",
	LuckyWin:     "Which choices could you eliminate, and which did you guess between?",
	SlowWin:      "Which step could you have done faster?",
}

// feedbackFor attaches a reflection requirement to every category except a
// clean win.
func feedbackFor(c Category, upset bool) Feedback {
	fb := Feedback{Headline: headlines[c]}
	if upset {
		fb.Headline += " (upset!)"
	}
	if c != CleanWin {
		fb.RequiresReflection = true
		fb.ReflectionPrompt = prompts[c]
	}
	return fb
}
