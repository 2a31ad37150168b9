package persona

// DefaultID names the assistant persona served when no other is requested.
const DefaultID = "aura"

// Persona captures the assistant identity exposed to the frontend and to the model.
type Persona struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Greeting    string   `json:"greeting"`
	Subtitle    string   `json:"subtitle"`
	Description string   `json:"description,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	// Instruction is the system instruction sent with every exchange.
	Instruction string `json:"-"`
}

// Seed provides the built-in assistant persona.
func Seed() []Persona {
	return []Persona{
		{
			ID:          DefaultID,
			Name:        "Aura",
			Title:       "AI assistant",
			Greeting:    "Hi there!",
			Subtitle:    "What would you like to know?",
			Description: "I can help you with analysis, creative writing, coding, and more.",
			Suggestions: []string{
				"Explain quantum computing simply",
				"Write a haiku about autumn",
				"Debug a Python script",
				"Plan a trip to Kyoto",
			},
			Instruction: "You are Aura, a helpful, concise, and professional AI assistant. \n" +
				"Your responses should be clean, well-structured, and free of unnecessary fluff. \n" +
				"Use Markdown for formatting where appropriate.",
		},
	}
}
