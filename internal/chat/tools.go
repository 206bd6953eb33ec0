package chat

import "healthworks/api_assistant/pkg/llm"

// ToolDefinition mirrors the OpenAI function-tool wire shape.
type ToolDefinition struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction describes one callable function.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolDefinitions is the static registry of functions exposed to the model.
// All five take no arguments: the owner whose data they read is bound from
// the authenticated request, never chosen by the model.
var ToolDefinitions = []ToolDefinition{
	{
		Type: "function",
		Function: ToolFunction{
			Name:        "get_prescriptions",
			Description: "Get the user's active prescriptions with medicine name, dosage, frequency, instructions and prescribing doctor",
			Parameters:  noParams(),
		},
	},
	{
		Type: "function",
		Function: ToolFunction{
			Name:        "get_reminders",
			Description: "Get the user's upcoming medication reminders",
			Parameters:  noParams(),
		},
	},
	{
		Type: "function",
		Function: ToolFunction{
			Name:        "get_health_records",
			Description: "Get the user's recent health measurements such as heart rate, blood pressure, blood sugar and temperature",
			Parameters:  noParams(),
		},
	},
	{
		Type: "function",
		Function: ToolFunction{
			Name:        "get_todays_schedule",
			Description: "Get today's medication reminders and the user's currently active medications",
			Parameters:  noParams(),
		},
	},
	{
		Type: "function",
		Function: ToolFunction{
			Name:        "get_doctors",
			Description: "Get the user's care team: their primary doctor and the doctors who have prescribed for them",
			Parameters:  noParams(),
		},
	},
}

func noParams() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []string{},
	}
}

// ToolSchemas converts the registry into the provider's tool format, in
// registry order.
func ToolSchemas() []llm.Tool {
	out := make([]llm.Tool, len(ToolDefinitions))
	for i, def := range ToolDefinitions {
		out[i] = llm.Tool{
			Name:        def.Function.Name,
			Description: def.Function.Description,
			Parameters:  def.Function.Parameters,
		}
	}
	return out
}
