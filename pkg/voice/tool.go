package voice

// Tool is a function the agent can call during conversation.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does (shown to the model).
	Description string

	// Parameters maps argument names to their JSON Schema fragments,
	// e.g. {"label": {"type": "string"}}.
	Parameters map[string]any

	// Handler is called when the agent invokes this tool. The return
	// value is sent back as the function call output.
	Handler func(args map[string]any) (string, error)
}

// ToolCall is one tool invocation requested by the agent.
type ToolCall struct {
	// ID is the call identifier, echoed in the output item.
	ID string

	// Name is the name of the invoked tool.
	Name string

	// Args holds the parsed arguments.
	Args map[string]any
}

// schema returns the wire form used in session.update.
func (t Tool) schema() toolSchema {
	params := t.Parameters
	if params == nil {
		params = map[string]any{}
	}
	return toolSchema{
		Type:        "function",
		Name:        t.Name,
		Description: t.Description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": params,
			"required":   []string{},
		},
	}
}

type toolSchema struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}
