package mcp

func toolDefinitions() []Tool {
	min0 := float64(0)
	max1 := float64(1)

	return []Tool{
		{
			Name:        "remember_facts",
			Description: "Extract discrete factual claims from free-form text and reconcile them against the agent's existing facts, reinforcing duplicates, superseding contradictions, and inserting new facts",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"agent_id": {Type: "string", Description: "The agent this memory belongs to"},
					"scope":    {Type: "string", Description: "Optional namespace within the agent's memory"},
					"text":     {Type: "string", Description: "Free-form text to extract facts from"},
				},
				Required: []string{"agent_id", "text"},
			},
		},
		{
			Name:        "store_memory",
			Description: "Store a verbatim piece of experiential content, reinforcing it in place with a fixed-strength reading if identical content already exists",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"agent_id": {Type: "string", Description: "The agent this memory belongs to"},
					"scope":    {Type: "string", Description: "Optional namespace within the agent's memory"},
					"content":  {Type: "string", Description: "The content to store"},
					"metadata": {Type: "string", Description: "Optional JSON-encoded metadata to attach to the chunk"},
				},
				Required: []string{"agent_id", "content"},
			},
		},
		{
			Name:        "recall_memories",
			Description: "Rank the agent's active facts and memories against a query by composite semantic similarity, strength, and recency",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"agent_id": {Type: "string", Description: "The agent to recall from"},
					"scopes":   {Type: "array", Description: "Optional list of scopes to restrict the search to", Items: &Property{Type: "string"}},
					"query":    {Type: "string", Description: "Natural-language query"},
					"kind":     {Type: "string", Description: "Optional kind filter: f (facts) or m (memories)"},
					"limit":    {Type: "integer", Description: "Maximum hits to return (1-50)", Default: 10},
				},
				Required: []string{"agent_id", "query"},
			},
		},
		{
			Name:        "forget_memory",
			Description: "Delete every active chunk whose content matches a description above a similarity threshold",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"agent_id":    {Type: "string", Description: "The agent to forget from"},
					"scope":       {Type: "string", Description: "Optional namespace to restrict the search to"},
					"description": {Type: "string", Description: "Description of what to forget"},
					"threshold":   {Type: "number", Description: "Minimum similarity to delete (default 0.7)", Default: 0.7, Minimum: &min0, Maximum: &max1},
				},
				Required: []string{"agent_id", "description"},
			},
		},
		{
			Name:        "recall_memory_block",
			Description: "Read the current value of a named, always-on memory block",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"agent_id": {Type: "string", Description: "The agent that owns the block"},
					"scope":    {Type: "string", Description: "Optional namespace the block lives in"},
					"key":      {Type: "string", Description: "Block key, e.g. persona or human"},
				},
				Required: []string{"agent_id", "key"},
			},
		},
		{
			Name:        "replace_memory_block",
			Description: "Replace every occurrence of old_text with new_text inside a memory block",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"agent_id": {Type: "string", Description: "The agent that owns the block"},
					"scope":    {Type: "string", Description: "Optional namespace the block lives in"},
					"key":      {Type: "string", Description: "Block key"},
					"old_text": {Type: "string", Description: "Text to find"},
					"new_text": {Type: "string", Description: "Text to replace it with"},
				},
				Required: []string{"agent_id", "key", "old_text", "new_text"},
			},
		},
		{
			Name:        "append_memory_block",
			Description: "Append text to a memory block, creating it if it does not already exist",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"agent_id": {Type: "string", Description: "The agent that owns the block"},
					"scope":    {Type: "string", Description: "Optional namespace the block lives in"},
					"key":      {Type: "string", Description: "Block key"},
					"text":     {Type: "string", Description: "Text to append"},
				},
				Required: []string{"agent_id", "key", "text"},
			},
		},
	}
}
