package ai

// InsightsToolName is the function the generation model is forced to call.
const InsightsToolName = "extract_meeting_insights"

// InsightsSchema is the JSON schema of the insights tool arguments.
var InsightsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"overview": map[string]any{
			"type":        "string",
			"description": "A concise summary of the meeting, grounded in the historical context when relevant.",
		},
		"toDoList": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"person": map[string]any{
						"type":        "string",
						"description": "Name of the person responsible (or 'To be Assigned' if unclear)",
					},
					"task": map[string]any{
						"type":        "string",
						"description": "The task or decision description",
					},
					"type": map[string]any{
						"type":        "string",
						"enum":        []string{"takeaway", "action"},
						"description": "Whether this is a key takeaway or actionable step",
					},
				},
				"required":             []string{"person", "task", "type"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"overview", "toDoList"},
	"additionalProperties": false,
}
