// internal/catalog/schema.go
package catalog

// documentSchema is the JSON schema a catalog document must satisfy before
// it is decoded. Structural problems (missing names, bad enum literals) are
// rejected here; cross-entry rules (synonym collisions) are checked in Load.
var documentSchema = map[string]interface{}{
	"type":                 "object",
	"required":             []interface{}{"metrics", "dimensions"},
	"additionalProperties": false,
	"properties": map[string]interface{}{
		"metrics": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":                 "object",
				"required":             []interface{}{"name", "backingField", "dataType"},
				"additionalProperties": false,
				"properties": map[string]interface{}{
					"name":         map[string]interface{}{"type": "string", "minLength": 1},
					"backingField": map[string]interface{}{"type": "string", "minLength": 1},
					"defaultAggregation": map[string]interface{}{
						"type": "string",
						"enum": []interface{}{"sum", "avg", "count", "min", "max", "distinct_count"},
					},
					"synonyms": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string", "minLength": 1},
					},
					"dataType": map[string]interface{}{
						"type": "string",
						"enum": []interface{}{"currency", "percentage", "count", "number"},
					},
					"formatString": map[string]interface{}{"type": "string"},
				},
			},
		},
		"dimensions": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":                 "object",
				"required":             []interface{}{"name", "backingField", "dataType"},
				"additionalProperties": false,
				"properties": map[string]interface{}{
					"name":         map[string]interface{}{"type": "string", "minLength": 1},
					"backingField": map[string]interface{}{"type": "string", "minLength": 1},
					"synonyms": map[string]interface{}{
						"type":  "array",
						"items": map[string]interface{}{"type": "string", "minLength": 1},
					},
					"dataType": map[string]interface{}{
						"type": "string",
						"enum": []interface{}{"string", "date", "enum", "numeric"},
					},
					"allowedValues": map[string]interface{}{
						"type": "object",
						"additionalProperties": map[string]interface{}{
							"type": "string",
						},
					},
				},
			},
		},
	},
}
