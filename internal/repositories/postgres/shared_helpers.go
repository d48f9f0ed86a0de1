package postgres

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// toJSONArray renders a string slice as a JSON array literal for JSONB
// containment queries.
func toJSONArray(values []string) string {
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// toJSON marshals any value into a JSONB column, falling back to null on
// marshal failure.
func toJSON(value interface{}) datatypes.JSON {
	data, err := json.Marshal(value)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}
