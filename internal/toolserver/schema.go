package toolserver

// PermissiveSchema is substituted for tools whose input schema is missing,
// not an object, or has no type.
func PermissiveSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{},
		"additionalProperties": true,
	}
}

// DeclaresType reports whether schema is a JSON object with a "type" member.
func DeclaresType(schema any) bool {
	m, ok := schema.(map[string]any)
	if !ok {
		return false
	}
	_, ok = m["type"]
	return ok
}
