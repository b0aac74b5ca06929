package validate

// Method parameter schemas, keyed by RPC method name
var schemas = map[string]string{
	"secrets.create": `{
		"type": "object",
		"required": ["text", "location"],
		"properties": {
			"text": {"type": "string", "minLength": 1, "maxLength": 500},
			"location": {"$ref": "#/definitions/coordinate"},
			"imageUrls": {"type": "array", "maxItems": 4, "items": {"type": "string", "minLength": 1, "maxLength": 1024}},
			"isAnonymous": {"type": "boolean"},
			"mood": {"type": "string", "maxLength": 32},
			"category": {"type": "string", "maxLength": 32},
			"hashtags": {"type": "array", "maxItems": 10, "items": {"type": "string", "minLength": 1, "maxLength": 32}}
		},
		"definitions": {"coordinate": ` + coordinateSchema + `}
	}`,

	"secrets.get_feed": `{
		"type": "object",
		"properties": {
			"location": {"$ref": "#/definitions/coordinate"},
			"radiusMeters": {"type": "number", "minimum": 0},
			"strategy": {"type": "string", "enum": ["", "recent", "popular", "nearby"]}
		},
		"definitions": {"coordinate": ` + coordinateSchema + `}
	}`,

	"secrets.add_comment": `{
		"type": "object",
		"required": ["postId", "text"],
		"properties": {
			"postId": {"type": "string", "minLength": 1},
			"text": {"type": "string", "minLength": 1, "maxLength": 500}
		}
	}`,

	"stories.create": `{
		"type": "object",
		"required": ["imageUrl"],
		"properties": {
			"imageUrl": {"type": "string", "minLength": 1, "maxLength": 1024},
			"caption": {"type": "string", "maxLength": 200}
		}
	}`,

	"profile.update": `{
		"type": "object",
		"properties": {
			"displayName": {"type": "string", "maxLength": 64},
			"bio": {"type": "string", "maxLength": 280},
			"avatarUrl": {"type": "string", "maxLength": 1024}
		}
	}`,
}

const coordinateSchema = `{
	"type": "object",
	"required": ["latitude", "longitude"],
	"properties": {
		"latitude": {"type": "number", "minimum": -90, "maximum": 90},
		"longitude": {"type": "number", "minimum": -180, "maximum": 180}
	}
}`
