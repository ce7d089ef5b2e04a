package replay

import (
	"github.com/invopop/jsonschema"
)

// Schema describes the persisted JSON session for storage backends.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(Session))
	schema.Title = "Arena Replay Session"
	schema.Description = "Seed plus frame-stamped events; each event is [kind, frame, ...payload]"
	return schema
}
