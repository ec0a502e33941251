package api

type DataType string

const (
	TypeString  DataType = "string"
	TypeNumber  DataType = "number"
	TypeInteger DataType = "integer"
	TypeBoolean DataType = "boolean"
	TypeArray   DataType = "array"
	TypeObject  DataType = "object"
)

// Schema is an incomplete OpenAPI 3.0 schema object, used to request
// structured (JSON) responses from generation providers.
type Schema struct {
	Description string             `json:"description,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Title       string             `json:"title,omitempty"`
	Type        DataType           `json:"type,omitempty"`
}

// ObjectSchema returns an object schema where every given property is required.
func ObjectSchema(title string, properties map[string]*Schema) *Schema {
	required := make([]string, 0, len(properties))
	for name := range properties {
		required = append(required, name)
	}
	return &Schema{
		Title:      title,
		Type:       TypeObject,
		Properties: properties,
		Required:   required,
	}
}

// ArraySchema returns an array schema with the given item schema.
func ArraySchema(items *Schema) *Schema {
	return &Schema{
		Type:  TypeArray,
		Items: items,
	}
}

func PrimitiveSchema(t DataType, description string) *Schema {
	return &Schema{
		Type:        t,
		Description: description,
	}
}
