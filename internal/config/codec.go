package config

import "gopkg.in/yaml.v3"

// Codec defines the deserialization contract for configuration files.
type Codec interface {
	// Unmarshal deserializes bytes into a value.
	Unmarshal(data []byte, v any) error

	// ContentType returns the MIME type for logging.
	ContentType() string
}

// YAMLCodec implements Codec using gopkg.in/yaml.v3. JSON documents are
// valid YAML and decode as well.
type YAMLCodec struct{}

// Unmarshal deserializes YAML bytes into v. Keys absent from the document
// keep the values already in v.
func (YAMLCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

// ContentType returns the YAML MIME type.
func (YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

var _ Codec = YAMLCodec{}
