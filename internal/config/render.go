package config

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

const fileHeader = `# devtask project configuration.
# Every key may be overridden with a DEVTASK_<KEY> environment variable.
`

// Marshal renders cfg as a devtask.yaml document.
func Marshal(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
