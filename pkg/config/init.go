package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configHeader = `# DittoMount Configuration File
#
# Generated by "dittomount init". Every value below is the default.
# Environment variables override this file: DITTOMOUNT_<SECTION>_<KEY>,
# e.g. DITTOMOUNT_CLIENT_SERVER=nas.local:2049
`

// fieldComments are attached to keys of the generated file, by dotted path.
var fieldComments = map[string]string{
	"logging":                "Logging: level is DEBUG, INFO, WARN or ERROR; format is text or json",
	"client":                 "Connection to the MOUNT server (mountd)",
	"client.server":          "host:port of mountd",
	"client.call_timeout":    "Per-call timeout; a timed out call discards the connection. 0 disables",
	"client.max_record_size": "Largest reply accepted, in bytes",
	"client.rate_limit":      "Token bucket for outgoing calls; calls_per_second 0 disables it",
	"client.auth":            "Credential sent with every call: none or unix (AUTH_SYS)",
	"store":                  "Mount table: memory (lost on exit) or badger (persistent)",
	"metrics":                "Prometheus endpoint, served by long running commands such as probe",
}

// InitConfig writes a default configuration file to the default location.
//
// Returns the path of the written file. Fails if the file exists and force
// is false.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateYAMLWithComments renders cfg as YAML with a header and a comment
// above each documented key.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	annotate(&doc, "")

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	buf.WriteString("\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}

	return buf.String(), nil
}

// annotate walks mapping nodes and sets head comments from fieldComments.
func annotate(node *yaml.Node, prefix string) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		path := key.Value
		if prefix != "" {
			path = prefix + "." + key.Value
		}
		if comment, ok := fieldComments[path]; ok {
			key.HeadComment = comment
		}
		annotate(value, path)
	}
}
