// Package config provides tracker configuration.
//
// Configuration is loaded from a YAML file and validated using struct tags.
// Keys missing from the file keep their default values.
package config
