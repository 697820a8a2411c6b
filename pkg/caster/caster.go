package caster

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ChannelCaster converts between the string payloads carried by the document
// store and typed values.
type ChannelCaster[T any] interface {
	From(string) (T, error)
	To(T) (string, error)
}

type JSONChannelCaster[T any] struct{}

func (jc JSONChannelCaster[T]) From(data string) (T, error) {
	var v T
	err := json.Unmarshal([]byte(data), &v)
	return v, errors.Wrap(err, "decoding json payload")
}

func (jc JSONChannelCaster[T]) To(v T) (string, error) {
	data, err := json.Marshal(v)
	return string(data), errors.Wrap(err, "encoding json payload")
}

type YAMLCaster[T any] struct{}

func (yc YAMLCaster[T]) From(data string) (T, error) {
	var v T
	err := yaml.Unmarshal([]byte(data), &v)
	return v, errors.Wrap(err, "decoding yaml payload")
}

func (yc YAMLCaster[T]) To(v T) (string, error) {
	data, err := yaml.Marshal(v)
	return string(data), errors.Wrap(err, "encoding yaml payload")
}

// ForFile picks the caster matching a file extension, JSON by default.
func ForFile[T any](path string) ChannelCaster[T] {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAMLCaster[T]{}
	default:
		return JSONChannelCaster[T]{}
	}
}
