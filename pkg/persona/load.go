// Copyright 2026 © The Colloquy Authors
// SPDX-License-Identifier: Apache-2.0

package persona

import (
	"bytes"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jllopis/colloquy/pkg/errors"
)

// File is the on-disk registry layout.
type File struct {
	Participants []Participant `yaml:"participants"`
	Corpus       Corpus        `yaml:"corpus"`
}

// LoadFile reads a YAML registry from path.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigurationError("read persona registry", err).
			WithContext("path", path)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, errors.AsColloquyError(err).WithContext("path", path)
	}
	return r, nil
}

// Parse decodes and validates a YAML registry document. Unknown fields are
// rejected so that typos surface at startup.
func Parse(data []byte) (*Registry, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.NewConfigurationError("decode persona registry", err)
	}
	for i := range f.Participants {
		if f.Participants[i].Kind == "" {
			f.Participants[i].Kind = KindPersona
		}
	}
	return NewRegistry(f.Participants, f.Corpus)
}
