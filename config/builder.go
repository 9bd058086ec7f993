// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"reflect"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Builder layers YAML documents over a base configuration. Later documents
// win; keys absent from a document keep the value of the layer below.
type Builder struct {
	yamls  []string
	Config *Config
}

// Use sets the base configuration; DefaultConfig is used when unset
func (b *Builder) Use(c *Config) *Builder {
	b.Config = c
	return b
}

// Merge adds YAML documents to be merged into the configuration
func (b *Builder) Merge(yamls ...string) *Builder {
	b.yamls = append(b.yamls, yamls...)
	return b
}

// Build merges every document in order. Parse and merge failures of all
// documents are joined into the returned error.
func (b *Builder) Build() (*Config, error) {
	if b.Config == nil {
		b.Config = DefaultConfig()
	}

	var errs error
	for i, y := range b.yamls {
		layer := &Config{}
		if err := yaml.Unmarshal([]byte(y), layer); err != nil {
			errs = errors.Join(errs, fmt.Errorf("document %d: %w", i, err))
			continue
		}

		if err := mergo.Merge(b.Config, layer, mergo.WithOverride, mergo.WithTransformers(boolPtrTransformer{})); err != nil {
			errs = errors.Join(errs, fmt.Errorf("document %d: failed to merge: %w", i, err))
			continue
		}
	}

	if errs != nil {
		return nil, errs
	}
	return b.Config, nil
}

// boolPtrTransformer lets an explicit false in a layer override a true below it;
// mergo would otherwise treat the pointer as set and merge into the pointee.
type boolPtrTransformer struct{}

func (t boolPtrTransformer) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ != reflect.TypeOf((*bool)(nil)) {
		return nil
	}

	return func(dst, src reflect.Value) error {
		if src.IsNil() {
			return nil
		}
		if dst.CanSet() {
			dst.Set(src)
		}
		return nil
	}
}
