// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed cpus.yaml
var cpuModelYAML []byte

const unknownUarch = "Unknown"

type cpuModelData struct {
	Uarch      string   `yaml:"uarch"`
	Class      Class    `yaml:"class"`
	Signatures []uint32 `yaml:"signatures"`
}

// Model describes a known processor signature
type Model struct {
	Uarch string
	Class Class
}

// Table maps processor signatures to their micro-architecture and class
type Table struct {
	models map[uint32]Model
}

// DefaultTable returns the built-in signature table
func DefaultTable() *Table {
	t, err := ParseTable(cpuModelYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded cpus.yaml is invalid: %v", err))
	}
	return t
}

// ParseTable parses a YAML signature table
func ParseTable(data []byte) (*Table, error) {
	var entries []cpuModelData
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse cpu model table: %w", err)
	}

	t := &Table{models: map[uint32]Model{}}
	for _, e := range entries {
		for _, sig := range e.Signatures {
			if prev, dup := t.models[sig]; dup {
				return nil, fmt.Errorf("signature 0x%x listed for both %s and %s", sig, prev.Uarch, e.Uarch)
			}
			t.models[sig] = Model{Uarch: e.Uarch, Class: e.Class}
		}
	}
	return t, nil
}

// Lookup returns the model registered for the signature; the stepping bits are ignored
func (t *Table) Lookup(signature uint32) (Model, bool) {
	m, ok := t.models[signature&signatureMask]
	return m, ok
}

const signatureMask = 0xfffffff0

// Signature rebuilds the CPUID leaf 1 EAX value, without stepping, from the
// display family and model reported by the kernel
func Signature(family, model int) uint32 {
	if family < 0 || model < 0 {
		return 0
	}

	baseFamily, extFamily := uint32(family), uint32(0)
	if family > 0xf {
		baseFamily, extFamily = 0xf, uint32(family-0xf)
	}

	baseModel, extModel := uint32(model), uint32(0)
	if family == 0x6 || family >= 0xf {
		baseModel, extModel = uint32(model)&0xf, uint32(model)>>4
	}

	return (extFamily&0xff)<<20 | (extModel&0xf)<<16 | (baseFamily&0xf)<<8 | (baseModel&0xf)<<4
}
