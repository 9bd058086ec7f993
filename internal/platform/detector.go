// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	cpuidv2 "github.com/klauspost/cpuid/v2"
	"github.com/prometheus/procfs"

	"github.com/sustainable-computing-io/powermon/internal/device"
)

const intelVendor = "GenuineIntel"

var (
	ErrUnsupportedVendor   = errors.New("only Intel CPUs are supported")
	ErrUnknownPlatform     = errors.New("CPU type is unknown")
	ErrUnsupportedPlatform = errors.New("CPU is unsupported")
)

// Identity is the static description of the processor being monitored
type Identity struct {
	Vendor    string // e.g. GenuineIntel
	Model     string // brand string
	Family    string // micro-architecture name
	Signature uint32
	Class     Class
}

// Validate returns an error unless energy can be sampled on this processor
func (id Identity) Validate() error {
	if id.Vendor != intelVendor {
		return fmt.Errorf("%w: vendor is %q", ErrUnsupportedVendor, id.Vendor)
	}
	switch id.Class {
	case Unknown:
		return fmt.Errorf("%w (signature 0x%x); specify it with --platform.class", ErrUnknownPlatform, id.Signature)
	case Unsupported:
		return fmt.Errorf("%w: %s (signature 0x%x) has no RAPL interface", ErrUnsupportedPlatform, id.Family, id.Signature)
	}
	return nil
}

// Overrides replace detected values when set
type Overrides struct {
	Vendor string
	Family string
	Model  string
	Class  Class
}

// procFS is an interface for CPUInfo.
type procFS interface {
	CPUInfo() ([]procfs.CPUInfo, error)
}

type realProcFS struct {
	fs procfs.FS
}

func (r *realProcFS) CPUInfo() ([]procfs.CPUInfo, error) {
	return r.fs.CPUInfo()
}

func newProcFS(mountPoint string) (procFS, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, err
	}
	return &realProcFS{fs: fs}, nil
}

// cpuInfo is the subset of processor information used for identification
type cpuInfo struct {
	vendor string
	model  string
	family int
	number int
}

// cpuidInfo reads the processor information directly through the CPUID instruction
func cpuidInfo() cpuInfo {
	return cpuInfo{
		vendor: cpuidv2.CPU.VendorString,
		model:  cpuidv2.CPU.BrandName,
		family: cpuidv2.CPU.Family,
		number: cpuidv2.CPU.Model,
	}
}

// Detector resolves the Identity of the processor once during Init
type Detector struct {
	logger    *slog.Logger
	reader    device.RegisterReader
	procfs    string
	fs        procFS
	cpuid     func() cpuInfo
	table     *Table
	overrides Overrides

	identity Identity
}

// DetectorOptFn configures a Detector
type DetectorOptFn func(*Detector)

// WithLogger sets the logger of the detector
func WithLogger(l *slog.Logger) DetectorOptFn {
	return func(d *Detector) {
		d.logger = l
	}
}

// WithProcFS sets the procfs mount point used to read cpuinfo
func WithProcFS(path string) DetectorOptFn {
	return func(d *Detector) {
		d.procfs = path
	}
}

// WithOverrides sets values that take precedence over detection
func WithOverrides(o Overrides) DetectorOptFn {
	return func(d *Detector) {
		d.overrides = o
	}
}

// WithTable replaces the built-in signature table
func WithTable(t *Table) DetectorOptFn {
	return func(d *Detector) {
		d.table = t
	}
}

// NewDetector creates a detector that probes reader when the class cannot be
// derived from the processor signature
func NewDetector(reader device.RegisterReader, opts ...DetectorOptFn) *Detector {
	d := &Detector{
		logger: slog.Default(),
		reader: reader,
		procfs: "/proc",
		cpuid:  cpuidInfo,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("service", "platform")
	if d.table == nil {
		d.table = DefaultTable()
	}
	return d
}

func (d *Detector) Name() string {
	return "platform"
}

// Init detects and validates the processor identity
func (d *Detector) Init() error {
	id, err := d.Detect()
	d.identity = id
	if err != nil {
		return err
	}

	d.logger.Info("Detected processor",
		"vendor", id.Vendor,
		"model", id.Model,
		"arch", id.Family,
		"signature", fmt.Sprintf("0x%x", id.Signature),
		"class", id.Class)
	return nil
}

// Identity returns the identity resolved by Init
func (d *Detector) Identity() Identity {
	return d.identity
}

// Detect resolves the processor identity; the returned Identity is populated
// even when validation fails
func (d *Detector) Detect() (Identity, error) {
	cpu := d.readCPUInfo()

	id := Identity{
		Vendor:    cpu.vendor,
		Model:     cpu.model,
		Signature: Signature(cpu.family, cpu.number),
		Family:    unknownUarch,
		Class:     Unknown,
	}
	if m, ok := d.table.Lookup(id.Signature); ok {
		id.Family = m.Uarch
		id.Class = m.Class
	}

	if d.overrides.Vendor != "" {
		id.Vendor = d.overrides.Vendor
	}
	if d.overrides.Model != "" {
		id.Model = d.overrides.Model
	}
	if d.overrides.Family != "" {
		id.Family = d.overrides.Family
	}
	if d.overrides.Class != Unknown {
		id.Class = d.overrides.Class
	}

	if id.Class == Unknown {
		id.Class = d.probeClass()
	}
	if id.Model == "" {
		id.Model = "Unknown CPU Model"
	}

	return id, id.Validate()
}

// probeClass infers the class from the platform exclusive energy registers
func (d *Detector) probeClass() Class {
	if d.reader == nil {
		return Unknown
	}
	switch {
	case d.reader.IsRegisterPresent(device.MSRPP1EnergyStatus):
		d.logger.Info("Inferred platform class from graphics energy register", "class", Desktop)
		return Desktop
	case d.reader.IsRegisterPresent(device.MSRDRAMEnergyStatus):
		d.logger.Info("Inferred platform class from DRAM energy register", "class", Server)
		return Server
	}
	return Unknown
}

func (d *Detector) readCPUInfo() cpuInfo {
	cpu, err := d.procfsCPUInfo()
	if err == nil {
		return cpu
	}

	d.logger.Warn("Failed to read cpuinfo, falling back to CPUID", "procfs", d.procfs, "error", err)
	return d.cpuid()
}

func (d *Detector) procfsCPUInfo() (cpuInfo, error) {
	if d.fs == nil {
		fs, err := newProcFS(d.procfs)
		if err != nil {
			return cpuInfo{}, fmt.Errorf("creating procfs failed: %w", err)
		}
		d.fs = fs
	}

	infos, err := d.fs.CPUInfo()
	if err != nil {
		return cpuInfo{}, err
	}
	if len(infos) == 0 {
		return cpuInfo{}, errors.New("cpuinfo lists no processors")
	}

	// all logical CPUs of a single socket share the same identification
	first := infos[0]
	family, err := strconv.Atoi(strings.TrimSpace(first.CPUFamily))
	if err != nil {
		return cpuInfo{}, fmt.Errorf("invalid cpu family %q: %w", first.CPUFamily, err)
	}
	model, err := strconv.Atoi(strings.TrimSpace(first.Model))
	if err != nil {
		return cpuInfo{}, fmt.Errorf("invalid cpu model %q: %w", first.Model, err)
	}

	return cpuInfo{
		vendor: first.VendorID,
		model:  strings.TrimSpace(first.ModelName),
		family: family,
		number: model,
	}, nil
}
