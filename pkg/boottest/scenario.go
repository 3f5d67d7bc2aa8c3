// Copyright 2025 Alexandre Mahdhaoui
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package boottest

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Supported guest distribution families and monitor variants. Both sets
// are closed; a scenario naming anything else fails validation.
const (
	DistroUbuntu = "ubuntu"
	DistroClear  = "clear"

	VMMQEMU            = "qemu"
	VMMCloudHypervisor = "cloud-hypervisor"
)

var (
	ErrScenarioName  = errors.New("scenario name is required")
	ErrScenarioImage = errors.New("scenario image is required")
	ErrUnknownDistro = errors.New("unknown distribution family")
	ErrUnknownVMM    = errors.New("unknown VMM variant")
	ErrLoadSuite     = errors.New("failed to load scenario suite")
	ErrEmptySuite    = errors.New("scenario suite is empty")
)

// Scenario is one boot-test case: a reference guest image booted under
// one monitor variant.
type Scenario struct {
	Name string `yaml:"name"`
	// Image is the reference OS image file name, resolved relative to the
	// harness's workloads directory.
	Image  string `yaml:"image"`
	Distro string `yaml:"distro"`
	VMM    string `yaml:"vmm"`
	// Firmware optionally overrides the harness-wide firmware path.
	Firmware string `yaml:"firmware,omitempty"`
}

func (s Scenario) validate() error {
	if s.Name == "" {
		return ErrScenarioName
	}
	if s.Image == "" {
		return fmt.Errorf("%w: scenario %s", ErrScenarioImage, s.Name)
	}
	switch s.Distro {
	case DistroUbuntu, DistroClear:
	default:
		return fmt.Errorf("%w: %q in scenario %s", ErrUnknownDistro, s.Distro, s.Name)
	}
	switch s.VMM {
	case VMMQEMU, VMMCloudHypervisor:
	default:
		return fmt.Errorf("%w: %q in scenario %s", ErrUnknownVMM, s.VMM, s.Name)
	}
	return nil
}

// Suite is a collection of scenarios loaded from one YAML file.
type Suite struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadSuite reads and validates a scenario suite file.
func LoadSuite(path string) (Suite, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Suite{}, fmt.Errorf("%w: %s: %v", ErrLoadSuite, path, err)
	}

	var suite Suite
	if err := yaml.Unmarshal(content, &suite); err != nil {
		return Suite{}, fmt.Errorf("%w: %s: %v", ErrLoadSuite, path, err)
	}
	if len(suite.Scenarios) == 0 {
		return Suite{}, fmt.Errorf("%w: %s", ErrEmptySuite, path)
	}

	for _, sc := range suite.Scenarios {
		if err := sc.validate(); err != nil {
			return Suite{}, err
		}
	}

	return suite, nil
}
