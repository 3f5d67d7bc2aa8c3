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

package seed

import (
	"context"
	"path/filepath"

	"github.com/alexandremahdhaoui/bootprobe/pkg/netident"
)

// Clear Linux file names inside the resources directory and the image.
const (
	clearMetaData = "meta_data.json"
	clearUserData = "user_data"

	clearVolumeLabel = "config-2"
)

// Clear builds ConfigDrive seed images for Clear Linux guests: a FAT
// volume labelled "config-2" carrying an openstack/latest/ tree with
// meta_data.json and a templated user_data.
type Clear struct {
	// ResourcesDir is the directory holding the clear/ template tree.
	ResourcesDir string
}

// NewClear creates a ConfigDrive seed builder reading templates from
// resourcesDir.
func NewClear(resourcesDir string) *Clear {
	return &Clear{ResourcesDir: resourcesDir}
}

// Prepare implements Builder.
func (c *Clear) Prepare(
	ctx context.Context,
	workDir string,
	id netident.Identity,
) (string, error) {
	if c.ResourcesDir == "" {
		return "", ErrResourcesDir
	}

	stageRoot, err := c.stage(workDir, id)
	if err != nil {
		return "", err
	}

	imagePath, err := imagePathIn(workDir)
	if err != nil {
		return "", err
	}

	if err := makeImage(ctx, imagePath, clearVolumeLabel); err != nil {
		return "", err
	}

	// ConfigDrive wants the openstack/ directory itself at the volume
	// root, so a single recursive copy of the staged tree suffices.
	if err := copyIntoImage(ctx, imagePath, stageRoot); err != nil {
		return "", err
	}

	return imagePath, nil
}

// stage materializes openstack/latest/{meta_data.json,user_data} under
// workDir and returns the openstack directory. meta_data.json is copied
// verbatim; user_data gets the identity substituted in.
func (c *Clear) stage(workDir string, id netident.Identity) (string, error) {
	srcDir := filepath.Join(c.ResourcesDir, "clear", "openstack", "latest")
	stageRoot := filepath.Join(workDir, "cloud-init", "clear", "openstack")
	latestDir := filepath.Join(stageRoot, "latest")

	if err := mkdirAll(latestDir); err != nil {
		return "", err
	}

	src := filepath.Join(srcDir, clearMetaData)
	if err := copyFile(src, filepath.Join(latestDir, clearMetaData)); err != nil {
		return "", err
	}

	src = filepath.Join(srcDir, clearUserData)
	dst := filepath.Join(latestDir, clearUserData)
	if err := substituteFile(src, dst, id); err != nil {
		return "", err
	}

	return stageRoot, nil
}
