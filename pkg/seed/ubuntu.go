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

// Ubuntu file names inside the resources directory and the image root.
const (
	ubuntuMetaData      = "meta-data"
	ubuntuUserData      = "user-data"
	ubuntuNetworkConfig = "network-config"

	ubuntuVolumeLabel = "cidata"
)

// Ubuntu builds NoCloud seed images: a flat FAT volume labelled "cidata"
// carrying meta-data, user-data and a templated network-config at its
// root.
type Ubuntu struct {
	// ResourcesDir is the directory holding the ubuntu/ template tree.
	ResourcesDir string
}

// NewUbuntu creates a NoCloud seed builder reading templates from
// resourcesDir.
func NewUbuntu(resourcesDir string) *Ubuntu {
	return &Ubuntu{ResourcesDir: resourcesDir}
}

// Prepare implements Builder.
func (u *Ubuntu) Prepare(
	ctx context.Context,
	workDir string,
	id netident.Identity,
) (string, error) {
	if u.ResourcesDir == "" {
		return "", ErrResourcesDir
	}

	stageDir, err := u.stage(workDir, id)
	if err != nil {
		return "", err
	}

	imagePath, err := imagePathIn(workDir)
	if err != nil {
		return "", err
	}

	if err := makeImage(ctx, imagePath, ubuntuVolumeLabel); err != nil {
		return "", err
	}

	// NoCloud expects the files at the volume root, so each one is copied
	// individually rather than copying the staging directory itself.
	for _, name := range []string{ubuntuUserData, ubuntuMetaData, ubuntuNetworkConfig} {
		if err := copyIntoImage(ctx, imagePath, filepath.Join(stageDir, name)); err != nil {
			return "", err
		}
	}

	return imagePath, nil
}

// stage materializes the three NoCloud files under workDir. meta-data and
// user-data are copied verbatim; network-config gets the identity
// substituted in.
func (u *Ubuntu) stage(workDir string, id netident.Identity) (string, error) {
	srcDir := filepath.Join(u.ResourcesDir, "ubuntu")
	stageDir := filepath.Join(workDir, "cloud-init", "ubuntu")

	if err := mkdirAll(stageDir); err != nil {
		return "", err
	}

	for _, name := range []string{ubuntuMetaData, ubuntuUserData} {
		src := filepath.Join(srcDir, name)
		if err := copyFile(src, filepath.Join(stageDir, name)); err != nil {
			return "", err
		}
	}

	src := filepath.Join(srcDir, ubuntuNetworkConfig)
	dst := filepath.Join(stageDir, ubuntuNetworkConfig)
	if err := substituteFile(src, dst, id); err != nil {
		return "", err
	}

	return stageDir, nil
}
