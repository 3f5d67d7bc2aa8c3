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

// Package seed builds the first-boot configuration image presented to a
// guest OS: a small FAT volume carrying cloud-init metadata in which the
// per-test network identity has been substituted for fixed placeholder
// tokens.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexandremahdhaoui/bootprobe/pkg/hostexec"
	"github.com/alexandremahdhaoui/bootprobe/pkg/netident"
)

// The three placeholder tokens that must appear verbatim in templated
// resource files. Substitution is exact-string, not pattern based.
const (
	PlaceholderHostIP  = "192.168.2.1"
	PlaceholderGuestIP = "192.168.2.2"
	PlaceholderMAC     = "12:34:56:78:90:ab"
)

// imageSectors is the fixed size of every seed image, in 512-byte
// sectors.
const imageSectors = "8192"

var (
	ErrCreateSeedDir = errors.New("failed to create seed staging directory")
	ErrCopyTemplate  = errors.New("failed to copy template file")
	ErrReadTemplate  = errors.New("failed to read template file")
	ErrWriteTemplate = errors.New("failed to write templated file")
	ErrMakeImage     = errors.New("failed to create seed image")
	ErrCopyIntoImage = errors.New("failed to copy files into seed image")
	ErrResourcesDir  = errors.New("resources directory is required")
)

// Builder prepares a seed image for one guest distribution family.
// Prepare stages the distro's metadata tree under workDir, substitutes
// the identity for the placeholder tokens, builds the FAT image, and
// returns the absolute path of the image file. Any failure is fatal to
// the test case.
type Builder interface {
	Prepare(ctx context.Context, workDir string, id netident.Identity) (string, error)
}

// Substitute replaces the three placeholder tokens with the identity's
// values. Applying it to content already free of placeholders is a no-op.
func Substitute(content []byte, id netident.Identity) []byte {
	s := string(content)
	s = strings.ReplaceAll(s, PlaceholderHostIP, id.HostIP)
	s = strings.ReplaceAll(s, PlaceholderGuestIP, id.GuestIP)
	s = strings.ReplaceAll(s, PlaceholderMAC, id.GuestMAC)
	return []byte(s)
}

// copyFile copies a template verbatim.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCopyTemplate, src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCopyTemplate, dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCopyTemplate, dst, err)
	}
	return nil
}

// substituteFile reads a templated file, substitutes the identity, and
// writes the result to dst. Only the placeholder bytes change.
func substituteFile(src, dst string, id netident.Identity) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrReadTemplate, src, err)
	}
	if err := os.WriteFile(dst, Substitute(content, id), 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteTemplate, dst, err)
	}
	return nil
}

// makeImage creates an empty FAT image of the fixed seed size with the
// given volume label.
func makeImage(ctx context.Context, imagePath, label string) error {
	_, err := hostexec.Run(ctx, nil,
		"mkdosfs",
		"-n", label,
		"-C", imagePath,
		imageSectors,
	)
	if err != nil {
		return errors.Join(err, ErrMakeImage)
	}
	return nil
}

// copyIntoImage copies one source path (file or directory, recursively)
// into the image root.
func copyIntoImage(ctx context.Context, imagePath, src string) error {
	_, err := hostexec.Run(ctx, nil,
		"mcopy",
		"-o",
		"-i", imagePath,
		"-s", src,
		"::",
	)
	if err != nil {
		return errors.Join(err, ErrCopyIntoImage)
	}
	return nil
}

// mkdirAll wraps os.MkdirAll with the package error. Creation is
// idempotent; only a real failure (permissions, file in the way) errors.
func mkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCreateSeedDir, dir, err)
	}
	return nil
}

// imagePathIn returns the canonical seed image location inside a test's
// work directory.
func imagePathIn(workDir string) (string, error) {
	abs, err := filepath.Abs(filepath.Join(workDir, "cloudinit"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCreateSeedDir, err)
	}
	return abs, nil
}
