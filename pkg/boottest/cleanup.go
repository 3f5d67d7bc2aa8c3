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

import "errors"

// cleanupStack collects release functions as resources are acquired and
// runs them in reverse order. Every acquired resource is registered the
// moment it exists, so teardown happens on every exit path no matter
// which later stage fails.
type cleanupStack struct {
	fns []func() error
}

func (s *cleanupStack) push(f func() error) {
	s.fns = append(s.fns, f)
}

// run executes all registered functions LIFO. Every function runs even
// when earlier ones fail; failures are aggregated.
func (s *cleanupStack) run() error {
	var errs []error
	for i := len(s.fns) - 1; i >= 0; i-- {
		if err := s.fns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.fns = nil
	return errors.Join(errs...)
}
