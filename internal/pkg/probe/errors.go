// Copyright 2022 Metrika Inc.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package probe

import "errors"

var (
	// ErrUnknown failure without an underlying error
	ErrUnknown = errors.New("unknown probe error")

	// ErrNoDetails success reported without details
	ErrNoDetails = errors.New("probe returned no details")

	// ErrRootPathNotFound no disk report line matches the root path
	ErrRootPathNotFound = errors.New("root path not found")

	// ErrMalformedDiskLine matched disk report line is missing the available column
	ErrMalformedDiskLine = errors.New("malformed disk report line")

	// ErrInvalidSize size column could not be parsed
	ErrInvalidSize = errors.New("invalid size")

	// ErrContainerListing running containers could not be listed
	ErrContainerListing = errors.New("container listing")

	// ErrProbePanic probe panicked while running
	ErrProbePanic = errors.New("probe panicked")
)

// listingError wraps a container listing failure. It matches both
// ErrContainerListing and the underlying error.
type listingError struct {
	err error
}

func (e *listingError) Error() string {
	return ErrContainerListing.Error() + ": " + e.err.Error()
}

func (e *listingError) Unwrap() error {
	return e.err
}

func (e *listingError) Is(target error) bool {
	return target == ErrContainerListing
}
