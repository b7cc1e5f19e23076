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

package global

import "strings"

// ConfigError implements an error interface and lists
// all the issues encountered during configuration validation.
type ConfigError struct {
	errors []error
}

// Append adds an additional error to the error list.
func (c *ConfigError) Append(e error) {
	c.errors = append(c.errors, e)
}

// Errors returns the collected errors.
func (c *ConfigError) Errors() []error {
	return c.errors
}

// ErrIfAny returns an error if at least a single error is appended to the type.
func (c *ConfigError) ErrIfAny() error {
	if len(c.errors) > 0 {
		return c
	}
	return nil
}

func (c *ConfigError) Error() string {
	errText := "invalid configuration: "
	for _, err := range c.errors {
		errText += err.Error() + "; "
	}
	return strings.TrimRight(errText, "; ")
}
