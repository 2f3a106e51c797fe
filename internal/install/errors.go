// ***************************************************************************
//
//  Copyright 2017 David (Dizzy) Smith, dizzyd@dizzyd.com
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
//   Unless required by applicable law or agreed to in writing, software
//   distributed under the License is distributed on an "AS IS" BASIS,
//   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//   See the License for the specific language governing permissions and
//   limitations under the License.
// ***************************************************************************

package install

import "fmt"

// ConfigError covers a missing API key, a 403 from the registry, or an
// unrecognized modLoaderId shape -- spec.md §7's "Configuration" class.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// InputError covers a malformed pack: missing manifest.json, a wrong
// manifestType, or no primary mod loader -- spec.md §7's "Input" class.
// A world archive whose first entry isn't a directory is not reported as
// an InputError; the classifier returns that failure as a plain wrapped
// error.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

// AccessDeniedError is raised when the referenced pack file has no
// downloadUrl at all (an author opt-out on the primary pack file itself,
// as opposed to a single mod, which is just a warning) -- spec.md §7's
// "Access-denied distribution" class.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

func inputErrorf(format string, args ...interface{}) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

func accessDeniedErrorf(format string, args ...interface{}) error {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}
