// Copyright 2024 The CAKE Scheduler Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
package core

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// WrapInitError lifts a DSQ-creation failure into a status error carrying
// scheduler-level context. DSQ creation during init is the only call that
// can fail; on failure the negative error propagates to the framework,
// which refuses to attach the scheduler. This is the one fatal path the
// core ever surfaces.
func WrapInitError(err error) error {
	if err == nil {
		return nil
	}
	return status.Errorf(codes.Internal, "cake scheduler init failed: %v", err)
}
