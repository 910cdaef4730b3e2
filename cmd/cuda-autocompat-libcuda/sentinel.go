/*
 * Copyright 2025 Chuck Atkins and CUDA Auto-Compat contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

// The sentinel data symbol published by every cuda-autocompat module. The
// search engine rejects any probed libcuda.so.1 exposing it, which is exactly
// this stub when it is visible on a search path.
//
// Defined here because a cgo file containing //export directives may not hold
// definitions in its preamble.

/*
int cuda_autocompat_version = 2;
*/
import "C"
