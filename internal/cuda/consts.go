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

package cuda

// Result represents the CUresult return type.
type Result int32

const (
	SUCCESS               Result = 0
	ERROR_INVALID_VALUE   Result = 1
	ERROR_NOT_INITIALIZED Result = 3
	ERROR_NOT_FOUND       Result = 500
	ERROR_UNKNOWN         Result = 999
)
