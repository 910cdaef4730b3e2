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

package audit

import (
	"strings"

	"github.com/chuckatkins/cuda-autocompat/internal/paths"
)

// AuditEnvVar is the auditor list the dynamic linker reads and children
// inherit.
const AuditEnvVar = "LD_AUDIT"

// ScrubbedEnviron returns a copy of environ with this module's own entry
// removed from the auditor list, so the helper subprocess is not audited by
// the module that spawned it. Only the first entry whose basename equals
// selfBase is removed; when no entry remains the variable is dropped. The
// caller's live environment is never modified.
func ScrubbedEnviron(environ []string, selfBase string) []string {
	scrubbed := make([]string, 0, len(environ))
	done := false

	for _, kv := range environ {
		value, isAudit := strings.CutPrefix(kv, AuditEnvVar+"=")
		if !isAudit || done {
			scrubbed = append(scrubbed, kv)
			continue
		}
		done = true

		entries := strings.Split(value, ":")
		for i, entry := range entries {
			if paths.Filename(entry) == selfBase {
				entries = append(entries[:i], entries[i+1:]...)
				break
			}
		}

		remaining := strings.Join(entries, ":")
		if remaining == "" {
			continue
		}
		scrubbed = append(scrubbed, AuditEnvVar+"="+remaining)
	}

	return scrubbed
}
