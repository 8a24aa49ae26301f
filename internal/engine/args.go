// SPDX-License-Identifier: Unlicense OR MIT

package engine

// DefaultArgs returns the engine flags for this build followed by
// extra.
func DefaultArgs(extra ...string) []string {
	args := make([]string, 0, len(buildArgs)+len(extra))
	args = append(args, buildArgs...)
	return append(args, extra...)
}
