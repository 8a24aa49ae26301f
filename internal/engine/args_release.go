// SPDX-License-Identifier: Unlicense OR MIT

//go:build !debug

package engine

var buildArgs = []string{"--disable-dart-asserts"}
