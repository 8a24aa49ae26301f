// SPDX-License-Identifier: Unlicense OR MIT

//go:build !(flutter && cgo)

package engine

import "errors"

type embedder struct{}

// NewEmbedder returns the Runner backed by the engine library
// linked into this build.
func NewEmbedder() Runner {
	return embedder{}
}

func (embedder) Run(Config, RenderDelegate) (Instance, error) {
	return nil, errors.New("no engine library in this build (build with -tags flutter)")
}
