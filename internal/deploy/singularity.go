// SPDX-License-Identifier: MPL-2.0

package deploy

import (
	"os"
	"strings"
)

// Singularity wraps commands so they execute inside a Singularity/Apptainer
// image via "singularity exec".
type Singularity struct{}

// Shellcmd wraps cmd for execution inside img. extraArgs are passed through
// to "singularity exec" verbatim; shellExecutable is the interpreter used
// inside the container (defaulting to sh); workdir, when non-empty, sets
// the working directory of the containerized process. The invoking
// directory is mounted as the container home so relative paths in cmd keep
// resolving.
func (Singularity) Shellcmd(img, cmd, extraArgs, shellExecutable, workdir string) string {
	if shellExecutable == "" {
		shellExecutable = "sh"
	}
	home, err := os.Getwd()
	if err != nil {
		home = "."
	}

	parts := []string{"singularity", "exec", "--home", quote(home)}
	if workdir != "" {
		parts = append(parts, "--pwd", quote(workdir))
	}
	if extraArgs != "" {
		parts = append(parts, extraArgs)
	}
	parts = append(parts, quote(img), shellExecutable, "-c", quote(cmd))
	return strings.Join(parts, " ")
}
