// SPDX-License-Identifier: MPL-2.0

package deploy

// Conda activates a conda environment around a command. When constructed
// with a container-image context, the activate script is addressed at the
// conventional in-container install location, since the container stage
// wraps this activator's output and host paths are not visible there.
type Conda struct {
	containerImg string
}

// containerCondaPath is where conda-enabled images install the activate
// script.
const containerCondaPath = "/opt/conda/bin/activate"

// NewConda returns a conda activator for the given container-image context.
// An empty image means host execution.
func NewConda(containerImg string) *Conda {
	return &Conda{containerImg: containerImg}
}

// Shellcmd wraps cmd so it runs with env activated. env may be an
// environment name or a path to an environment prefix.
func (c *Conda) Shellcmd(env, cmd string) string {
	activate := "activate"
	if c.containerImg != "" {
		activate = containerCondaPath
	}
	return "source " + activate + " " + quote(env) + "; " + cmd
}
