// SPDX-License-Identifier: MPL-2.0

package shell

// Activation collaborators. Each one rewrites a command string so that it
// runs inside a named reproducible environment; the runner only depends on
// these contracts, never on a concrete deployment backend.
type (
	// ModuleActivator wraps a command with environment-module loading.
	ModuleActivator interface {
		Shellcmd(cmd string) string
	}

	// EnvActivator wraps a command with package-environment activation
	// (e.g. a conda environment). Implementations are constructed with an
	// optional container-image context so that activation text written by
	// the activator stays valid inside the container.
	EnvActivator interface {
		Shellcmd(env, cmd string) string
	}

	// ContainerRunner wraps a command so it executes inside a container
	// image. It receives the configured shell executable and an optional
	// working-directory override for the containerized process.
	ContainerRunner interface {
		Shellcmd(img, cmd, extraArgs, shellExecutable, workdir string) string
	}
)
