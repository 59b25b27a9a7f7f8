// SPDX-License-Identifier: MPL-2.0

package deploy

import "strings"

// EnvModules activates a set of environment modules (Lmod/Tcl "module"
// system) around a command. The module list is fixed at construction.
type EnvModules struct {
	modules []string
}

// NewEnvModules returns an activator for the given module names.
func NewEnvModules(modules ...string) *EnvModules {
	return &EnvModules{modules: modules}
}

// Shellcmd wraps cmd so it runs with the modules loaded into a clean
// module environment.
func (m *EnvModules) Shellcmd(cmd string) string {
	return "module purge && module load " + strings.Join(m.modules, " ") + " && " + cmd
}

// String returns the space-joined module list, used in activation
// notifications.
func (m *EnvModules) String() string {
	return strings.Join(m.modules, " ")
}
