// SPDX-License-Identifier: MPL-2.0

package bakefile

// Defaults fills recipe fields the file leaves unset: the base image,
// the in-image workdir, and the runtime user. Fields left zero fall
// back to the built-in defaults, so the zero value is a valid argument.
type Defaults struct {
	Base    string
	Workdir string
	User    UserSpec
}

// DefaultBase, DefaultWorkdir and the runner/1000 identity are what a
// recipe gets when neither it nor the configuration says otherwise.
const (
	DefaultBase     = "python:3.11-slim"
	DefaultWorkdir  = "/workspace"
	DefaultUserName = "runner"
	DefaultUserUID  = 1000
)

func builtinDefaults() Defaults {
	return Defaults{
		Base:    DefaultBase,
		Workdir: DefaultWorkdir,
		User:    UserSpec{Name: DefaultUserName, UID: DefaultUserUID},
	}
}

// merged overlays d on the built-in defaults.
func (d Defaults) merged() Defaults {
	out := builtinDefaults()
	if d.Base != "" {
		out.Base = d.Base
	}
	if d.Workdir != "" {
		out.Workdir = d.Workdir
	}
	if d.User.Name != "" {
		out.User = d.User
		if out.User.UID == 0 {
			out.User.UID = DefaultUserUID
		}
	}
	return out
}

// applyDefaults fills unset recipe fields. The recipe always wins over
// the defaults.
func (b *Bakefile) applyDefaults(d Defaults) {
	d = d.merged()
	if b.Base == "" {
		b.Base = d.Base
	}
	if b.Workdir == "" {
		b.Workdir = d.Workdir
	}
	if b.User.Name == "" {
		b.User = d.User
	}
}
