package session

import "path/filepath"

// Artifact file names. They never vary between runs.
const (
	ModuleSourceName = "user_code.c"
	ModuleIRName     = "user_code.ll"
	DriverSourceName = "generated.c"
	DriverIRName     = "generated.ll"
	LinkedIRName     = "combined.ll"
)

// Layout resolves artifact paths under a session root.
type Layout struct {
	Root string
}

func (l Layout) ModuleSource() string { return filepath.Join(l.Root, ModuleSourceName) }
func (l Layout) ModuleIR() string     { return filepath.Join(l.Root, ModuleIRName) }
func (l Layout) DriverSource() string { return filepath.Join(l.Root, DriverSourceName) }
func (l Layout) DriverIR() string     { return filepath.Join(l.Root, DriverIRName) }
func (l Layout) LinkedIR() string     { return filepath.Join(l.Root, LinkedIRName) }

// Artifacts lists every artifact path in removal order.
func (l Layout) Artifacts() []string {
	return []string{
		l.ModuleSource(),
		l.ModuleIR(),
		l.DriverSource(),
		l.DriverIR(),
		l.LinkedIR(),
	}
}
