// launchable_codegen writes accel/launchable_gen.go, the typed launch
// wrappers LaunchableN for each supported argument arity.
//
// Run from the repository root:
//
//	go run ./cmd/launchable_codegen > accel/launchable_gen.go
package main

import (
	"fmt"
	"os"
	"strings"
)

const maxArity = 8

func main() {
	var b strings.Builder
	b.WriteString(header)
	writeArity0(&b)
	for n := 1; n <= maxArity; n++ {
		writeArity(&b, n)
	}
	if _, err := os.Stdout.WriteString(b.String()); err != nil {
		fmt.Fprintf(os.Stderr, "launchable_codegen: %v\n", err)
		os.Exit(1)
	}
}

const header = `// Code generated by launchable_codegen. DO NOT EDIT.

package accel

// LaunchableN wraps a Kernel whose signature was checked once, at
// construction, against N argument types. Launch then only marshals: the
// per-slot class and element type can no longer mismatch.
`

func writeArity0(b *strings.Builder) {
	b.WriteString(`
// Launchable0 launches a kernel declaring no parameters.
type Launchable0 struct {
	k *Kernel
}

// NewLaunchable0 checks that k declares no parameters.
func NewLaunchable0(k *Kernel) (*Launchable0, error) {
	if err := k.checkSignature(); err != nil {
		return nil, err
	}
	return &Launchable0{k: k}, nil
}

// Kernel returns the wrapped kernel.
func (l *Launchable0) Kernel() *Kernel { return l.k }

// Launch dispatches the kernel and blocks until it completed.
func (l *Launchable0) Launch(grid Grid, block Block) error {
	return l.k.launch(grid, block, nil)
}
`)
}

// writeArity emits LaunchableN for n >= 1.
func writeArity(b *strings.Builder, n int) {
	typeParams := make([]string, n)   // A1 Param, ...
	typeArgs := make([]string, n)     // A1, ...
	valueParams := make([]string, n)  // a1 A1, ...
	valueNames := make([]string, n)   // a1, ...
	specs := make([]string, n)        // a1.TargetSpec(), ...
	zeroDecls := make([]string, n)    // var a1 A1
	for i := 0; i < n; i++ {
		typeParams[i] = fmt.Sprintf("A%d Param", i+1)
		typeArgs[i] = fmt.Sprintf("A%d", i+1)
		valueParams[i] = fmt.Sprintf("a%d A%d", i+1, i+1)
		valueNames[i] = fmt.Sprintf("a%d", i+1)
		specs[i] = fmt.Sprintf("a%d.TargetSpec()", i+1)
		zeroDecls[i] = fmt.Sprintf("\tvar a%d A%d", i+1, i+1)
	}
	args := strings.Join(typeArgs, ", ")

	fmt.Fprintf(b, `
// Launchable%d launches a kernel declaring %s.
type Launchable%d[%s] struct {
	k *Kernel
}

// NewLaunchable%d checks k's signature against the argument types.
func NewLaunchable%d[%s](k *Kernel) (*Launchable%d[%s], error) {
%s
	if err := k.checkSignature(%s); err != nil {
		return nil, err
	}
	return &Launchable%d[%s]{k: k}, nil
}

// Kernel returns the wrapped kernel.
func (l *Launchable%d[%s]) Kernel() *Kernel { return l.k }

// Launch dispatches the kernel and blocks until it completed.
func (l *Launchable%d[%s]) Launch(grid Grid, block Block, %s) error {
	return l.k.launch(grid, block, []Param{%s})
}
`,
		n, plural(n), n, strings.Join(typeParams, ", "),
		n, n, strings.Join(typeParams, ", "), n, args,
		strings.Join(zeroDecls, "\n"), strings.Join(specs, ", "),
		n, args,
		n, args,
		n, args, strings.Join(valueParams, ", "), strings.Join(valueNames, ", "))
}

func plural(n int) string {
	if n == 1 {
		return "1 parameter"
	}
	return fmt.Sprintf("%d parameters", n)
}
