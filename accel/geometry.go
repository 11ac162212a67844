package accel

import (
	"fmt"

	"github.com/pkg/errors"
)

// Grid is the launch geometry's block count per axis.
type Grid struct {
	X, Y, Z int
}

// Block is the launch geometry's thread count per axis within a block.
type Block struct {
	X, Y, Z int
}

// Grid1 is a 1-D grid of x blocks.
func Grid1(x int) Grid { return Grid{X: x, Y: 1, Z: 1} }

// Grid2 is a 2-D grid.
func Grid2(x, y int) Grid { return Grid{X: x, Y: y, Z: 1} }

// Grid3 is a 3-D grid.
func Grid3(x, y, z int) Grid { return Grid{X: x, Y: y, Z: z} }

// Block1 is a 1-D block of x threads.
func Block1(x int) Block { return Block{X: x, Y: 1, Z: 1} }

// Block2 is a 2-D block.
func Block2(x, y int) Block { return Block{X: x, Y: y, Z: 1} }

// Block3 is a 3-D block.
func Block3(x, y, z int) Block { return Block{X: x, Y: y, Z: z} }

func (g Grid) validate() error {
	if g.X < 1 || g.Y < 1 || g.Z < 1 {
		return errors.Errorf("grid axes must all be at least 1, got %s", g)
	}
	return nil
}

func (b Block) validate() error {
	if b.X < 1 || b.Y < 1 || b.Z < 1 {
		return errors.Errorf("block axes must all be at least 1, got %s", b)
	}
	return nil
}

func (g Grid) String() string  { return fmt.Sprintf("Grid(%d,%d,%d)", g.X, g.Y, g.Z) }
func (b Block) String() string { return fmt.Sprintf("Block(%d,%d,%d)", b.X, b.Y, b.Z) }
