// accelinfo lists the registered backends and, for the selected backend,
// its devices and their memory.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/accelkit/accelgo/accel"
	"github.com/accelkit/accelgo/driver"
	_ "github.com/accelkit/accelgo/driver/cpu"
)

func main() {
	klog.InitFlags(nil)
	app := &cli.App{
		Name:  "accelinfo",
		Usage: "inspect accelgo backends and devices",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "backend to inspect",
				EnvVars: []string{accel.BackendEnvVar},
				Value:   "cpu",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "accelinfo: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	fmt.Printf("Registered backends: %v\n", driver.Names())

	platform, err := accel.GetPlatform(c.String("backend"))
	if err != nil {
		return err
	}
	devices, err := platform.Devices()
	if err != nil {
		return err
	}
	fmt.Printf("Backend %q: %d device(s)\n", platform.Name(), len(devices))

	for _, device := range devices {
		name, err := device.Name()
		if err != nil {
			return err
		}
		totalMem, err := device.TotalMem()
		if err != nil {
			return err
		}
		fmt.Printf("  #%d %s, %.1f GiB\n", device.ID(), name, float64(totalMem)/(1<<30))

		ctx, err := device.NewContext()
		if err != nil {
			return err
		}
		free, total, err := ctx.MemoryInfo()
		if cerr := ctx.Destroy(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		fmt.Printf("     memory: %.1f GiB free of %.1f GiB\n",
			float64(free)/(1<<30), float64(total)/(1<<30))
	}
	return nil
}
