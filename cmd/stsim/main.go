// stsim CLI - brings up a simulated device and runs compiled programs on it
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tliron/commonlog"

	"github.com/plcsim/stcore/manifest"
	"github.com/plcsim/stcore/pkg/ast"
	"github.com/plcsim/stcore/pkg/interp"
	"github.com/plcsim/stcore/pkg/ir"
	"github.com/plcsim/stcore/pkg/schema"
	"github.com/plcsim/stcore/pkg/state"
	"github.com/plcsim/stcore/pkg/symstore"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("stsim")

// bindList collects repeated -bind NAME=ADDRESS flags.
type bindList map[string]string

func (b bindList) String() string {
	parts := make([]string, 0, len(b))
	for k, v := range b {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (b bindList) Set(s string) error {
	name, addr, ok := strings.Cut(s, "=")
	if !ok || name == "" || addr == "" {
		return fmt.Errorf("expected NAME=ADDRESS, got %q", s)
	}
	b[name] = addr
	return nil
}

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	runFile := flag.String("run", "", "Parse-tree JSON file to build and execute")
	scans := flag.Int("scans", 1, "Number of scan cycles to execute (used with -run)")
	trace := flag.Bool("trace", false, "Print one line per assignment effect")
	snapshot := flag.Bool("snapshot", false, "Print a JSON snapshot of device memory after execution")
	saveImage := flag.String("save", "", "Write a device image to the given file after execution")
	loadImage := flag.String("load", "", "Restore a device image from the given file before execution")
	bindings := bindList{}
	flag.Var(bindings, "bind", "Bind a program variable to an address, NAME=ADDRESS (repeatable)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: stsim [options] [dir]\n\n")
		fmt.Fprintf(os.Stderr, "Loads device.toml from dir (or the nearest ancestor of the working\n")
		fmt.Fprintf(os.Stderr, "directory) and brings up the device it describes.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  stsim ./rig -snapshot                          # Bring up and dump memory\n")
		fmt.Fprintf(os.Stderr, "  stsim ./rig -run blink.json -bind out=Q0.0     # One scan of blink.json\n")
		fmt.Fprintf(os.Stderr, "  stsim ./rig -run ramp.json -scans 10 -trace    # Ten scans with effects\n")
		fmt.Fprintf(os.Stderr, "  stsim ./rig -load before.img -save after.img   # Image round trip\n")
	}
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	dir := "."
	if flag.NArg() > 0 {
		dir = flag.Arg(0)
	}

	dev, mf, err := bringUp(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Infof("device %q up: I=%d Q=%d M=%d bytes", mf.Device.Name,
		mf.Memory.Inputs, mf.Memory.Outputs, mf.Memory.Flags)

	if *loadImage != "" {
		if err := restoreImage(dev, *loadImage); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *runFile != "" {
		opts := interp.Options{
			MaxLoopIterations: mf.Execution.MaxLoopIterations,
			Trace:             *trace || mf.Execution.Trace,
			Bindings:          make(map[string]interp.Binding, len(bindings)),
			TruncateStrings:   true,
		}
		for name, addr := range bindings {
			opts.Bindings[name] = interp.Bind(addr)
		}
		if err := runProgram(dev, *runFile, *scans, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *saveImage != "" {
		if err := persistImage(dev, *saveImage); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *snapshot {
		out, err := json.MarshalIndent(dev.Snapshot(), "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	}
}

// bringUp loads the manifest, the schema it names, and builds the device.
func bringUp(dir string) (*state.Device, *manifest.Manifest, error) {
	mf, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, nil, err
	}

	var store *symstore.Store
	if path := mf.SchemaPath(); path != "" {
		reg, declared, err := schema.LoadFile(path)
		if err != nil {
			return nil, nil, err
		}
		instances := declared
		for _, inst := range mf.Instances {
			instances = append(instances, schema.InstanceBinding{Name: inst.Name, Type: inst.Type})
		}
		store, err = symstore.New(reg, instances)
		if err != nil {
			return nil, nil, err
		}
	}

	order, err := mf.Memory.Order()
	if err != nil {
		return nil, nil, err
	}
	cfg := state.Config{
		InputSize:  mf.Memory.Inputs,
		OutputSize: mf.Memory.Outputs,
		FlagSize:   mf.Memory.Flags,
		ByteOrder:  order,
	}
	return state.NewDevice(cfg, store), mf, nil
}

// runProgram builds the IR from a parse-tree JSON file and executes it for
// the requested number of scans, printing trace effects as they arrive.
func runProgram(dev *state.Device, path string, scans int, opts interp.Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	var root ast.Node
	if err := json.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("parse error in %s: %w", path, err)
	}
	prog, err := ir.Build(&root)
	if err != nil {
		return err
	}
	log.Infof("built %q: %d variables, %d statements",
		prog.Name, len(prog.Variables), len(prog.Body))

	for i := 0; i < scans; i++ {
		result, err := interp.Run(prog, dev, opts)
		if err != nil {
			return fmt.Errorf("scan %d: %w", i+1, err)
		}
		for _, eff := range result.Trace {
			fmt.Printf("scan %d  %s := %s\n", i+1, eff.Target, eff.Value.String())
		}
	}
	return nil
}

func restoreImage(dev *state.Device, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open image %s: %w", path, err)
	}
	defer f.Close()
	if err := dev.ReadImage(f); err != nil {
		return fmt.Errorf("restore %s: %w", path, err)
	}
	log.Infof("restored image %s", path)
	return nil
}

func persistImage(dev *state.Device, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create image %s: %w", path, err)
	}
	defer f.Close()
	if err := dev.WriteImage(f); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	log.Infof("saved image %s", path)
	return nil
}
