// Package profilers implement helper functions to set up profiling of the trainer.
//
// If linked, it will install the profiler flags: -prof (HTTP pprof server port), -cpu_profile and
// -mem_profile (files).
package profilers

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagProfiler   = flag.Int("prof", -1, "If set, runs the profile at the given port.")
	flagCPUProfile = flag.String("cpu_profile", "", "write cpu profile to `file`")
	flagMemProfile = flag.String("mem_profile", "", "write heap profile to `file` at the end of the program")
	profilerAddr   string

	// globalCtx is set on the call to Setup.
	globalCtx context.Context

	// cpuProfileFile is open while CPU profiling.
	cpuProfileFile *os.File
)

// Setup starts the HTTP (flag -prof) and CPU profilers (flag -cpu_profile), if they were configured.
// You should follow with a deferred call to OnQuit.
func Setup(ctx context.Context) error {
	globalCtx = ctx
	if *flagProfiler >= 0 {
		setupHTTPProfiler()
	}
	if *flagCPUProfile != "" {
		if err := startCPUProfile(*flagCPUProfile); err != nil {
			return err
		}
	}
	return nil
}

// OnQuit should be called before the exit of the main() function, typically this is setup as a deferred call
// just after Setup.
func OnQuit() {
	if cpuProfileFile != nil {
		pprof.StopCPUProfile()
		if err := cpuProfileFile.Close(); err != nil {
			klog.Errorf("Failed to close CPU profile: %+v", err)
		}
		cpuProfileFile = nil
	}
	if *flagMemProfile != "" {
		if err := writeHeapProfile(*flagMemProfile); err != nil {
			klog.Errorf("%+v", err)
		}
	}
	if *flagProfiler >= 0 {
		httpProfilerOnQuit()
	}
}

// startCPUProfile creates the file at path and starts the CPU profiling there.
func startCPUProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "could not create CPU profile")
	}
	if err = pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "could not start CPU profile")
	}
	cpuProfileFile = f
	return nil
}

// writeHeapProfile after a garbage collection, so it reflects the memory still in use.
func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "could not create heap profile")
	}
	runtime.GC()
	if err = pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "could not write heap profile")
	}
	return errors.Wrap(f.Close(), "could not close heap profile")
}

// setupHTTPProfiler starts the profiler in the background.
func setupHTTPProfiler() {
	profilerAddr = fmt.Sprintf("localhost:%d", *flagProfiler)
	fmt.Printf("Starting profiler on %s/debug/pprof\n", profilerAddr)
	fmt.Printf("- You can access it with: $ go tool pprof %s/debug/pprof/heap\n", profilerAddr)
	fmt.Printf("- Program will be kept alive on end, you will have to interrupt it (Ctrl+C) to exit\n")
	go func() {
		klog.Fatal(http.ListenAndServe(profilerAddr, nil))
	}()
}

// httpProfilerOnQuit keeps the program alive until interrupted, so the profile can still be read.
func httpProfilerOnQuit() {
	if globalCtx.Err() != nil {
		// Already interrupted.
		return
	}
	fmt.Printf("- Program finished: kept alive with profiler opened at %s/debug/pprof\n", profilerAddr)
	fmt.Printf("- Interrupt (Ctrl+C) to exit\n")
	<-globalCtx.Done()
	fmt.Printf("... exiting ...\n")
}
