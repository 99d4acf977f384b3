// Command kernelsim boots a two-core kernel and runs two demonstration
// scenarios: weighted-round-robin scheduling between two priorities, and
// a cross-core exclusive-section rendezvous. It exists to give the
// scheduler and exclusive-section code a runnable harness outside of
// tests, the way aktau-perflock's cmd/perflock is a runnable harness for
// its own library code.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"

	kernel "github.com/SARP-UW/titan-sub004"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (optional)")
	flag.Parse()

	cfg := kernel.DefaultConfig()
	if *configPath != "" {
		loaded, err := kernel.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "kernelsim:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	kernel.SetLogger(kernel.NewDefaultLogger(logiface.LevelDebug))

	k := kernel.NewWithConfig(cfg)
	defer k.Close()

	runPriorityScenario(k)
	runExclusiveScenario(k)
}

// runPriorityScenario demonstrates weighted priority scheduling: two READY threads at
// priorities 1 and 3 on the same core should win scheduling turns in
// roughly a 1:3 ratio over many reschedules.
func runPriorityScenario(k *kernel.Kernel) {
	var lowRuns, highRuns, total atomic.Int64
	const iterations = 300

	spin := func(counter *atomic.Int64) func(arg any) {
		return func(arg any) {
			for total.Load() < iterations {
				counter.Add(1)
				total.Add(1)
				k.Yield()
			}
			k.Exit()
		}
	}

	low, err := k.Create(kernel.Primary, spin(&lowRuns), nil, 512, 1)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kernelsim: create low-priority thread:", err)
		return
	}
	high, err := k.Create(kernel.Primary, spin(&highRuns), nil, 512, 3)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kernelsim: create high-priority thread:", err)
		return
	}

	waitStopped(k, low, 5*time.Second)
	waitStopped(k, high, 5*time.Second)

	fmt.Printf("priority scenario: low=%d high=%d ratio=%.2f\n",
		lowRuns.Load(), highRuns.Load(), float64(highRuns.Load())/float64(lowRuns.Load()))

	_ = k.Destroy(low)
	_ = k.Destroy(high)
}

// waitStopped polls h's scheduling state until it reaches ThreadStopped or
// timeout elapses. Exit never returns control to its entry function, so
// nothing can signal completion by simply returning — this is the same
// polling technique scheduler_test.go's waitForState helper uses.
func waitStopped(k *kernel.Kernel, h kernel.Handle, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		st, err := k.GetState(h)
		if err != nil {
			return false
		}
		if st == kernel.ThreadStopped {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// runExclusiveScenario demonstrates the cross-core rendezvous: one thread per core
// enters the exclusive section and then exits it, reporting any error
// either step returns.
func runExclusiveScenario(k *kernel.Kernel) {
	enterExit := func(arg any) {
		if err := k.ExclusiveEnter(); err != nil {
			fmt.Fprintln(os.Stderr, "kernelsim: exclusive enter:", err)
		} else if err := k.ExclusiveExit(); err != nil {
			fmt.Fprintln(os.Stderr, "kernelsim: exclusive exit:", err)
		}
		k.Exit()
	}

	primary, err := k.Create(kernel.Primary, enterExit, nil, 512, 1)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kernelsim: create primary exclusive thread:", err)
		return
	}
	secondary, err := k.Create(kernel.Secondary, enterExit, nil, 512, 1)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kernelsim: create secondary exclusive thread:", err)
		return
	}

	waitStopped(k, primary, 5*time.Second)
	waitStopped(k, secondary, 5*time.Second)
	fmt.Println("exclusive scenario: both cores completed rendezvous")
}
