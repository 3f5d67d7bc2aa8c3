// Copyright 2025 Alexandre Mahdhaoui
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/alexandremahdhaoui/bootprobe/internal/util/logging"
	"github.com/alexandremahdhaoui/bootprobe/pkg/boottest"
	"github.com/alexandremahdhaoui/bootprobe/pkg/seed"
)

const (
	defaultSuitePath    = "test/scenarios/boot.yaml"
	defaultWorkloadsDir = "workloads"
	defaultResourcesDir = "resources/cloud-init"
)

// Exit codes
const (
	exitSuccess = 0 // All scenarios passed
	exitError   = 1 // Invalid arguments or execution error
	exitFailed  = 2 // One or more scenarios failed
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitError)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		os.Exit(cmdRun(args))

	case "list-scenarios":
		if err := cmdListScenarios(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitError)
		}
		os.Exit(exitSuccess)

	case "init-resources":
		if err := cmdInitResources(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitError)
		}
		os.Exit(exitSuccess)

	case "-h", "--help", "help":
		printUsage()
		os.Exit(exitSuccess)

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(exitError)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: bootprobe [command] [options]

Commands:
  run [--suite <path>] [--firmware <path>] [--parallel N]
      Run the boot-test scenarios of a suite file

  list-scenarios [--suite <path>]
      List the scenarios of a suite file

  init-resources [--resources <dir>]
      Materialize the built-in cloud-init templates

  help
      Show this help message

Run options:
  --suite string          Scenario suite file (default: %s)
  --workloads string      Directory holding reference OS images (default: %s)
  --resources string      Cloud-init template directory (default: %s)
  --firmware string       Firmware binary under test
  --only string           Run only the scenario with this name
  --parallel int          Scenarios to run concurrently (default: 1)
  --boot-delay duration   Settling time before the first probe (default: 20s)
  --probe-attempts uint   Readiness probe budget (default: 6)
  --probe-backoff duration  Linear backoff base between probes (default: 10s)
  --metrics-addr string   Expose Prometheus metrics on this address
  --dev                   Human-readable debug logging

Environment Variables:
  BOOTPROBE_SUITE      Override the suite file path
  BOOTPROBE_WORKLOADS  Override the workloads directory
  BOOTPROBE_FIRMWARE   Override the firmware path

Exit Codes:
  0  All scenarios passed
  1  Error (invalid arguments, suite not found, ...)
  2  One or more scenarios failed
`, defaultSuitePath, defaultWorkloadsDir, defaultResourcesDir)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// cmdRun executes every scenario of a suite.
func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	suitePath := fs.String("suite", envOr("BOOTPROBE_SUITE", defaultSuitePath), "scenario suite file")
	workloadsDir := fs.String("workloads", envOr("BOOTPROBE_WORKLOADS", defaultWorkloadsDir), "reference image directory")
	resourcesDir := fs.String("resources", defaultResourcesDir, "cloud-init template directory")
	firmware := fs.String("firmware", os.Getenv("BOOTPROBE_FIRMWARE"), "firmware binary under test")
	only := fs.String("only", "", "run only the named scenario")
	parallel := fs.Int("parallel", 1, "scenarios to run concurrently")
	bootDelay := fs.Duration("boot-delay", boottest.DefaultBootDelay, "settling time before first probe")
	probeAttempts := fs.Uint("probe-attempts", boottest.DefaultProbeAttempts, "readiness probe budget")
	probeBackoff := fs.Duration("probe-backoff", boottest.DefaultProbeBackoff, "linear backoff base")
	metricsAddr := fs.String("metrics-addr", "", "prometheus metrics listen address")
	dev := fs.Bool("dev", false, "human-readable debug logging")
	_ = fs.Parse(args) // Error is handled by flag.ExitOnError

	if *dev {
		logging.SetupDevelopment()
	} else {
		logging.SetupDefault()
	}

	suite, err := boottest.LoadSuite(*suitePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	scenarios := suite.Scenarios
	if *only != "" {
		scenarios = nil
		for _, sc := range suite.Scenarios {
			if sc.Name == *only {
				scenarios = append(scenarios, sc)
			}
		}
		if len(scenarios) == 0 {
			fmt.Fprintf(os.Stderr, "Error: no scenario named %q in %s\n", *only, *suitePath)
			return exitError
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		serveMetrics(*metricsAddr)
	}

	harness := boottest.New(boottest.Config{
		WorkloadsDir:  *workloadsDir,
		ResourcesDir:  *resourcesDir,
		FirmwarePath:  *firmware,
		BootDelay:     *bootDelay,
		ProbeAttempts: *probeAttempts,
		ProbeBackoff:  *probeBackoff,
	})

	var (
		mu      sync.Mutex
		reports []boottest.Report
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*parallel)
	for _, sc := range scenarios {
		g.Go(func() error {
			rep := harness.Run(gctx, sc)
			mu.Lock()
			reports = append(reports, rep)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, rep := range reports {
		fmt.Println(rep.String())
		if !rep.Passed() {
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d scenarios failed\n", failed, len(reports))
		return exitFailed
	}
	return exitSuccess
}

// cmdListScenarios prints the scenarios of a suite file.
func cmdListScenarios(args []string) error {
	fs := flag.NewFlagSet("list-scenarios", flag.ExitOnError)
	suitePath := fs.String("suite", envOr("BOOTPROBE_SUITE", defaultSuitePath), "scenario suite file")
	_ = fs.Parse(args)

	suite, err := boottest.LoadSuite(*suitePath)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tIMAGE\tDISTRO\tVMM")
	for _, sc := range suite.Scenarios {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", sc.Name, sc.Image, sc.Distro, sc.VMM)
	}
	return w.Flush()
}

// cmdInitResources materializes the built-in cloud-init templates.
func cmdInitResources(args []string) error {
	fs := flag.NewFlagSet("init-resources", flag.ExitOnError)
	resourcesDir := fs.String("resources", defaultResourcesDir, "cloud-init template directory")
	_ = fs.Parse(args)

	if err := seed.WriteDefaultTemplates(*resourcesDir); err != nil {
		return err
	}
	fmt.Printf("templates written to %s\n", *resourcesDir)
	return nil
}

// serveMetrics exposes the Prometheus registry in the background. A
// failure to listen is logged, not fatal: metrics are best-effort.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server stopped", "addr", addr, "err", err.Error())
		}
	}()
}
