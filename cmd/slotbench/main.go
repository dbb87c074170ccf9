package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/hupe1980/slotarena"
	"github.com/hupe1980/slotarena/bench"
)

// printObservations prints observations for manual inspection
func printObservations(w io.Writer, obs []bench.Observation) {
	for _, o := range obs {
		for _, kv := range o.Values.Pairs() {
			fmt.Fprintf(w, "%s=%v ", kv.Key, kv.Val)
		}
		fmt.Fprintf(w, "| ")
		for _, kv := range o.Config.Pairs() {
			fmt.Fprintf(w, "%s=%v ", kv.Key, kv.Val)
		}
		fmt.Fprintf(w, "\n")
	}
}

// printSummary prints the per-variant min/avg/max table.
func printSummary(w io.Writer, sums []bench.Summary) {
	fmt.Fprintf(w, "%-14s %-6s %5s %12s %12s %12s %14s %12s\n",
		"VARIANT", "PHASE", "RUNS", "MIN", "AVG", "MAX", "OPS/SEC", "RETRIES")
	for _, s := range sums {
		fmt.Fprintf(w, "%-14s %-6s %5d %12v %12v %12v %14.0f %12.0f\n",
			s.Variant, s.Phase, s.Runs,
			time.Duration(s.MinNanos).Round(time.Microsecond),
			time.Duration(s.AvgNanos).Round(time.Microsecond),
			time.Duration(s.MaxNanos).Round(time.Microsecond),
			s.OpsPerSec, s.CASRetries)
	}
}

var suiteFlags = []cli.Flag{
	&cli.IntFlag{
		Name:  "capacity",
		Value: 200 << 20,
		Usage: "arena capacity in bytes",
	},
	&cli.IntFlag{
		Name:  "slot-size",
		Value: 4096,
		Usage: "slot size in bytes",
	},
	&cli.IntFlag{
		Name:  "threads",
		Value: 0,
		Usage: "worker goroutines (0 = GOMAXPROCS)",
	},
	&cli.IntFlag{
		Name:  "iters",
		Value: 10,
		Usage: "number of iterations to run each configuration",
	},
	&cli.StringSliceFlag{
		Name:  "variants",
		Usage: "bitmap variants to benchmark (default: all)",
	},
	&cli.BoolFlag{
		Name:  "randomize",
		Value: true,
		Usage: "randomize order of running benchmarks",
	},
	&cli.StringFlag{
		Name:  "out",
		Value: "",
		Usage: "file to output to (use .gz extension for compression)",
	},
	&cli.BoolFlag{
		Name:  "quiet",
		Usage: "disable the progress bar",
	},
}

// writeObservations saves observations in JSON (possibly compressed) to a file
func writeObservations(outFile string, obs []bench.Observation) error {
	var out io.WriteCloser
	out, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("could not create output file %s: %v",
			outFile, err)
	}
	if strings.HasSuffix(outFile, ".gz") {
		out = gzip.NewWriter(out)
	}
	err = bench.WriteObservations(out, obs)
	if err != nil {
		return fmt.Errorf("could not write output: %v", err)
	}
	err = out.Close()
	return err
}

// outputObservations outputs based on flags
func outputObservations(c *cli.Context, obs []bench.Observation) error {
	outFile := c.String("out")
	if outFile == "" {
		printObservations(os.Stdout, obs)
		return nil
	}
	return writeObservations(outFile, obs)
}

func parseVariants(c *cli.Context) ([]slotarena.Variant, error) {
	names := c.StringSlice("variants")
	if len(names) == 0 {
		return nil, nil
	}
	var vs []slotarena.Variant
	for _, name := range names {
		v, err := slotarena.ParseVariant(name)
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	return vs, nil
}

func initializeSuite(c *cli.Context) (*bench.Suite, error) {
	variants, err := parseVariants(c)
	if err != nil {
		return nil, err
	}
	return &bench.Suite{
		Capacity:  c.Int("capacity"),
		SlotSize:  c.Int("slot-size"),
		Threads:   c.Int("threads"),
		Iters:     c.Int("iters"),
		Variants:  variants,
		Randomize: c.Bool("randomize"),
	}, nil
}

// runSuite executes the suite with a progress bar and prints the summary.
func runSuite(c *cli.Context, suite *bench.Suite) error {
	if !c.Bool("quiet") {
		bar := progressbar.Default(int64(suite.NumWorkloads()), "workloads")
		suite.Progress = func() { _ = bar.Add(1) }
	}

	obs, err := suite.Run(c.Context)
	if err != nil {
		return err
	}

	if err := outputObservations(c, obs); err != nil {
		return err
	}
	printSummary(os.Stdout, bench.Summarize(obs))
	return nil
}

var benchCommand = &cli.Command{
	Name:  "bench",
	Usage: "race goroutines allocating until the arena is exhausted",
	Flags: []cli.Flag{&cli.IntFlag{
		Name:  "attempts",
		Usage: "allocation attempts per goroutine (0 = enough to cover all slots)",
	}},
	Action: func(c *cli.Context) error {
		suite, err := initializeSuite(c)
		if err != nil {
			return err
		}
		suite.Phases = []string{"fill"}
		suite.Attempts = c.Int("attempts")
		return runSuite(c, suite)
	},
}

var churnCommand = &cli.Command{
	Name:  "churn",
	Usage: "measure steady-state allocate/free pairs at half occupancy",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "ops",
			Value: 10000,
			Usage: "allocate/free pairs per goroutine",
		},
		&cli.Float64Flag{
			Name:  "rate",
			Usage: "limit operations per second (0 = unlimited)",
		},
		&cli.StringFlag{
			Name:  "trace",
			Usage: "file to write occupancy snapshots to",
		},
		&cli.StringFlag{
			Name:  "trace-compression",
			Value: "zstd",
			Usage: "trace block compression: none, lz4, or zstd",
		},
		&cli.DurationFlag{
			Name:  "trace-interval",
			Value: 50 * time.Millisecond,
			Usage: "time between occupancy snapshots",
		},
	},
	Action: func(c *cli.Context) error {
		suite, err := initializeSuite(c)
		if err != nil {
			return err
		}
		suite.Phases = []string{"churn"}
		suite.Ops = c.Int("ops")
		suite.Rate = rate.Limit(c.Float64("rate"))

		if traceFile := c.String("trace"); traceFile != "" {
			compression, err := bench.ParseCompression(c.String("trace-compression"))
			if err != nil {
				return err
			}
			f, err := os.Create(traceFile)
			if err != nil {
				return fmt.Errorf("could not create trace file %s: %v",
					traceFile, err)
			}
			tw := bench.NewTraceWriter(f, compression)
			suite.Trace = tw
			suite.TraceInterval = c.Duration("trace-interval")

			if err := runSuite(c, suite); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("trace: %d snapshots, %d bytes (%s)\n",
				tw.Snapshots(), tw.BytesWritten(), compression)
			return nil
		}
		return runSuite(c, suite)
	},
}

func main() {
	app := &cli.App{
		Name:  "slotbench",
		Usage: "benchmark slot arena bitmap variants",
		Flags: suiteFlags,
		Commands: []*cli.Command{
			benchCommand,
			churnCommand,
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
