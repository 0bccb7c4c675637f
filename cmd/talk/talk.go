package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akamensky/argparse"

	"github.com/jingyuanliang/echosvc/pkg/logging"
	"github.com/jingyuanliang/echosvc/pkg/talk"
	"github.com/jingyuanliang/echosvc/pkg/version"
)

type mainArgs struct {
	addr     *string
	conns    *int
	parallel *int
	message  *string
	interval *string
	deadline *string
	steady   *string
	verbose  *bool
	version  *bool
}

func parseMainArgs() *mainArgs {
	var args mainArgs
	parser := argparse.NewParser("talk", "Opens many connections to an echo server and checks every reply")

	args.addr = parser.String("a", "addr", &argparse.Options{Default: "127.0.0.1:12345", Help: "Echo server address"})
	args.conns = parser.Int("n", "conns", &argparse.Options{Default: 100, Help: "Number of connections"})
	args.parallel = parser.Int("P", "parallel", &argparse.Options{Default: 16, Help: "Concurrent dials"})
	args.message = parser.String("m", "message", &argparse.Options{Default: "x", Help: "Payload sent on every round trip"})
	args.interval = parser.String("i", "interval", &argparse.Options{Default: "1s", Help: "Time between round trips"})
	args.deadline = parser.String("d", "deadline", &argparse.Options{Default: "10s", Help: "Read and write deadline"})
	args.steady = parser.String("t", "steady", &argparse.Options{Default: "10s", Help: "Stop once the connection count has not grown for this long"})
	args.verbose = parser.Flag("v", "verbose", &argparse.Options{Default: false, Help: "Verbose logging"})
	args.version = parser.Flag("V", "version", &argparse.Options{Default: false, Help: "Show version and exit"})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Fprint(os.Stderr, parser.Usage(err))
		os.Exit(2)
	}
	return &args
}

func durations(args *mainArgs) (interval, deadline, steady time.Duration, err error) {
	if interval, err = time.ParseDuration(*args.interval); err != nil {
		return
	}
	if deadline, err = time.ParseDuration(*args.deadline); err != nil {
		return
	}
	steady, err = time.ParseDuration(*args.steady)
	return
}

func run(args *mainArgs) int {
	if *args.version {
		fmt.Printf("talk version %s\n", version.Version)
		return 0
	}

	level := "info"
	if *args.verbose {
		level = "debug"
	}
	log, err := logging.New("talk", os.Stderr, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[err] %v\n", err)
		return 2
	}
	log.Infof("version: %s", version.Version)

	interval, deadline, steady, err := durations(args)
	if err != nil {
		log.Errorf("[args] %v", err)
		return 2
	}

	tk, err := talk.New(talk.Config{
		Addr:     *args.addr,
		Conns:    *args.conns,
		Parallel: *args.parallel,
		Message:  []byte(*args.message),
		Interval: interval,
		Deadline: deadline,
	}, log)
	if err != nil {
		log.Errorf("[args] %v", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		tk.Run(ctx)
	}()

	talk.Steady(ctx, log, time.Second, steady, tk.Live)
	cancel()
	<-done

	r := tk.Report()
	log.Infof("[complete] top-conn %d, echoed %d, errors %d, mismatches %d", r.Top, r.Echoed, r.Errors, r.Mismatches)
	if r.Errors > 0 || r.Mismatches > 0 {
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(parseMainArgs()))
}
