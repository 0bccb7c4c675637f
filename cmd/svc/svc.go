package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/akamensky/argparse"

	"github.com/jingyuanliang/echosvc/pkg/config"
	"github.com/jingyuanliang/echosvc/pkg/echo"
	"github.com/jingyuanliang/echosvc/pkg/logging"
	"github.com/jingyuanliang/echosvc/pkg/status"
	"github.com/jingyuanliang/echosvc/pkg/version"
)

type mainArgs struct {
	port    *int
	host    *string
	config  *string
	status  *string
	verbose *bool
	version *bool
}

func parseMainArgs() *mainArgs {
	var args mainArgs
	parser := argparse.NewParser("svc", "TCP echo server")

	args.port = parser.Int("p", "port", &argparse.Options{Default: -1, Help: "Port to listen on, 0 for an ephemeral port; overrides the config file (default 12345)"})
	args.host = parser.String("H", "host", &argparse.Options{Default: "", Help: "Host to bind, overrides the config file"})
	args.config = parser.String("c", "config", &argparse.Options{Default: "", Help: "Path to a YAML config file"})
	args.status = parser.String("s", "status", &argparse.Options{Default: "", Help: "Address for the HTTP status endpoint, overrides the config file"})
	args.verbose = parser.Flag("v", "verbose", &argparse.Options{Default: false, Help: "Log every connection"})
	args.version = parser.Flag("V", "version", &argparse.Options{Default: false, Help: "Show version and exit"})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Fprint(os.Stderr, parser.Usage(err))
		os.Exit(2)
	}
	return &args
}

func loadConfig(args *mainArgs) (config.Config, error) {
	cfg, err := config.Load(*args.config)
	if err != nil {
		return cfg, err
	}
	if *args.port >= 0 {
		cfg.Port = *args.port
	}
	if *args.host != "" {
		cfg.Host = *args.host
	}
	if *args.status != "" {
		cfg.StatusAddr = *args.status
	}
	if *args.verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func run(args *mainArgs) int {
	if *args.version {
		fmt.Printf("svc version %s\n", version.Version)
		return 0
	}

	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[err] %v\n", err)
		return 2
	}

	log, err := logging.New("svc", os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[err] %v\n", err)
		return 2
	}
	log.Infof("version: %s", version.Version)

	if cfg.GOMAXPROCS > 0 {
		runtime.GOMAXPROCS(cfg.GOMAXPROCS)
	}
	log.Infof("[procs] %d", runtime.GOMAXPROCS(0))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l, err := echo.Listen(ctx, cfg.Echo(), echo.WithObserver(logging.NewObserver(log)))
	if err != nil {
		return 1
	}
	log.Infof("[listen] %v", l.Addr())

	st := status.New(l)
	if cfg.StatusAddr != "" {
		if err := st.Start(cfg.StatusAddr); err != nil {
			log.Errorf("[err] status: %v", err)
			l.Close()
			return 1
		}
		log.Infof("[status] %v", st.Addr())
	}

	go logging.Report(ctx, log, time.Second, l.ConnectionCount)

	<-ctx.Done()
	log.Infof("[shutdown] %d open", l.ConnectionCount())

	if cfg.ShutdownTimeout == 0 {
		log.Infof("[shutdown] shutdown_timeout is 0, severing open connections")
	}
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := errors.Join(l.Shutdown(sctx), st.Shutdown(sctx)); err != nil {
		log.Warningf("[shutdown] %v", err)
	}
	log.Infof("[shutdown] done")
	return 0
}

func main() {
	os.Exit(run(parseMainArgs()))
}
