package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vearne/httpcap/api"
	"github.com/vearne/httpcap/biz"
	"github.com/vearne/httpcap/capture"
	"github.com/vearne/httpcap/config"
	"github.com/vearne/httpcap/consts"
	slog "github.com/vearne/simplelog"
)

const banner string = `
    __    __  __
   / /_  / /_/ /_____  _________ _____
  / __ \/ __/ __/ __ \/ ___/ __ '/ __ \
 / / / / /_/ /_/ /_/ / /__/ /_/ / /_/ /
/_/ /_/\__/\__/ .___/\___/\__,_/ .___/
             /_/              /_/
`

var (
	settings = config.NewAppSettings()
	version  bool
)

var rootCmd = &cobra.Command{
	Use:   "httpcap",
	Short: "Live HTTP request capture",
	Long: `httpcap captures packets on a network interface and publishes
the plain HTTP requests it recognises to its outputs.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	settings.BindFlags(rootCmd)
	rootCmd.Flags().BoolVar(&version, "version", false, "print version")
}

func main() {
	fmt.Print(banner)

	adjustLogLevel()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if version {
		fmt.Println("service: httpcap")
		fmt.Println("Version", consts.Version)
		fmt.Println("BuildTime", consts.BuildTime)
		fmt.Println("GitTag", consts.GitTag)
		return nil
	}
	if settings.Verbose {
		slog.SetLevel(slog.DebugLevel)
	}

	if err := settings.Validate(); err != nil {
		return err
	}
	printSettings(cmd)

	filterChain, err := biz.NewFilterChain(&settings)
	if err != nil {
		slog.Error("create FilterChain error:%v", err)
		return err
	}

	plugins, err := biz.NewPlugins(&settings)
	if err != nil {
		slog.Error("create plugins error:%v", err)
		return err
	}
	slog.Info("plugins:%v", plugins)

	emitter := biz.NewEmitter(1024)
	emitter.Start(plugins)

	opts := settings.CaptureOptions()
	if filterChain.Len() > 0 {
		opts.Filter = filterChain
	}
	if limiter := biz.NewRateLimit(&settings); limiter != nil {
		opts.Limiter = limiter
	}
	engine := capture.NewEngine(opts)
	engine.RegisterStatusChannel(emitter.StatusDestination())
	engine.RegisterRequestChannel(emitter.RequestDestination())

	// with an api server the hosting application decides when to capture
	var server *api.Server
	var workerDone <-chan struct{}
	if settings.HTTPAddr != "" {
		server = api.NewServer(settings.HTTPAddr, engine, settings.AllowedOrigins)
		server.Start()
	} else {
		if err := engine.Init(); err != nil {
			emitter.Close()
			return err
		}
		workerDone = engine.Done()
	}

	closeCh := make(chan struct{})
	if settings.ExitAfter > 0 {
		slog.Info("Running httpcap for a duration of %s", settings.ExitAfter)

		time.AfterFunc(settings.ExitAfter, func() {
			slog.Info("run timeout %s", settings.ExitAfter)
			close(closeCh)
		})
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
	exit := 0
	select {
	case sig := <-c:
		slog.Info("received signal %v", sig)
		exit = 1
	case <-closeCh:
	case <-workerDone:
		slog.Error("capture worker exited: %v", engine.Status().Message)
		exit = 1
	}

	engine.Stop()
	if engine.Initialized() {
		select {
		case <-engine.Done():
		case <-time.After(3 * time.Second):
			slog.Warn("capture worker still running, exit anyway")
		}
	}

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown api server: %v", err)
		}
		cancel()
	}
	emitter.Close()
	os.Exit(exit)
	return nil
}

func printSettings(cmd *cobra.Command) {
	var all []*pflag.Flag
	cmd.Flags().VisitAll(func(f *pflag.Flag) { all = append(all, f) })
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })

	for _, f := range all {
		value := f.Value.String()
		if f.Name == "output-kafka-password" && value != "" {
			value = "******"
		}
		slog.Info("%s, %v", f.Name, value)
	}
}

func adjustLogLevel() {
	logLevel := os.Getenv("SIMPLE_LOG_LEVEL")
	if len(logLevel) > 0 {
		return
	}
	slog.SetLevel(slog.InfoLevel)
}
