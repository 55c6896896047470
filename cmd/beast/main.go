// Command beast is the BEAST CLI: run a single program, evolve a
// population against an evaluator, serve the observability API, or attach
// a terminal dashboard to a running server.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/disdain-project/beast/api"
	"github.com/disdain-project/beast/asm"
	"github.com/disdain-project/beast/config"
	"github.com/disdain-project/beast/evaluator"
	"github.com/disdain-project/beast/generator"
	"github.com/disdain-project/beast/pipe"
	"github.com/disdain-project/beast/pipeline"
	"github.com/disdain-project/beast/tui"
	"github.com/disdain-project/beast/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(os.Args[2:])
	case "evolve":
		err = evolveCommand(os.Args[2:])
	case "serve":
		err = serveCommand(os.Args[2:])
	case "dashboard":
		err = dashboardCommand(os.Args[2:])
	case "-version", "--version", "version":
		fmt.Printf("beast %s (commit %s, built %s)\n", Version, Commit, Date)
		return
	case "-help", "--help", "help":
		printHelp()
		return
	default:
		fmt.Fprintf(os.Stderr, "beast: unknown command %q\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "beast: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`beast - evolve and run bytecode programs

Usage:
  beast run <program.basm|.bin>           assemble (or load) and execute once
  beast evolve -config beast.toml -generations N
                                           run a breed-and-score pipeline for N cycle quanta
  beast serve -config beast.toml          start the evolution pipeline and API server
  beast dashboard -addr ws://host:port/api/v1/ws
                                           attach a terminal dashboard to a running server
  beast version                           print version information
`)
}

// loadProgram assembles path if it ends in .basm, otherwise treats it as
// raw bytecode.
func loadProgram(path string) (vm.Program, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is an operator-supplied CLI argument
	if err != nil {
		return vm.Program{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".basm") {
		prog, err := asm.Assemble(string(data))
		if err != nil {
			return vm.Program{}, fmt.Errorf("assembling %s: %w", path, err)
		}
		return *prog, nil
	}
	return vm.NewProgram(data), nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to beast.toml (defaults to built-in defaults)")
	seed := fs.Uint64("seed", 1, "VmSession RNG seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: beast run [-config path] [-seed n] <program.basm|.bin>")
	}

	cfg, err := loadConfigOrDefault(*cfgPath)
	if err != nil {
		return err
	}

	prog, err := loadProgram(fs.Arg(0))
	if err != nil {
		return err
	}

	session := vm.NewVmSession(prog, cfg.VM.VariableCount, cfg.VM.StringTableCount, cfg.VM.MaxStringSize, *seed)
	code := session.Run()

	fmt.Print(session.GetPrintBuffer())
	fmt.Printf("return code: %d\n", code)
	fmt.Printf("instructions executed: %d\n", session.InstructionCount())
	return nil
}

func evolveCommand(args []string) error {
	fs := flag.NewFlagSet("evolve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to beast.toml")
	generations := fs.Int("generations", 100, "number of cycle quanta (cycle_quantum_ms each) to let the pipeline run")
	seed := fs.Uint64("seed", 1, "RNG seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfigOrDefault(*cfgPath)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0xa5a5a5a5))
	scorer := evaluator.RuntimeStatisticsEvaluator{
		DynNoopWeight:  cfg.Evaluator.DynNoopWeight,
		StatNoopWeight: cfg.Evaluator.StatNoopWeight,
		PrgExecWeight:  cfg.Evaluator.PrgExecWeight,
	}
	newSession := func(program []byte) *vm.VmSession {
		return vm.NewVmSession(vm.NewProgram(program), cfg.VM.VariableCount, cfg.VM.StringTableCount, cfg.VM.MaxStringSize, *seed)
	}

	source := generator.NewSourcePipe(rng, generator.RandomOptions{
		VariableCount:    cfg.VM.VariableCount,
		InstructionCount: 20,
		ConstantRange:    100,
	}, cfg.Pipeline.PopulationSize)
	evolution := pipe.NewEvolutionPipe(cfg.Pipeline.PopulationSize, scorer, newSession, cfg.Pipeline.MutationRate, 3, rng)
	sink := pipe.NewSinkPipe(scorer, newSession)

	pl := pipeline.New(nil)
	if err := pl.AddPipe("source", source); err != nil {
		return err
	}
	if err := pl.AddPipe("evolution", evolution); err != nil {
		return err
	}
	if err := pl.AddPipe("sink", sink); err != nil {
		return err
	}
	if err := pl.ConnectPipes("source", 0, "evolution", 0, cfg.Pipeline.BufferSize); err != nil {
		return err
	}
	if err := pl.ConnectPipes("evolution", 0, "sink", 0, cfg.Pipeline.BufferSize); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := pl.Start(ctx); err != nil {
		return err
	}

	quantum := time.Duration(cfg.Pipeline.CycleQuantumMs) * time.Millisecond
	for i := 0; i < *generations; i++ {
		time.Sleep(quantum)
	}
	_ = pl.Stop()

	program, score, ok := sink.Best()
	if !ok {
		fmt.Println("no candidate scored before the run ended")
		return nil
	}
	fmt.Printf("best score: %.4f\n\n", score)
	best := vm.NewProgram(program)
	fmt.Print(asm.Disassemble(&best))
	return nil
}

func serveCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to beast.toml")
	port := fs.Int("port", 0, "override the configured API port")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfigOrDefault(*cfgPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.API.Port = *port
	}

	server := api.NewServer(cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var shutdownOnce sync.Once
	performShutdown := func() {
		shutdownOnce.Do(func() {
			fmt.Println("\nShutting down beast serve...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "error during shutdown: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("beast serve stopped")
		})
	}

	monitor := api.NewProcessMonitor(performShutdown)
	monitor.Start()
	defer monitor.Stop()

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "api server error: %v\n", err)
			os.Exit(1)
		}
	}()

	fmt.Printf("beast serve listening on :%d\n", cfg.API.Port)
	<-sigChan
	performShutdown()
	return nil
}

func dashboardCommand(args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	addr := fs.String("addr", "ws://127.0.0.1:8089/api/v1/ws", "websocket URL of a running beast serve instance")
	if err := fs.Parse(args); err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", *addr, err)
	}
	defer conn.Close()

	dash := tui.NewDashboard()

	go func() {
		for {
			var event struct {
				Type     string                 `json:"type"`
				PipeName string                 `json:"pipeName"`
				Data     map[string]interface{} `json:"data"`
			}
			if err := conn.ReadJSON(&event); err != nil {
				dash.Stop()
				return
			}
			switch event.Type {
			case "cycle":
				saturated, _ := event.Data["saturated"].(bool)
				dash.PipeCycle(event.PipeName, saturated)
			case "best":
				score, _ := event.Data["score"].(float64)
				dash.BestScore(event.PipeName, score)
			}
		}
	}()

	return dash.Run()
}

func loadConfigOrDefault(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.GetConfigPath()); err == nil {
			return config.Load()
		}
		return config.DefaultConfig(), nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return config.LoadFrom(abs)
}
