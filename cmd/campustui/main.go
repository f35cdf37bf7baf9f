package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matheus3301/campus/internal/appstate"
	"github.com/matheus3301/campus/internal/bus"
	"github.com/matheus3301/campus/internal/chat"
	"github.com/matheus3301/campus/internal/client"
	"github.com/matheus3301/campus/internal/config"
	"github.com/matheus3301/campus/internal/domain"
	"github.com/matheus3301/campus/internal/instance"
	"github.com/matheus3301/campus/internal/logging"
	"github.com/matheus3301/campus/internal/notify"
	"github.com/matheus3301/campus/internal/tui"
)

func main() {
	instituteFlag := flag.String("institute", "", "institute name (overrides config default)")
	asFlag := flag.String("as", "", "sign in as role:id (overrides the [identity] config)")
	noStart := flag.Bool("no-start", false, "do not start campusd when it is not running")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	cfg, err := config.Resolve(instance.ConfigPath(), instance.EnvFilePath())
	if err != nil {
		fatal(err)
	}

	institute, err := instance.Select(*instituteFlag, cfg)
	if err != nil {
		fatal(err)
	}
	if err := instance.EnsureDir(institute); err != nil {
		fatal(err)
	}

	var me domain.Identity
	if *asFlag != "" {
		me, err = domain.ParseIdentity(*asFlag)
	} else {
		me, err = cfg.SignedIn()
	}
	if err != nil {
		fatal(fmt.Errorf("%w (set [identity] in %s or pass --as role:id)", err, instance.ConfigPath()))
	}

	level := zapcore.InfoLevel
	if *debug {
		level = zapcore.DebugLevel
	}
	logger, err := logging.NewFileOnly(instance.TUILogPath(institute), institute, level)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	socketPath := instance.SocketPath(institute)
	if !probeDaemon(socketPath) {
		if *noStart {
			fatal(fmt.Errorf("campusd is not running for institute %q", institute))
		}
		fmt.Fprintf(os.Stderr, "campusd not running for institute %q, starting...\n", institute)
		if err := startDaemon(institute); err != nil {
			fatal(fmt.Errorf("start campusd: %w", err))
		}
		if !waitForDaemon(socketPath, 10*time.Second) {
			fatal(fmt.Errorf("campusd did not become ready, see %s", instance.DaemonLogPath(institute)))
		}
	}

	events := bus.New()
	defer events.Close()

	c, err := client.New(socketPath, events, logger)
	if err != nil {
		fatal(fmt.Errorf("connect to campusd: %w", err))
	}
	defer func() { _ = c.Close() }()

	state := appstate.New(institute, me)
	ns := notify.New(c, c, state, logger)
	defer ns.Teardown()
	cs := chat.New(c, c, me, chat.Options{
		ReadLeaseInterval: cfg.ReadLeaseInterval.Duration,
		RequestTimeout:    cfg.RequestTimeout.Duration,
	}, logger)
	defer cs.Close()

	logger.Info("terminal client starting", zap.Stringer("identity", me), zap.String("socket", socketPath))
	app := tui.NewApp(c, state, ns, cs, events, logger)
	if err := app.Run(); err != nil {
		logger.Error("terminal client stopped", zap.Error(err))
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// probeDaemon checks that a daemon answers a status call on the socket.
func probeDaemon(socketPath string) bool {
	if _, err := os.Stat(socketPath); err != nil {
		return false
	}
	c, err := client.New(socketPath, nil, nil)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.Status(ctx)
	return err == nil
}

// startDaemon launches campusd next to this executable, or from PATH.
func startDaemon(institute string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	campusd := filepath.Join(filepath.Dir(executable), "campusd")
	if _, err := os.Stat(campusd); err != nil {
		campusd = "campusd"
	}

	cmd := exec.Command(campusd, "--institute", institute)
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// waitForDaemon polls with a real status call, not just a socket connect.
func waitForDaemon(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeDaemon(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
