package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"adb-host-go/pkg/adb"
	"adb-host-go/pkg/config"
)

// Version adb-host 版本号
const Version = "0.3.0"

// app 所有子命令共享的运行时状态，在 PersistentPreRunE 中初始化
type app struct {
	configPath     string
	host           string
	port           int
	connectTimeout time.Duration
	readTimeout    time.Duration
	logLevel       string
	logFormat      string

	stderr io.Writer
	cfg    *config.Config
	logger *slog.Logger
	client *adb.Client
}

// NewRootCommand 构建完整的命令树，日志写到 stderr
func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stderr)
}

func newRootCommand(stderr io.Writer) *cobra.Command {
	a := &app{stderr: stderr}

	rootCmd := &cobra.Command{
		Use:           "adb-host",
		Short:         "Talk to an ADB server over its host protocol",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default "+config.ConfigPath()+")")
	flags.StringVarP(&a.host, "host", "H", "", "ADB server host")
	flags.IntVarP(&a.port, "port", "P", 0, "ADB server port")
	flags.DurationVar(&a.connectTimeout, "connect-timeout", 0, "timeout for connecting to the server")
	flags.DurationVar(&a.readTimeout, "read-timeout", 0, "timeout for each read from the server (0 = none)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (text or json)")

	rootCmd.AddCommand(
		newHostCommand(a),
		newPairCommand(a),
		newPubkeyCommand(),
	)
	return rootCmd
}

// init 合并配置文件、环境变量与命令行参数，优先级依次升高
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = a.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = a.port
	}
	if flags.Changed("connect-timeout") {
		cfg.Timeouts.Connect = a.connectTimeout
	}
	if flags.Changed("read-timeout") {
		cfg.Timeouts.Read = a.readTimeout
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	logger, err := newLogger(a.stderr, cfg.Log)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.client = adb.NewClient(&adb.Options{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ConnectTimeout: cfg.Timeouts.Connect,
		ReadTimeout:    cfg.Timeouts.Read,
		Logger:         logger,
	})
	return nil
}

// newLogger 按配置选择 text 或 JSON handler
func newLogger(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, errors.Errorf("unknown log level %q", cfg.Level)
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// Execute 执行根命令，出错时以状态码 1 退出
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
