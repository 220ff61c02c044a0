package command

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/YangchenYe323/hapi/internal/config"
)

// Set at build time with -ldflags "-X .../internal/command.Version=...".
var Version = "dev"

// Loaded in PersistentPreRun, before any subcommand runs.
var cfg *config.Config

var HapiCmd = &cobra.Command{
	Use:   "hapi",
	Short: "收集浏览器中的登录凭证并发送到本地抓取服务",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Logging and working directories are initialized in PersistentPreRun hook
		// because every subcommand needs them.
		var err error
		cfg, err = config.Load(cmd.Flags())
		if err != nil {
			cmd.PrintErrf("无法加载配置: %s\n", err.Error())
			os.Exit(1)
		}

		if err := ensureDirs(); err != nil {
			cmd.PrintErrf("无法创建工作目录 %s: %s\n", cfg.RootDir, err.Error())
			os.Exit(1)
		}
		initializeLogging()
		log.Debug().Str("root", cfg.RootDir).Msg("工作目录")
	},
}

func init() {
	flags := HapiCmd.PersistentFlags()
	flags.StringP("root-dir", "R", "", "改变hapi工作目录")
	flags.CountP("verbose", "v", "输出日志的详细程度")
	flags.Int("log.max-size", 100, "日志文件的最大大小(MB)")
	flags.Int("log.max-backups", 10, "日志文件的最大备份数量")
	flags.Int("log.max-age", 30, "日志文件的最大保存时间(天)")

	flags.StringP("devtools.url", "d", config.DefaultDevToolsURL, "浏览器远程调试地址")
	flags.StringP("collector.endpoint", "e", config.DefaultCollector, "本地抓取服务地址")
	flags.Duration("collector.timeout", 0, "发送请求的超时时间 (0 表示不限制)")
	flags.String("user-agent", config.DefaultUserAgent, "无法从浏览器获取时使用的User-Agent")
	flags.Bool("notify.desktop", true, "显示桌面通知")
	flags.Bool("journal", true, "记录每次请求的结果")

	HapiCmd.AddCommand(CollectCmd, WatchCmd, HistoryCmd, VersionCmd)
}

func initializeLogging() {
	var level zerolog.Level
	switch cfg.Verbose {
	case 0:
		level = zerolog.InfoLevel
	case 1:
		level = zerolog.DebugLevel
	default:
		level = zerolog.TraceLevel
	}

	zerolog.SetGlobalLevel(level)

	logRotater := lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir(), config.LogFile),
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}

	// Write logs to both stderr and lumberjack log rotater
	multiWriter := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: os.Stderr},
		&logRotater,
	)

	log.Logger = log.Output(multiWriter)
}

func ensureDirs() error {
	for _, dir := range []string{cfg.RootDir, cfg.LogDir(), cfg.DBDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
