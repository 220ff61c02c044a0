package command

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/YangchenYe323/hapi/internal/config"
	"github.com/YangchenYe323/hapi/internal/dispatch"
	"github.com/YangchenYe323/hapi/internal/model"
	"github.com/YangchenYe323/hapi/internal/throttle"
)

var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "监听浏览器快捷键，在任意页面按下时收集凭证",
	Run:   runWatch,
}

func init() {
	WatchCmd.Flags().StringP("shortcut.key", "k", config.DefaultShortcutKey, "快捷键 (与Alt/Option组合)")
	WatchCmd.Flags().Duration("throttle.min", config.DefaultThrottleMin, "两次请求之间的最小间隔")
	WatchCmd.Flags().Duration("throttle.max", config.DefaultThrottleMax, "两次请求之间的最大间隔")
}

func runWatch(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		log.Fatal().Err(err).Msg("无法连接到浏览器，请使用 --remote-debugging-port 启动浏览器")
	}
	defer a.Close()

	events := make(chan model.DispatchTarget, 8)
	relay := a.browser.Relay(cfg.Shortcut.Key, 0)
	go func() {
		if err := relay.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("快捷键监听已停止")
			stop()
		}
	}()

	cmd.Printf("在浏览器中按 Alt+%s 收集当前页面的凭证，按 Ctrl+C 退出\n", strings.ToUpper(cfg.Shortcut.Key))

	// One dispatch at a time, spaced by the throttler.
	t := throttle.New(cfg.Throttle.Min, cfg.Throttle.Max)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("退出")
			return
		case target := <-events:
			_ = t.Run(ctx, func(ctx context.Context) error {
				o := a.dispatcher.Dispatch(ctx, dispatch.Trigger{
					Kind:    dispatch.TriggerShortcut,
					TabID:   target.TabID,
					PageURL: target.URL,
				})
				printOutcome(cmd, o)
				return o.Err
			})
		}
	}
}
