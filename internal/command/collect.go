package command

import (
	"context"
	"os"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/YangchenYe323/hapi/internal/browser"
	"github.com/YangchenYe323/hapi/internal/dispatch"
)

var (
	LINK_URL    string
	TAB_ID      string
	INTERACTIVE bool
)

var CollectCmd = &cobra.Command{
	Use:   "collect [链接]",
	Short: "收集当前页面或指定链接的凭证并发送到本地抓取服务",
	Args:  cobra.MaximumNArgs(1),
	Run:   runCollect,
}

func init() {
	CollectCmd.Flags().StringVarP(&LINK_URL, "link", "l", "", "要抓取的链接，优先于当前页面")
	CollectCmd.Flags().StringVarP(&TAB_ID, "tab", "t", "", "使用指定的标签页代替当前标签页")
	CollectCmd.Flags().BoolVarP(&INTERACTIVE, "interactive", "i", false, "未指定链接时提示输入")
}

func runCollect(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	link := LINK_URL
	if link == "" && len(args) > 0 {
		link = args[0]
	}

	a, err := newApp(ctx, cfg, link != "" || INTERACTIVE)
	if err != nil {
		log.Fatal().Err(err).Msg("无法连接到浏览器，请使用 --remote-debugging-port 启动浏览器")
	}

	if link == "" && INTERACTIVE {
		line := prompt.Input("请输入链接 (留空则使用当前页面): ", tabCompleter(ctx, a.browser))
		link = strings.TrimSpace(line)
	}

	trig := dispatch.Trigger{Kind: dispatch.TriggerPage, TabID: TAB_ID}
	if link != "" {
		trig.Kind = dispatch.TriggerLink
		trig.LinkURL = link
	}

	o := a.dispatcher.Dispatch(ctx, trig)
	a.Close()
	printOutcome(cmd, o)
	if !o.Success {
		os.Exit(1)
	}
}

// tabCompleter suggests the URLs of open tabs.
func tabCompleter(ctx context.Context, b *browser.Browser) prompt.Completer {
	var suggests []prompt.Suggest
	if b != nil {
		pages, err := b.Pages(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("无法获取标签页列表")
		}
		for _, p := range pages {
			suggests = append(suggests, prompt.Suggest{Text: p.URL, Description: p.Title})
		}
	}
	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterContains(suggests, d.GetWordBeforeCursor(), true)
	}
}
