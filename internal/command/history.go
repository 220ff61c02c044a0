package command

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/YangchenYe323/hapi/internal/store"
)

var HISTORY_LIMIT int

var HistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "显示最近的请求记录",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s, err := store.NewBadger(cfg.DBDir())
		if err != nil {
			log.Fatal().Err(err).Msg("无法打开数据库")
		}
		defer s.Close()

		records, err := s.ListRecords(cmd.Context(), HISTORY_LIMIT)
		if err != nil {
			log.Error().Err(err).Msg("无法读取请求记录")
			s.Close()
			os.Exit(1)
		}

		if len(records) == 0 {
			cmd.Println("暂无记录")
			return
		}
		for _, r := range records {
			printRecord(cmd, r)
		}
	},
}

func init() {
	HistoryCmd.Flags().IntVarP(&HISTORY_LIMIT, "limit", "n", 20, "显示的记录数量 (0 表示全部)")
}

func printRecord(cmd *cobra.Command, r *store.Record) {
	mark := "✓"
	if !r.Success {
		mark = "✗"
	}
	platform := r.Platform
	if platform == "" {
		platform = "-"
	}
	cmd.Printf("%s %s [%s] %-8s %s: %s\n",
		r.Time.Local().Format(time.DateTime), mark, r.Trigger, platform, r.Title, r.Message)
	if r.URL != "" {
		cmd.Printf("    %s (cookies: %d, %s)\n", r.URL, r.Cookies, r.Duration.Round(time.Millisecond))
	}
}
