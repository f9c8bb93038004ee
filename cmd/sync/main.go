package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"DealSync/internal/app"
	"DealSync/internal/config"
	"DealSync/internal/database"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

const usage = `用法:
  sync deals [--countries US,GB]   执行一次折扣同步并输出JSON摘要
  sync seed                        写入内置商店
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	countries := fs.StringSlice("countries", nil, "同步的国家列表，默认使用 sync.countries")
	verbose := fs.BoolP("verbose", "v", false, "输出调试日志")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.InfoLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Error("加载配置文件失败")
		return 1
	}
	a, err := app.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("初始化失败")
		return 1
	}
	defer a.Close()

	ctx := context.Background()
	switch cmd := fs.Arg(0); cmd {
	case "seed":
		if err := database.SeedStores(ctx, a.Catalog); err != nil {
			logger.WithError(err).Error("写入内置商店失败")
			return 1
		}
		logger.Info("内置商店已写入")
	case "deals":
		res, err := a.Job.Run(ctx, normalize(*countries))
		if err != nil {
			logger.WithError(err).Error("折扣同步失败")
			return 1
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return 1
		}
	default:
		logger.Errorf("未知命令: %s", cmd)
		fs.Usage()
		return 2
	}
	return 0
}

func normalize(in []string) []string {
	var out []string
	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, strings.ToUpper(c))
		}
	}
	return out
}
