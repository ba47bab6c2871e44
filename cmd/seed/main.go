package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/repository"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/seed"
	"github.com/sysu-ecnc-dev/train-scheduler/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var randomSeed int64

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 写入随机线路, 2: 写入示例路网)")
	flag.IntVar(&n, "n", 10, "随机线路的车站数量")
	flag.Int64Var(&randomSeed, "seed", 0, "随机种子，0 表示使用当前时间")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.Database.DSN == "" {
		logger.Error("未配置数据库")
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)
	if err := repo.EnsureSchema(); err != nil {
		logger.Error("无法创建路网数据表", "error", err)
		return
	}

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n < 2 {
			slog.Error("请输入合法的车站数量")
			return
		}
		if randomSeed == 0 {
			randomSeed = time.Now().UnixNano()
		}
		rng := rand.New(rand.NewSource(randomSeed))

		stations, tracks := utils.GenerateCorridorTopology(n, rng)
		if err := utils.ValidateTopology(stations, tracks); err != nil {
			slog.Error("生成的线路不合法", slog.String("error", err.Error()))
			return
		}
		if err := repo.ReplaceTopology(stations, tracks); err != nil {
			slog.Error("无法写入线路", slog.String("error", err.Error()))
			return
		}

		slog.Info("写入随机线路成功", slog.Int("stations", len(stations)), slog.Int("tracks", len(tracks)), slog.Int64("seed", randomSeed))
	case 2:
		seed.SeedDemoNetwork(repo)
	default:
		slog.Error("指定的操作非法")
	}
}
