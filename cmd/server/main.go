package main

import (
	"flag"
	"log"
	"log/slog"
	"path/filepath"

	"creatorhub/bot"
	"creatorhub/impl/auth"
	"creatorhub/impl/core"
	"creatorhub/internal/config"
	"creatorhub/internal/coupon"
	"creatorhub/internal/database"
	"creatorhub/internal/earnings"
	"creatorhub/internal/http-server/api"
	"creatorhub/internal/ledger"
	"creatorhub/internal/payout"
	"creatorhub/internal/stripecoupon"
	"creatorhub/lib/logger"
	"creatorhub/lib/sl"
)

const logFileName = "creatorhub.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	lg.Info("starting creatorhub", slog.String("config", *configPath), slog.String("env", conf.Env))

	db := database.NewMongoClient(conf)
	if db == nil {
		log.Fatal("mongodb is disabled in configuration; the progression store requires it")
	}

	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		var err error
		tgBot, err = bot.NewTgBot(conf.Telegram.ApiKey, conf.Telegram.CommunityChatId, db, lg)
		if err != nil {
			log.Fatal("creating telegram bot: ", err)
		}
		// route WARN+ records to the bot admins
		lg = slog.New(logger.NewTelegramHandler(lg.Handler(), tgBot, slog.LevelWarn))
	}

	couponService := stripecoupon.New(conf, lg)
	couponManager := coupon.New(db, couponService, conf, lg)

	codeLedger, err := ledger.New(db, conf, lg)
	if err != nil {
		log.Fatal("creating redemption ledger: ", err)
	}

	var earningsSource payout.Earnings
	if conf.Community.Enabled {
		sqlClient, sqlErr := earnings.NewSQLClient(conf)
		if sqlErr != nil {
			log.Fatal("connecting community database: ", sqlErr)
		}
		defer sqlClient.Close()
		earningsSource = sqlClient
	} else {
		lg.Warn("community earnings source disabled; withdrawals pay accrued bonuses only")
	}

	orchestrator := payout.New(db, couponManager, codeLedger, earningsSource, lg)

	handler := core.New(db, codeLedger, orchestrator, couponManager, lg)
	handler.SetAuthService(auth.New(db))

	if tgBot != nil {
		handler.SetChat(tgBot)
		orchestrator.SetChat(tgBot)
		go func() {
			if botErr := tgBot.Start(); botErr != nil {
				lg.Error("telegram bot stopped", sl.Err(botErr))
			}
		}()
		defer tgBot.Stop()
	}

	if err = api.New(conf, lg, handler); err != nil {
		lg.Error("api server stopped", sl.Err(err))
	}
}
