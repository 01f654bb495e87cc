package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cppla/emoticket/config"
	"github.com/cppla/emoticket/models"
	"github.com/cppla/emoticket/routes"
	"github.com/cppla/emoticket/utils"
)

func main() {
	issueFor := flag.String("issue-token", "", "print a JWT for <id>:<username> and exit")
	flag.Parse()

	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	if *issueFor != "" {
		if err := printToken(*issueFor); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return
	}

	db := config.InitDatabase(&models.Text{}, &models.Ticket{}, &models.ActivityStreak{})

	r := routes.SetupRouter(db)

	srv := utils.GraceServer(":"+cfg.AppPort, r)
	srv.OnShutdown(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		if rc := utils.GetRedis(); rc != nil {
			_ = rc.Close()
		}
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func printToken(arg string) error {
	idStr, username, ok := strings.Cut(arg, ":")
	if !ok || username == "" {
		return fmt.Errorf("expected <id>:<username>, got %q", arg)
	}
	id, err := strconv.ParseUint(idStr, 10, 0)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid user id %q", idStr)
	}
	token, err := utils.GenerateToken(uint(id), username, 24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
