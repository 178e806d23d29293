package test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/MrEthical07/kidsAuth/notify"
	"github.com/MrEthical07/kidsAuth/storage/sqlstore"
	"github.com/redis/go-redis/v9"
)

// ExampleNew builds an engine on SQLite with Redis-backed two-factor codes.
func ExampleNew() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := sqlstore.OpenSQLite("kidsauth.db")
	if err != nil {
		panic(err)
	}
	if err := store.Migrate(ctx); err != nil {
		panic(err)
	}

	cfg, err := kidsAuth.LoadConfigFromEnv()
	if err != nil {
		panic(err)
	}
	cfg.TwoFactor.Backend = kidsAuth.ChallengeOnRedis

	engine, err := kidsAuth.New().
		WithConfig(cfg).
		WithAccountStore(store).
		WithProfileStore(store).
		WithRedis(redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})).
		WithEmailSender(notify.LogMailer{Logger: logger}).
		WithSMSSender(notify.LogSMS{Logger: logger}).
		WithLogger(logger).
		Build()
	if err != nil {
		panic(err)
	}
	defer engine.Close()
}

// ExampleEngine_Login shows both login steps and the errors worth telling
// apart.
func ExampleEngine_Login() {
	var engine *kidsAuth.Engine
	ctx := context.Background()

	res, err := engine.Login(ctx, kidsAuth.LoginRequest{Email: "parent@example.com", Password: "hunter22"})
	switch {
	case errors.Is(err, kidsAuth.ErrAccountPending):
		fmt.Println("check your inbox for the verification link")
		return
	case err != nil:
		fmt.Println("login failed:", err)
		return
	}

	session, err := engine.VerifyTwoFactor(ctx, res.AccountID, "123456")
	if errors.Is(err, kidsAuth.ErrInvalidOrExpiredCode) {
		fmt.Println("ask for a new code")
		return
	}
	_ = session
}

// ExampleEngine_MetricsSnapshot reads the in-process counters.
func ExampleEngine_MetricsSnapshot() {
	var engine *kidsAuth.Engine
	snapshot := engine.MetricsSnapshot()
	fmt.Println(snapshot.Counters[kidsAuth.MetricSessionIssued])
}
