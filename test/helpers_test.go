//go:build integration

package test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/MrEthical07/kidsAuth/storage/sqlstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// redisMode is one Redis deployment the suite runs against.
type redisMode struct {
	name  string
	setup func(t *testing.T) redis.UniversalClient
}

// redisModes always includes miniredis. REDIS_ADDR, REDIS_CLUSTER_ADDRS and
// REDIS_SENTINEL_ADDRS add real deployments.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{{
		name: "miniredis",
		setup: func(t *testing.T) redis.UniversalClient {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("miniredis: %v", err)
			}
			t.Cleanup(mr.Close)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return rdb
		},
	}}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone",
			setup: func(t *testing.T) redis.UniversalClient {
				return connect(t, redis.NewClient(&redis.Options{Addr: addr}))
			},
		})
	}
	if addrs := os.Getenv("REDIS_CLUSTER_ADDRS"); addrs != "" {
		modes = append(modes, redisMode{
			name: "cluster",
			setup: func(t *testing.T) redis.UniversalClient {
				return connect(t, redis.NewClusterClient(&redis.ClusterOptions{Addrs: splitAddrs(addrs)}))
			},
		})
	}
	if addrs := os.Getenv("REDIS_SENTINEL_ADDRS"); addrs != "" {
		master := os.Getenv("REDIS_SENTINEL_MASTER")
		if master == "" {
			master = "mymaster"
		}
		modes = append(modes, redisMode{
			name: "sentinel",
			setup: func(t *testing.T) redis.UniversalClient {
				return connect(t, redis.NewFailoverClient(&redis.FailoverOptions{
					MasterName:    master,
					SentinelAddrs: splitAddrs(addrs),
				}))
			},
		})
	}
	return modes
}

// connect pings rdb and empties it before and after the test.
func connect(t *testing.T, rdb redis.UniversalClient) redis.UniversalClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("redis unavailable: %v", err)
	}
	flush(ctx, rdb)
	t.Cleanup(func() {
		flush(context.Background(), rdb)
		_ = rdb.Close()
	})
	return rdb
}

func flush(ctx context.Context, rdb redis.UniversalClient) {
	if cc, ok := rdb.(*redis.ClusterClient); ok {
		_ = cc.ForEachMaster(ctx, func(ctx context.Context, c *redis.Client) error {
			return c.FlushDB(ctx).Err()
		})
		return
	}
	rdb.FlushDB(ctx)
}

func splitAddrs(s string) []string {
	var addrs []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

type outbox struct {
	mu    sync.Mutex
	mails []string
	texts []string
}

func (o *outbox) SendEmail(_ context.Context, _, _, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mails = append(o.mails, body)
	return nil
}

func (o *outbox) SendSMS(_ context.Context, _, body string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.texts = append(o.texts, body)
	return "SM1", nil
}

func (o *outbox) code(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.texts) == 0 {
		t.Fatal("no sms sent")
	}
	body := o.texts[len(o.texts)-1]
	return body[strings.LastIndex(body, " ")+1:]
}

// newEngine builds an engine on a fresh SQLite file with Redis-held codes
// and throttling.
func newEngine(t *testing.T, rdb redis.UniversalClient, mutate func(*kidsAuth.Config)) (*kidsAuth.Engine, *sqlstore.Store, *outbox) {
	t.Helper()
	ctx := context.Background()

	store, err := sqlstore.OpenSQLite(filepath.Join(t.TempDir(), "kids.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := kidsAuth.DefaultConfig()
	cfg.JWT.SessionSecret = []byte("session-secret-0123456789abcdef")
	cfg.JWT.VerificationSecret = []byte("verify-secret-0123456789abcdef!")
	cfg.TwoFactor.Backend = kidsAuth.ChallengeOnRedis
	cfg.TwoFactor.RedisPrefix = "tfa-" + strings.ReplaceAll(t.Name(), "/", "-")
	if mutate != nil {
		mutate(&cfg)
	}

	out := &outbox{}
	engine, err := kidsAuth.New().
		WithConfig(cfg).
		WithAccountStore(store).
		WithProfileStore(store).
		WithRedis(rdb).
		WithEmailSender(out).
		WithSMSSender(out).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, store, out
}

// activeAccount registers email and activates it directly in the store.
func activeAccount(t *testing.T, engine *kidsAuth.Engine, email string) string {
	t.Helper()
	ctx := context.Background()
	summary, err := engine.Register(ctx, kidsAuth.RegisterRequest{
		Email:           email,
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
		Phone:           "+15551234567",
		PIN:             "123456",
		FirstName:       "Ana",
		LastName:        "López",
		Country:         "Spain",
		DateOfBirth:     "1990-05-01",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := engine.EnableAccount(ctx, summary.ID); err != nil {
		t.Fatalf("EnableAccount: %v", err)
	}
	return summary.ID
}
