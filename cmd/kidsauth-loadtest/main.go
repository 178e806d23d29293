// Command kidsauth-loadtest measures the two hot paths of a login: the
// Redis-held two-factor code (set then consume) and session token
// validation.
//
//	kidsauth-loadtest --accounts 50000 --concurrency 256 --ops 200000
//	REDIS_ADDR=127.0.0.1:6379 kidsauth-loadtest
//
// Without --redis-addr or REDIS_ADDR an in-process miniredis is used.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/MrEthical07/kidsAuth/internal"
	"github.com/MrEthical07/kidsAuth/internal/stores"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

type options struct {
	accounts    int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "kidsauth-loadtest",
		Short:        "Load test two-factor code storage and session validation",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd, opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.accounts, "accounts", 10000, "number of accounts to simulate")
	f.IntVar(&opts.concurrency, "concurrency", 128, "number of concurrent workers")
	f.IntVar(&opts.ops, "ops", 100000, "operations per phase")
	f.StringVar(&opts.redisAddr, "redis-addr", "", "redis address; defaults to REDIS_ADDR, then miniredis")
	f.StringVar(&opts.prefix, "prefix", "tfa-load", "two-factor key prefix")
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts options) error {
	if opts.accounts <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
		return errors.New("accounts, concurrency and ops must be > 0")
	}
	out := cmd.OutOrStdout()

	addr := opts.redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	challenges := stores.NewChallengeStore(client, opts.prefix, time.Now)
	codeStats, err := runChallengePhase(ctx, challenges, opts)
	if err != nil {
		return err
	}

	validateStats, err := runValidatePhase(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "---- results ----")
	printStats(cmd, "two-factor", codeStats)
	printStats(cmd, "validate", validateStats)
	return nil
}

// runChallengePhase issues a code for a random account and redeems it, the
// Redis round trips of one login.
func runChallengePhase(ctx context.Context, store *stores.ChallengeStore, opts options) (phaseStats, error) {
	return runPhase(opts, func(r *rand.Rand) error {
		accountID := fmt.Sprintf("acct-%d", r.Intn(opts.accounts))
		code, err := internal.NewNumericCode(6)
		if err != nil {
			return err
		}
		if err := store.Save(ctx, accountID, stores.Challenge{Code: code, ExpiresAt: time.Now().Add(5 * time.Minute)}); err != nil {
			return err
		}
		ok, err := store.Consume(ctx, accountID, code, time.Now())
		if err != nil {
			return err
		}
		if !ok {
			// Another worker overwrote the code first.
			return errSuperseded
		}
		return nil
	}), nil
}

var errSuperseded = errors.New("code superseded")

func runValidatePhase(ctx context.Context, opts options) (phaseStats, error) {
	cfg := kidsAuth.DefaultConfig()
	cfg.JWT.SessionSecret = []byte("loadtest-session-secret-0123456789")
	cfg.JWT.VerificationSecret = []byte("loadtest-verify-secret-0123456789")
	cfg.Metrics.Enabled = false

	engine, err := kidsAuth.New().
		WithConfig(cfg).
		WithAccountStore(nopAccounts{}).
		WithProfileStore(nopProfiles{}).
		WithChallengeStore(nopChallenges{}).
		WithEmailSender(nopSender{}).
		WithSMSSender(nopSender{}).
		Build()
	if err != nil {
		return phaseStats{}, err
	}
	defer engine.Close()

	n := opts.accounts
	if n > 1000 {
		n = 1000
	}
	tokens := make([]string, n)
	for i := range tokens {
		tok, _, err := engine.IssueSession(fmt.Sprintf("acct-%d", i), fmt.Sprintf("parent%d@example.com", i), nil)
		if err != nil {
			return phaseStats{}, err
		}
		tokens[i] = tok
	}

	return runPhase(opts, func(r *rand.Rand) error {
		_, err := engine.ValidateSession(ctx, tokens[r.Intn(len(tokens))])
		return err
	}), nil
}

func runPhase(opts options, op func(*rand.Rand) error) phaseStats {
	var (
		wg         sync.WaitGroup
		cursor     int64
		failures   int64
		superseded int64
		latencies  = make([]time.Duration, 0, opts.ops)
		mu         sync.Mutex
	)

	start := time.Now()
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				if int(atomic.AddInt64(&cursor, 1))-1 >= opts.ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				switch {
				case errors.Is(err, errSuperseded):
					atomic.AddInt64(&superseded, 1)
				case err != nil:
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	s := computeStats(time.Since(start), latencies, failures)
	s.superseded = superseded
	return s
}

type phaseStats struct {
	total      time.Duration
	ops        int
	failures   int64
	superseded int64
	p50        time.Duration
	p95        time.Duration
	p99        time.Duration
	opsPerS    float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(cmd *cobra.Command, name string, s phaseStats) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ops=%d failures=%d superseded=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.superseded,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
