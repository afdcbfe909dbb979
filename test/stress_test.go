package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"rentshield/test/actors"
	"rentshield/test/chaos"
	"rentshield/test/infra"
	"rentshield/test/oracles"
)

var (
	flDuration   = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flJurors     = flag.Int("jurors", 16, "number of concurrent jurors")
	flConcluders = flag.Int("concluders", 4, "number of concurrent quorum concluders")
	flThreshold  = flag.Int("threshold", 10, "quorum threshold")
	flSeed       = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN        = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

func seedRNG(seed int64) { rand.Seed(seed) }

func TestDisputeLifecycleConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	seedRNG(seed)

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if dockerAvailable(ctx) {
			pgC, dsn, err = infra.StartPostgres16(ctx, "")
			if err != nil {
				t.Fatalf("start postgres: %v", err)
			}
		} else {
			dsn, err = infra.InitLocalDatabase(ctx)
			if err != nil {
				t.Fatalf("init local database: %v", err)
			}
			pgC = &infra.PGContainer{}
		}
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	seedData := mustSeed(t, ctx, pool, *flJurors)

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	// jurors battling over the same issue, each allowed exactly one vote
	for _, jurorID := range seedData.jurorIDs {
		id := jurorID
		g.Go(func() error { return actors.Juror(ctx2, pool, seedData.issueID, id, stop) })
	}
	// concluders racing over the dao_review -> verdict edge
	for i := 0; i < *flConcluders; i++ {
		g.Go(func() error { return actors.Concluder(ctx2, pool, seedData.issueID, *flThreshold, stop) })
	}
	// landlord resubmitting the response on a second in-review issue
	g.Go(func() error { return actors.Responder(ctx2, pool, seedData.openIssueID, stop) })
	// progress reads against live inserts
	g.Go(func() error { return actors.ProgressReader(ctx2, pool, seedData.issueID, stop) })
	// outbox worker
	g.Go(func() error { return actors.OutboxWorker(ctx2, pool, stop) })
	// chaos: kill random backend
	go chaos.TerminateRandomBackend(ctx2, pool, stop)

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	tenantID    string
	landlordID  string
	propertyID  string
	issueID     string
	openIssueID string
	jurorIDs    []string
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool, jurors int) seedIDs {
	t.Helper()
	var s seedIDs

	run := rand.Int63()
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1,'Stress Tenant','x','tenant') RETURNING id`,
		fmt.Sprintf("tenant%d@example.com", run)).Scan(&s.tenantID); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1,'Stress Landlord','x','landlord') RETURNING id`,
		fmt.Sprintf("landlord%d@example.com", run)).Scan(&s.landlordID); err != nil {
		t.Fatalf("seed landlord: %v", err)
	}
	for i := 0; i < jurors; i++ {
		var id string
		if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash, role) VALUES ($1,'Stress Juror','x','juror') RETURNING id`,
			fmt.Sprintf("juror%d-%d@example.com", run, i)).Scan(&id); err != nil {
			t.Fatalf("seed juror: %v", err)
		}
		s.jurorIDs = append(s.jurorIDs, id)
	}

	if err := pool.QueryRow(ctx, `INSERT INTO properties (landlord_id, address) VALUES ($1, $2) RETURNING id`,
		s.landlordID, fmt.Sprintf("%d Stress Lane", run%10000)).Scan(&s.propertyID); err != nil {
		t.Fatalf("seed property: %v", err)
	}

	// issue already in review, the contested one
	if err := pool.QueryRow(ctx, `INSERT INTO issues (tenant_id, landlord_id, property_id, description, status)
            VALUES ($1,$2,$3,'persistent mold in the bathroom','dao_review') RETURNING id`,
		s.tenantID, s.landlordID, s.propertyID).Scan(&s.issueID); err != nil {
		t.Fatalf("seed issue: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO landlord_responses (issue_id, text) VALUES ($1, 'initial response')`, s.issueID); err != nil {
		t.Fatalf("seed response: %v", err)
	}

	// second issue still awaiting its response, hammered by the responder
	if err := pool.QueryRow(ctx, `INSERT INTO issues (tenant_id, landlord_id, property_id, description, status)
            VALUES ($1,$2,$3,'broken radiator','awaiting_landlord_response') RETURNING id`,
		s.tenantID, s.landlordID, s.propertyID).Scan(&s.openIssueID); err != nil {
		t.Fatalf("seed open issue: %v", err)
	}

	return s
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"issues", `SELECT id, status, verdict, updated_at FROM issues ORDER BY updated_at DESC LIMIT 20`},
		{"votes", `SELECT issue_id, juror_id, choice, cast_at FROM votes ORDER BY cast_at DESC LIMIT 50`},
		{"timeline_events", `SELECT id, issue_id, type, created_at FROM timeline_events ORDER BY id DESC LIMIT 50`},
		{"outbox", `SELECT id, topic, status, attempts, created_at FROM outbox ORDER BY created_at DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
