// Command delivery-status prints the resolved delivery status of accounts,
// campaigns and their ad groups.
//
//	delivery-status -campaigns 12,15 -ad-groups
//	delivery-status -accounts 3 -json
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/adgroup-autopilot/internal/campaignstop"
	"github.com/ignite/adgroup-autopilot/internal/config"
	"github.com/ignite/adgroup-autopilot/internal/repository/postgres"
	"github.com/ignite/adgroup-autopilot/internal/service/status"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	campaigns := flag.String("campaigns", "", "comma-separated campaign IDs")
	accounts := flag.String("accounts", "", "comma-separated account IDs")
	adGroups := flag.Bool("ad-groups", false, "also resolve every ad group of the given campaigns")
	asJSON := flag.Bool("json", false, "print JSON instead of a table")
	flag.Parse()

	campaignIDs, err := parseIDs(*campaigns)
	if err != nil {
		log.Fatalf("-campaigns: %v", err)
	}
	accountIDs, err := parseIDs(*accounts)
	if err != nil {
		log.Fatalf("-accounts: %v", err)
	}
	if len(campaignIDs) == 0 && len(accountIDs) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	var stops campaignstop.Provider
	if cfg.CampaignStop.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		stops = campaignstop.NewRedisProvider(rdb, cfg.CampaignStop.KeyPrefix)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc := status.NewService(postgres.NewStatusRepo(db), stops)
	var out []status.EntityStatus
	if len(accountIDs) > 0 {
		res, err := svc.AccountStatuses(ctx, accountIDs)
		if err != nil {
			log.Fatalf("Failed to resolve accounts: %v", err)
		}
		out = append(out, res...)
	}
	if len(campaignIDs) > 0 {
		res, err := svc.CampaignStatuses(ctx, campaignIDs)
		if err != nil {
			log.Fatalf("Failed to resolve campaigns: %v", err)
		}
		out = append(out, res...)
	}
	if *adGroups && len(campaignIDs) > 0 {
		res, err := svc.AdGroupStatuses(ctx, campaignIDs)
		if err != nil {
			log.Fatalf("Failed to resolve ad groups: %v", err)
		}
		out = append(out, res...)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Fatal(err)
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tID\tSTATUS\tDETAIL")
	for _, s := range out {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.Level, s.EntityID, s.Coarse, s.Detailed)
	}
	w.Flush()
}

func parseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
