// Command chartgen renders SVG bar charts from the prediction analytics
// table in ClickHouse.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const predictionsTable = "fightsim.prediction_events"

type chartQuery struct {
	file  string
	title string
	color string
	query string
}

var charts = []chartQuery{
	{
		file:  "predictions_by_model.svg",
		title: "Predictions by Model",
		color: "#4a90e2",
		query: `
			SELECT model, count() AS n
			FROM ` + predictionsTable + `
			GROUP BY model
			ORDER BY n DESC`,
	},
	{
		file:  "top_predicted_winners.svg",
		title: "Most Picked Fighters",
		color: "#e74c3c",
		query: `
			SELECT predicted_winner, count() AS n
			FROM ` + predictionsTable + `
			WHERE predicted_winner != ''
			GROUP BY predicted_winner
			ORDER BY n DESC
			LIMIT 10`,
	},
}

func main() {
	_ = godotenv.Load()

	dsn := pflag.String("dsn", os.Getenv("CLICKHOUSE_URL"), "ClickHouse DSN")
	out := pflag.StringP("out", "o", "charts", "Output directory")
	describe := pflag.Bool("describe", false, "Print the analytics table columns and row count, then exit")
	pflag.Parse()

	if *dsn == "" {
		log.Fatal("--dsn or CLICKHOUSE_URL is required")
	}
	opts, err := clickhouse.ParseDSN(*dsn)
	if err != nil {
		log.Fatalf("Invalid ClickHouse DSN: %v", err)
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	ctx := context.Background()
	if err := conn.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping ClickHouse: %v", err)
	}

	if *describe {
		if err := describeTable(ctx, conn); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatal(err)
	}
	for _, c := range charts {
		s, err := querySeries(ctx, conn, c)
		if err != nil {
			log.Printf("Failed to query %s: %v", c.title, err)
			continue
		}
		if len(s.Labels) == 0 {
			fmt.Printf("No data found for %s.\n", c.title)
			continue
		}
		path := filepath.Join(*out, c.file)
		if err := os.WriteFile(path, []byte(barChartSVG(s)), 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Chart generated: %s\n", path)
	}
}

func querySeries(ctx context.Context, conn driver.Conn, c chartQuery) (barSeries, error) {
	s := barSeries{Title: c.title, Color: c.color}
	rows, err := conn.Query(ctx, c.query)
	if err != nil {
		return s, err
	}
	defer rows.Close()

	for rows.Next() {
		var label string
		var val uint64
		if err := rows.Scan(&label, &val); err != nil {
			continue
		}
		s.Labels = append(s.Labels, label)
		s.Values = append(s.Values, val)
	}
	return s, rows.Err()
}

func describeTable(ctx context.Context, conn driver.Conn) error {
	var count uint64
	if err := conn.QueryRow(ctx, "SELECT count() FROM "+predictionsTable).Scan(&count); err != nil {
		return err
	}
	fmt.Printf("Total prediction events: %d\n", count)

	rows, err := conn.Query(ctx, "DESCRIBE "+predictionsTable)
	if err != nil {
		return err
	}
	defer rows.Close()

	fmt.Println("Columns:")
	for rows.Next() {
		var name, ctype, defaultType, defaultExpr, comment, codecExpr, ttlExpr string
		if err := rows.Scan(&name, &ctype, &defaultType, &defaultExpr, &comment, &codecExpr, &ttlExpr); err != nil {
			return err
		}
		fmt.Printf("- %s: %s\n", name, ctype)
	}
	return rows.Err()
}
